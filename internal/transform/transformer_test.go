package transform

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/cmsindex/internal/cms"
	"github.com/Aman-CERP/cmsindex/internal/computed"
	"github.com/Aman-CERP/cmsindex/internal/config"
	cmserrors "github.com/Aman-CERP/cmsindex/internal/errors"
	"github.com/Aman-CERP/cmsindex/internal/schema"
)

type fakeCMS struct {
	users   map[int]string
	urls    map[int]string
	userErr error
	urlErr  error
}

func (f *fakeCMS) UserName(_ context.Context, id int) (string, error) {
	if f.userErr != nil {
		return "", f.userErr
	}
	return f.users[id], nil
}

func (f *fakeCMS) PublishedURL(_ context.Context, id int) (string, bool, error) {
	if f.urlErr != nil {
		return "", false, f.urlErr
	}
	url, ok := f.urls[id]
	return url, ok, nil
}

type fixedFields struct{}

func (fixedFields) StandardFields(context.Context) ([]schema.FieldDescriptor, error) {
	return schema.FixedFields(), nil
}

func newTransformer(t *testing.T, c *fakeCMS, reg ComputedValues) *Transformer {
	t.Helper()
	if c == nil {
		c = &fakeCMS{
			users: map[int]string{0: "Administrator", 7: "Editor"},
			urls:  map[int]string{1100: "/"},
		}
	}
	tr, err := NewTransformer(Dependencies{CMS: c, Fields: fixedFields{}, Computed: reg})
	require.NoError(t, err)
	return tr
}

func homePage() *cms.Entity {
	return &cms.Entity{
		ID: 1100, Key: "6e1c6c3f-0a5c-4c38-9d8b-2f1f5e9b1100", Kind: cms.KindContent,
		Name: "Home", ParentID: -1, Level: 1, Path: "-1,1100",
		ContentType: cms.ContentType{ID: 1051, Alias: "home", Icon: "icon-home"},
		CreatorID:   0, WriterID: 7,
		CreateDate: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		UpdateDate: time.Date(2024, 3, 3, 9, 30, 0, 0, time.UTC),
		Published:  true, TemplateAlias: "Home",
		Properties: []*cms.Property{
			{Alias: "title", EditorAlias: "Umbraco.TextBox", Value: "Welcome"},
			{Alias: "tags", EditorAlias: "Umbraco.Tags", Value: "news,events"},
			{Alias: "umbracoNaviHide", EditorAlias: "Umbraco.TrueFalse", Value: "1"},
		},
	}
}

func TestNewTransformer_RequiresDependencies(t *testing.T) {
	_, err := NewTransformer(Dependencies{Fields: fixedFields{}})
	assert.Error(t, err)
	_, err = NewTransformer(Dependencies{CMS: &fakeCMS{}})
	assert.Error(t, err)
}

func TestTransform_ContentStandardFields(t *testing.T) {
	// Given: a published content node
	tr := newTransformer(t, nil, nil)

	// When: transforming it
	doc, err := tr.Transform(context.Background(), homePage(), nil)
	require.NoError(t, err)
	require.NotNil(t, doc)

	// Then: structural fields are resolved
	assert.Equal(t, "1100", doc["Id"])
	assert.Equal(t, "1100", doc.ID())
	assert.Equal(t, "Home", doc["Name"])
	assert.Equal(t, "1,1100", doc["SearchablePath"])
	assert.Equal(t, []string{"-1", "1100"}, doc["Path"])
	assert.Equal(t, "-1", doc["ParentID"])
	assert.Equal(t, "Administrator", doc["CreatorName"])
	assert.Equal(t, 1, doc["Level"])
	assert.Equal(t, 1051, doc["ContentTypeId"])
	assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), doc["CreateDate"])

	// Then: kind flags
	assert.Equal(t, true, doc["IsContent"])
	assert.Equal(t, false, doc["IsMedia"])
	assert.Equal(t, false, doc["IsMember"])
	assert.Equal(t, false, doc["Trashed"])

	// Then: content enrichment
	assert.Equal(t, true, doc["Published"])
	assert.Equal(t, 7, doc["WriterId"])
	assert.Equal(t, "Editor", doc["WriterName"])
	assert.Equal(t, "home", doc["ContentTypeAlias"])
	assert.Equal(t, "/", doc["Url"])
	assert.Equal(t, "Home", doc["Template"])
	assert.Equal(t, "icon-home", doc["Icon"])

	// Then: blank standard strings are skipped
	_, hasEmail := doc["MemberEmail"]
	assert.False(t, hasEmail)
}

func TestTransform_SystemPropertyFieldsFallBackToProperties(t *testing.T) {
	// Given: a schema with an umbraco-prefixed property field
	src := &metadata{user: []string{"umbracoNaviHide"}}
	b := schema.NewBuilder(src, nil)
	tr, err := NewTransformer(Dependencies{CMS: &fakeCMS{}, Fields: b})
	require.NoError(t, err)

	// When: transforming an entity carrying the property
	doc, err := tr.Transform(context.Background(), homePage(), nil)
	require.NoError(t, err)

	// Then: the generic property accessor supplies it as a string
	assert.Equal(t, "1", doc["umbracoNaviHide"])
}

func TestTransform_ConfiguredFieldDefaults(t *testing.T) {
	// Given: configured fields the entity has no values for
	tr := newTransformer(t, nil, nil)
	fields := []config.SearchField{
		{Name: "featured", Type: config.FieldTypeBool},
		{Name: "categories", Type: config.FieldTypeCollection},
		{Name: "summary", Type: config.FieldTypeString},
		{Name: "rating", Type: config.FieldTypeInt},
		{Name: "expires", Type: config.FieldTypeDate},
	}

	// When: transforming
	doc, err := tr.Transform(context.Background(), homePage(), fields)
	require.NoError(t, err)

	// Then: absent values take the type default
	assert.Equal(t, false, doc["featured"])
	assert.Equal(t, []string{}, doc["categories"])
	assert.Equal(t, "", doc["summary"])
	assert.Equal(t, 0, doc["rating"])
	_, hasDate := doc["expires"]
	assert.False(t, hasDate)
}

func TestTransform_ConfiguredFieldValues(t *testing.T) {
	tr := newTransformer(t, nil, nil)
	e := homePage()
	e.Properties = append(e.Properties,
		&cms.Property{Alias: "rating", Value: "4"},
		&cms.Property{Alias: "featured", Value: "true"},
		&cms.Property{Alias: "expires", Value: "2025-01-02T00:00:00Z"},
		&cms.Property{Alias: "emptyTags", Value: ""},
	)
	fields := []config.SearchField{
		{Name: "title", Type: config.FieldTypeString},
		{Name: "tags", Type: config.FieldTypeCollection},
		{Name: "emptyTags", Type: config.FieldTypeCollection},
		{Name: "rating", Type: config.FieldTypeInt},
		{Name: "featured", Type: config.FieldTypeBool},
		{Name: "expires", Type: config.FieldTypeDate},
	}

	doc, err := tr.Transform(context.Background(), e, fields)
	require.NoError(t, err)

	assert.Equal(t, "Welcome", doc["title"])
	assert.Equal(t, []string{"news", "events"}, doc["tags"])
	assert.Equal(t, []string{}, doc["emptyTags"])
	assert.Equal(t, 4, doc["rating"])
	assert.Equal(t, true, doc["featured"])
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), doc["expires"])
}

func TestTransform_UnparseableIntIsTransformError(t *testing.T) {
	tr := newTransformer(t, nil, nil)
	e := homePage()
	e.Properties = append(e.Properties, &cms.Property{Alias: "rating", Value: "five"})

	_, err := tr.Transform(context.Background(), e, []config.SearchField{{Name: "rating", Type: config.FieldTypeInt}})
	require.Error(t, err)
	assert.Equal(t, cmserrors.ErrCodeTransform, cmserrors.GetCode(err))
}

func TestTransform_IntFieldRejectsFractionsAndOverflow(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"fraction", 3.7},
		{"float overflow", float64(1 << 40)},
		{"int64 overflow", int64(1) << 40},
		{"string overflow", "3000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTransformer(t, nil, nil)
			e := homePage()
			e.Properties = append(e.Properties, &cms.Property{Alias: "rating", Value: tt.value})

			_, err := tr.Transform(context.Background(), e, []config.SearchField{{Name: "rating", Type: config.FieldTypeInt}})
			require.Error(t, err)
			assert.Equal(t, cmserrors.ErrCodeTransform, cmserrors.GetCode(err))
		})
	}
}

func TestTransform_IntFieldAcceptsWholeFloats(t *testing.T) {
	tr := newTransformer(t, nil, nil)
	e := homePage()
	e.Properties = append(e.Properties, &cms.Property{Alias: "rating", Value: 4.0})

	doc, err := tr.Transform(context.Background(), e, []config.SearchField{{Name: "rating", Type: config.FieldTypeInt}})
	require.NoError(t, err)
	assert.Equal(t, 4, doc["rating"])
}

func TestTransform_GridJSON(t *testing.T) {
	// Given: a grid property with markup in a nested value
	tr := newTransformer(t, nil, nil)
	e := homePage()
	e.Properties = append(e.Properties, &cms.Property{
		Alias: "bodyGrid", EditorAlias: cms.EditorGrid,
		Value: `{"sections":[{"rows":[{"areas":[{"controls":[{"value":"<p>Hello</p><p>World</p>"}]}]}]}]}`,
	}, &cms.Property{Alias: "brokenGrid", EditorAlias: cms.EditorGrid, Value: `{"sections":[`})
	fields := []config.SearchField{
		{Name: "bodyGrid", Type: config.FieldTypeString, IsGridJSON: true},
		{Name: "brokenGrid", Type: config.FieldTypeString, IsGridJSON: true},
	}

	// When: transforming
	doc, err := tr.Transform(context.Background(), e, fields)

	// Then: text is extracted and malformed grids degrade to ""
	require.NoError(t, err)
	assert.Equal(t, "Hello World", doc["bodyGrid"])
	assert.Equal(t, "", doc["brokenGrid"])
}

func TestTransform_ComputedFields(t *testing.T) {
	reg := computed.NewRegistry()
	fields := []config.SearchField{
		{Name: "nameLower", Type: config.FieldTypeString, ParserType: computed.NameLower},
		{Name: "depth", Type: config.FieldTypeInt, ParserType: computed.PathDepth},
	}
	require.NoError(t, reg.RegisterAll(fields))
	tr := newTransformer(t, nil, reg)

	doc, err := tr.Transform(context.Background(), homePage(), fields)
	require.NoError(t, err)

	assert.Equal(t, "home", doc["nameLower"])
	assert.Equal(t, 1, doc["depth"])
}

func TestTransform_ComputedFieldWithoutParserFails(t *testing.T) {
	tr := newTransformer(t, nil, computed.NewRegistry())

	_, err := tr.Transform(context.Background(), homePage(), []config.SearchField{
		{Name: "depth", Type: config.FieldTypeInt, ParserType: computed.PathDepth},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, cmserrors.ErrTransform)
}

func TestTransform_IndexingHookCancels(t *testing.T) {
	// Given: a pre-hook that cancels everything and a post-hook
	tr := newTransformer(t, nil, nil)
	indexed := 0
	tr.Hooks().OnIndexing(func(ev *Event) bool {
		assert.Equal(t, true, ev.Document["IsContent"])
		return true
	})
	tr.Hooks().OnIndexed(func(*Event) { indexed++ })

	// When: transforming
	doc, err := tr.Transform(context.Background(), homePage(), nil)

	// Then: no document, no error, and the post-hook did not fire
	require.NoError(t, err)
	assert.Nil(t, doc)
	assert.Zero(t, indexed)
}

func TestTransform_HooksCanEditAndObserve(t *testing.T) {
	tr := newTransformer(t, nil, nil)
	tr.Hooks().OnIndexing(func(ev *Event) bool {
		ev.Document["Name"] = "Start"
		return false
	})
	var seen Document
	tr.Hooks().OnIndexed(func(ev *Event) { seen = ev.Document })

	doc, err := tr.Transform(context.Background(), homePage(), []config.SearchField{
		{Name: "title", Type: config.FieldTypeString},
	})
	require.NoError(t, err)

	assert.Equal(t, "Start", doc["Name"])
	require.NotNil(t, seen)
	assert.Equal(t, "Welcome", seen["title"])
}

func TestTransform_HookNilDocument(t *testing.T) {
	// Given: a pre-hook that clears the document without cancelling
	tr := newTransformer(t, nil, nil)
	tr.Hooks().OnIndexing(func(ev *Event) bool {
		ev.Document = nil
		return false
	})

	// When: transforming
	doc, err := tr.Transform(context.Background(), homePage(), []config.SearchField{
		{Name: "title", Type: config.FieldTypeString},
	})

	// Then: the built document is kept and completed
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "Welcome", doc["title"])
	assert.Equal(t, "/", doc["Url"])
	assert.Equal(t, true, doc["IsContent"])
}

func TestTransform_UnpublishedAndUnresolvableURL(t *testing.T) {
	// Given: an unpublished node
	tr := newTransformer(t, nil, nil)
	draft := homePage()
	draft.Published = false

	doc, err := tr.Transform(context.Background(), draft, nil)
	require.NoError(t, err)
	_, hasURL := doc["Url"]
	assert.False(t, hasURL)
	assert.Equal(t, false, doc["Published"])

	// Given: a CMS whose rendering context is down
	tr = newTransformer(t, &fakeCMS{urlErr: errors.New("no context")}, nil)

	// Then: the URL is left out and the document still builds
	doc, err = tr.Transform(context.Background(), homePage(), nil)
	require.NoError(t, err)
	_, hasURL = doc["Url"]
	assert.False(t, hasURL)
}

func TestTransform_UserLookupFailureIsTransformError(t *testing.T) {
	tr := newTransformer(t, &fakeCMS{userErr: errors.New("db down")}, nil)

	_, err := tr.Transform(context.Background(), homePage(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, cmserrors.ErrTransform)
}

func TestTransform_Media(t *testing.T) {
	tr := newTransformer(t, nil, nil)
	image := cms.ContentType{ID: 1032, Alias: "Image", Icon: "icon-picture"}

	tests := []struct {
		name string
		e    *cms.Entity
		want string
	}{
		{
			name: "image cropper json",
			e: &cms.Entity{ID: 1, Kind: cms.KindMedia, Path: "-1,1", ContentType: image,
				Properties: []*cms.Property{{Alias: cms.FilePropertyAlias, EditorAlias: cms.EditorImageCropper,
					Value: `{"src":"/media/1001/logo.png","crops":[]}`}}},
			want: "/media/1001/logo.png",
		},
		{
			name: "image cropper plain string",
			e: &cms.Entity{ID: 2, Kind: cms.KindMedia, Path: "-1,2", ContentType: image,
				Properties: []*cms.Property{{Alias: cms.FilePropertyAlias, EditorAlias: cms.EditorImageCropper,
					Value: "/media/1002/photo.jpg"}}},
			want: "/media/1002/photo.jpg",
		},
		{
			name: "upload field",
			e: &cms.Entity{ID: 3, Kind: cms.KindMedia, Path: "-1,3", ContentType: cms.ContentType{Alias: "File"},
				Properties: []*cms.Property{{Alias: cms.FilePropertyAlias, EditorAlias: cms.EditorUpload,
					Value: "/media/1003/doc.pdf"}}},
			want: "/media/1003/doc.pdf",
		},
		{
			name: "folder",
			e: &cms.Entity{ID: 4, Kind: cms.KindMedia, Path: "-1,4", ContentType: cms.ContentType{Alias: cms.FolderAlias},
				Properties: []*cms.Property{{Alias: cms.FilePropertyAlias, EditorAlias: cms.EditorUpload,
					Value: "/media/ignored"}}},
			want: "",
		},
		{
			name: "no file property",
			e:    &cms.Entity{ID: 5, Kind: cms.KindMedia, Path: "-1,5", ContentType: image},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := tr.Transform(context.Background(), tt.e, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc["Url"])
			assert.Equal(t, true, doc["IsMedia"])
			assert.Equal(t, false, doc["Published"])
			assert.Equal(t, tt.e.ContentType.Alias, doc["ContentTypeAlias"])
		})
	}
}

func TestTransform_Member(t *testing.T) {
	tr := newTransformer(t, nil, nil)
	member := &cms.Entity{
		ID: 1300, Kind: cms.KindMember, Name: "Jane Doe", Path: "-1,1300",
		ContentType: cms.ContentType{ID: 1044, Alias: "Member", Icon: "icon-user"},
		Email:       "jane@example.com",
	}

	doc, err := tr.Transform(context.Background(), member, nil)
	require.NoError(t, err)

	assert.Equal(t, true, doc["IsMember"])
	assert.Equal(t, "jane@example.com", doc["MemberEmail"])
	assert.Equal(t, "Member", doc["ContentTypeAlias"])
	assert.Equal(t, "icon-user", doc["Icon"])
	_, hasWriter := doc["WriterName"]
	assert.False(t, hasWriter)
}

func TestTransform_ConcurrentUse(t *testing.T) {
	tr := newTransformer(t, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := tr.Transform(context.Background(), homePage(), nil)
			assert.NoError(t, err)
			assert.Equal(t, "Home", doc["Name"])
		}()
	}
	wg.Wait()
}

type metadata struct {
	system []string
	user   []string
}

func (m *metadata) SystemPropertyNames(context.Context) ([]string, error) { return m.system, nil }
func (m *metadata) UserPropertyNames(context.Context) ([]string, error)   { return m.user, nil }
