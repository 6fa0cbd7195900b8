package cms

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeededRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := OpenSQLite(filepath.Join(t.TempDir(), "cms.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, Seed(context.Background(), repo))
	return repo
}

func TestSQLiteRepository_IDsByKind(t *testing.T) {
	// Given: the sample site
	repo := newSeededRepo(t)
	ctx := context.Background()

	// When: listing ids per kind
	content, err := repo.IDsByKind(ctx, KindContent)
	require.NoError(t, err)
	media, err := repo.IDsByKind(ctx, KindMedia)
	require.NoError(t, err)
	members, err := repo.IDsByKind(ctx, KindMember)
	require.NoError(t, err)

	// Then: each kind only returns its own nodes
	assert.Equal(t, []int{1100, 1101, 1102}, content)
	assert.Equal(t, []int{1200, 1201}, media)
	assert.Equal(t, []int{1300}, members)
}

func TestSQLiteRepository_EntitiesByIDs_AlignsAndLoadsProperties(t *testing.T) {
	// Given: the sample site
	repo := newSeededRepo(t)

	// When: loading a mix of existing and missing ids
	entities, err := repo.EntitiesByIDs(context.Background(), KindContent, []int{1101, 9999, 1100})
	require.NoError(t, err)

	// Then: results follow the requested order with nil for misses
	require.Len(t, entities, 3)
	require.NotNil(t, entities[0])
	assert.Nil(t, entities[1])
	require.NotNil(t, entities[2])

	about := entities[0]
	assert.Equal(t, "About", about.Name)
	assert.Equal(t, KindContent, about.Kind)
	assert.Equal(t, "-1,1100,1101", about.Path)
	assert.Equal(t, "page", about.ContentType.Alias)
	assert.True(t, about.Published)
	assert.Equal(t, "Page", about.TemplateAlias)
	assert.Equal(t, 2024, about.CreateDate.Year())
	assert.Equal(t, "About us", about.GetValue("title"))
	assert.Equal(t, EditorGrid, about.Property("bodyGrid").EditorAlias)

	assert.Equal(t, "news,events", entities[2].GetValue("tags"))
}

func TestSQLiteRepository_EntitiesByIDs_WrongKindIsMissing(t *testing.T) {
	repo := newSeededRepo(t)

	entities, err := repo.EntitiesByIDs(context.Background(), KindMedia, []int{1100})
	require.NoError(t, err)
	assert.Equal(t, []*Entity{nil}, entities)
}

func TestSQLiteRepository_EntitiesByIDs_Empty(t *testing.T) {
	repo := newSeededRepo(t)

	entities, err := repo.EntitiesByIDs(context.Background(), KindContent, nil)
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestSQLiteRepository_UserPropertyNames(t *testing.T) {
	repo := newSeededRepo(t)

	names, err := repo.UserPropertyNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"bodyGrid", "tags", "title", "umbracoBytes", "umbracoFile", "umbracoNaviHide"}, names)
}

func TestSQLiteRepository_UserName(t *testing.T) {
	repo := newSeededRepo(t)
	ctx := context.Background()

	name, err := repo.UserName(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "Administrator", name)

	name, err = repo.UserName(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestSQLiteRepository_PublishedURL(t *testing.T) {
	repo := newSeededRepo(t)
	ctx := context.Background()

	url, ok, err := repo.PublishedURL(ctx, 1101)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/about/", url)

	_, ok, err = repo.PublishedURL(ctx, 1102)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteRepository_InMemory(t *testing.T) {
	// Given: an in-memory database
	repo, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer repo.Close()

	// When: seeding it
	require.NoError(t, Seed(context.Background(), repo))

	// Then: the single connection keeps the data visible
	ids, err := repo.IDsByKind(context.Background(), KindMember)
	require.NoError(t, err)
	assert.Equal(t, []int{1300}, ids)
}

func TestSQLiteRepository_ClosedRejectsQueries(t *testing.T) {
	repo := newSeededRepo(t)
	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close())

	ctx := context.Background()
	_, err := repo.IDsByKind(ctx, KindContent)
	assert.ErrorContains(t, err, "repository is closed")
	_, err = repo.EntitiesByIDs(ctx, KindContent, []int{1100})
	assert.ErrorContains(t, err, "repository is closed")
	_, err = repo.UserPropertyNames(ctx)
	assert.ErrorContains(t, err, "repository is closed")
	_, err = repo.UserName(ctx, 0)
	assert.ErrorContains(t, err, "repository is closed")
	_, _, err = repo.PublishedURL(ctx, 1100)
	assert.ErrorContains(t, err, "repository is closed")
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mssql", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown cms driver")
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"content", KindContent},
		{"Media", KindMedia},
		{" member ", KindMember},
		{"members", KindMember},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseKind("users")
	assert.Error(t, err)
}

func TestKind_Names(t *testing.T) {
	assert.Equal(t, "content.json", KindContent.FileName())
	assert.Equal(t, "member.json", KindMember.FileName())
	assert.Equal(t, "Media", KindMedia.TypeName())
	assert.Equal(t, KindMedia, kindFromObjectType(KindMedia.ObjectType()))
}
