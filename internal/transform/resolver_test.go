package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/cmsindex/internal/cms"
)

func TestResolver_SpecialFields(t *testing.T) {
	r := NewResolver(&fakeCMS{users: map[int]string{3: "Writer"}})
	e := &cms.Entity{ID: 5, Kind: cms.KindContent, Path: "-1,10,5", ParentID: 10, CreatorID: 3}
	ctx := context.Background()

	tests := []struct {
		field string
		want  any
	}{
		{"SearchablePath", "1,10,5"},
		{"Path", []string{"-1", "10", "5"}},
		{"CreatorName", "Writer"},
		{"ParentID", 10},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, err := r.Resolve(ctx, e, tt.field)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_KindSpecificAccessors(t *testing.T) {
	r := NewResolver(&fakeCMS{})
	ctx := context.Background()

	content := &cms.Entity{Kind: cms.KindContent, Published: true, Email: "ignored@example.com"}
	member := &cms.Entity{Kind: cms.KindMember, Email: "m@example.com", Published: true}

	v, err := r.Resolve(ctx, content, "Published")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = r.Resolve(ctx, member, "Published")
	require.NoError(t, err)
	assert.Nil(t, v, "members have no published flag")

	v, err = r.Resolve(ctx, member, "Email")
	require.NoError(t, err)
	assert.Equal(t, "m@example.com", v)

	v, err = r.Resolve(ctx, content, "Email")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestResolver_PropertyFallbackAndMisses(t *testing.T) {
	// Given: a field that is neither a model field nor a property
	r := NewResolver(&fakeCMS{})
	e := &cms.Entity{Kind: cms.KindMedia, Properties: []*cms.Property{
		{Alias: "umbracoBytes", Value: "2048"},
	}}
	ctx := context.Background()

	// When: resolving both
	bytes, err := r.Resolve(ctx, e, "umbracoBytes")
	require.NoError(t, err)
	missing, err := r.Resolve(ctx, e, "umbracoWidth")
	require.NoError(t, err)

	// Then: the property is found and the miss is explicit nil
	assert.Equal(t, "2048", bytes)
	assert.Nil(t, missing)

	// Then: both lookups are cached for the kind, misses included
	r.mu.RLock()
	defer r.mu.RUnlock()
	media := r.cache[cms.KindMedia.TypeName()]
	require.Len(t, media, 2)
	assert.Nil(t, media["umbracoBytes"])
	_, cached := media["umbracoWidth"]
	assert.True(t, cached)
}

func TestResolver_TemplateBlankIsAbsent(t *testing.T) {
	r := NewResolver(&fakeCMS{})

	v, err := r.Resolve(context.Background(), &cms.Entity{Kind: cms.KindContent}, "Template")
	require.NoError(t, err)
	assert.Nil(t, v)
}
