package schema

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Aman-CERP/cmsindex/internal/config"
	cmserrors "github.com/Aman-CERP/cmsindex/internal/errors"
)

// DefaultTTL is how long a built schema is served from cache.
const DefaultTTL = 5 * time.Minute

// SystemPrefix marks user property names that are CMS conventions
// (umbracoWidth, umbracoBytes, umbracoNaviHide...).
const SystemPrefix = "umbraco"

const (
	cacheKeyStandard = "standard"
	cacheKeyFull     = "full"
)

// MetadataSource reports the property names defined in the CMS.
type MetadataSource interface {
	SystemPropertyNames(ctx context.Context) ([]string, error)
	UserPropertyNames(ctx context.Context) ([]string, error)
}

// Builder derives and caches the index schema.
// The cache is owned by the Builder and lives as long as it does.
type Builder struct {
	source MetadataSource
	custom []config.SearchField
	cache  *expirable.LRU[string, []FieldDescriptor]
	logger *slog.Logger
	ttl    time.Duration
}

// Option configures a Builder.
type Option func(*Builder)

// WithTTL overrides the cache expiry.
func WithTTL(ttl time.Duration) Option {
	return func(b *Builder) {
		b.ttl = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder creates a schema builder over the CMS metadata source and the
// configured search fields.
func NewBuilder(source MetadataSource, custom []config.SearchField, opts ...Option) *Builder {
	b := &Builder{
		source: source,
		custom: custom,
		logger: slog.Default(),
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.cache = expirable.NewLRU[string, []FieldDescriptor](2, nil, b.ttl)
	return b
}

// StandardFields returns the fixed fields plus the CMS-reported system and
// umbraco-prefixed property fields. These are the fields resolved for every
// document.
func (b *Builder) StandardFields(ctx context.Context) ([]FieldDescriptor, error) {
	if fields, ok := b.cache.Get(cacheKeyStandard); ok {
		return clone(fields), nil
	}
	fields, err := b.buildStandard(ctx)
	if err != nil {
		return nil, err
	}
	b.cache.Add(cacheKeyStandard, fields)
	return clone(fields), nil
}

// BuildSchema returns the complete schema: standard fields plus configured
// fields, sorted by name with the key field first.
func (b *Builder) BuildSchema(ctx context.Context) ([]FieldDescriptor, error) {
	if fields, ok := b.cache.Get(cacheKeyFull); ok {
		return clone(fields), nil
	}
	standard, err := b.StandardFields(ctx)
	if err != nil {
		return nil, err
	}
	fields := b.withCustom(standard)
	b.cache.Add(cacheKeyFull, fields)
	return clone(fields), nil
}

// Live rebuilds the schema from the CMS, bypassing and refreshing the cache.
func (b *Builder) Live(ctx context.Context) ([]FieldDescriptor, error) {
	b.Invalidate()
	return b.BuildSchema(ctx)
}

// Invalidate drops every cached schema.
func (b *Builder) Invalidate() {
	b.cache.Purge()
}

func (b *Builder) buildStandard(ctx context.Context) ([]FieldDescriptor, error) {
	fields := FixedFields()
	existing := make(map[string]bool, len(fields))
	for _, f := range fields {
		existing[strings.ToLower(f.Name)] = true
	}

	systemNames, err := b.source.SystemPropertyNames(ctx)
	if err != nil {
		return nil, cmserrors.SchemaBuildError("failed to read system property names", err)
	}
	for _, name := range systemNames {
		if existing[strings.ToLower(name)] {
			continue
		}
		existing[strings.ToLower(name)] = true
		fields = append(fields, propertyField(name))
	}

	userNames, err := b.source.UserPropertyNames(ctx)
	if err != nil {
		return nil, cmserrors.SchemaBuildError("failed to read user property names", err)
	}
	for _, name := range userNames {
		if !strings.HasPrefix(name, SystemPrefix) || existing[strings.ToLower(name)] {
			continue
		}
		existing[strings.ToLower(name)] = true
		fields = append(fields, propertyField(name))
	}

	sortKeyFirst(fields)

	b.logger.Debug("schema_built",
		slog.Int("fields", len(fields)),
		slog.Int("system_properties", len(systemNames)),
		slog.Int("user_properties", len(userNames)))

	return fields, nil
}

func (b *Builder) withCustom(standard []FieldDescriptor) []FieldDescriptor {
	fields := make([]FieldDescriptor, 0, len(standard)+len(b.custom))
	fields = append(fields, standard...)

	existing := make(map[string]bool, len(fields))
	for _, f := range fields {
		existing[strings.ToLower(f.Name)] = true
	}
	for _, sf := range b.custom {
		if existing[strings.ToLower(sf.Name)] {
			b.logger.Warn("schema_field_shadowed", slog.String("field", sf.Name))
			continue
		}
		existing[strings.ToLower(sf.Name)] = true
		fields = append(fields, FromSearchField(sf))
	}

	sortKeyFirst(fields)
	return fields
}

// sortKeyFirst orders fields case-insensitively by name and moves the key
// field to index 0.
func sortKeyFirst(fields []FieldDescriptor) {
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].Key != fields[j].Key {
			return fields[i].Key
		}
		a, b := strings.ToLower(fields[i].Name), strings.ToLower(fields[j].Name)
		if a != b {
			return a < b
		}
		return fields[i].Name < fields[j].Name
	})
}

func clone(fields []FieldDescriptor) []FieldDescriptor {
	out := make([]FieldDescriptor, len(fields))
	copy(out, fields)
	return out
}
