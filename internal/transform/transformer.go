// Package transform converts CMS entities into search documents.
package transform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Aman-CERP/cmsindex/internal/cms"
	"github.com/Aman-CERP/cmsindex/internal/config"
	cmserrors "github.com/Aman-CERP/cmsindex/internal/errors"
	"github.com/Aman-CERP/cmsindex/internal/schema"
)

// CMS is the part of the CMS repository the transformer reads from.
type CMS interface {
	UserLookup
	PublishedURL(ctx context.Context, id int) (string, bool, error)
}

// FieldSource supplies the standard fields resolved for every document.
type FieldSource interface {
	StandardFields(ctx context.Context) ([]schema.FieldDescriptor, error)
}

// ComputedValues evaluates computed fields.
type ComputedValues interface {
	GetValue(field config.SearchField, entity *cms.Entity) (any, error)
}

// Dependencies contains the injected dependencies for Transformer.
type Dependencies struct {
	// CMS resolves user names and published URLs (required).
	CMS CMS

	// Fields supplies the standard schema fields (required).
	Fields FieldSource

	// Computed evaluates computed fields (required when any are configured).
	Computed ComputedValues

	// Hooks holds indexing subscribers. Optional.
	Hooks *Hooks

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Transformer builds documents. It is safe for concurrent use.
type Transformer struct {
	cms      CMS
	fields   FieldSource
	computed ComputedValues
	resolver *Resolver
	hooks    *Hooks
	logger   *slog.Logger
}

// NewTransformer creates a Transformer with injected dependencies.
func NewTransformer(deps Dependencies) (*Transformer, error) {
	if deps.CMS == nil {
		return nil, fmt.Errorf("cms is required")
	}
	if deps.Fields == nil {
		return nil, fmt.Errorf("field source is required")
	}

	hooks := deps.Hooks
	if hooks == nil {
		hooks = &Hooks{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Transformer{
		cms:      deps.CMS,
		fields:   deps.Fields,
		computed: deps.Computed,
		resolver: NewResolver(deps.CMS),
		hooks:    hooks,
		logger:   logger,
	}, nil
}

// Hooks returns the transformer's hook registry.
func (t *Transformer) Hooks() *Hooks {
	return t.hooks
}

// Transform builds the document for e. A nil document with a nil error means
// an indexing hook excluded the entity.
func (t *Transformer) Transform(ctx context.Context, e *cms.Entity, fields []config.SearchField) (Document, error) {
	standard, err := t.fields.StandardFields(ctx)
	if err != nil {
		return nil, err
	}

	doc := make(Document, len(standard)+len(fields)+4)

	for _, fd := range standard {
		raw, err := t.resolver.Resolve(ctx, e, fd.Name)
		if err != nil {
			return nil, cmserrors.TransformError(e.ID, fd.Name, err)
		}
		value, err := coerceStandard(fd.Type, raw)
		if err != nil {
			return nil, cmserrors.TransformError(e.ID, fd.Name, err)
		}
		if isBlank(value) {
			continue
		}
		doc[fd.Name] = value
	}

	doc["Is"+e.Kind.TypeName()] = true

	ev := &Event{Entity: e, Document: doc}
	if t.hooks.fireIndexing(ev) {
		t.logger.Debug("document_cancelled",
			slog.Int("entity_id", e.ID),
			slog.String("kind", e.Kind.String()))
		return nil, nil
	}
	if ev.Document != nil {
		doc = ev.Document
	}

	for _, f := range fields {
		if f.IsComputedField() {
			continue
		}
		value, err := propertyValue(e, f)
		if err != nil {
			return nil, cmserrors.TransformError(e.ID, f.Name, err)
		}
		if value != nil {
			doc[f.Name] = value
		}
	}

	for _, f := range fields {
		if !f.IsComputedField() {
			continue
		}
		if t.computed == nil {
			return nil, cmserrors.TransformError(e.ID, f.Name, fmt.Errorf("no computed field registry"))
		}
		value, err := t.computed.GetValue(f, e)
		if err != nil {
			return nil, cmserrors.TransformError(e.ID, f.Name, err)
		}
		doc[f.Name] = value
	}

	if err := t.enrich(ctx, e, doc); err != nil {
		return nil, cmserrors.TransformError(e.ID, "", err)
	}

	t.hooks.fireIndexed(&Event{Entity: e, Document: doc})
	return doc, nil
}

// enrich adds the kind-specific fields.
func (t *Transformer) enrich(ctx context.Context, e *cms.Entity, doc Document) error {
	switch e.Kind {
	case cms.KindContent:
		doc["Published"] = e.Published
		doc["WriterId"] = e.WriterID
		writer, err := t.cms.UserName(ctx, e.WriterID)
		if err != nil {
			return fmt.Errorf("writer name: %w", err)
		}
		if writer != "" {
			doc["WriterName"] = writer
		}
		doc["ContentTypeAlias"] = e.ContentType.Alias
		if e.Published {
			url, ok, err := t.cms.PublishedURL(ctx, e.ID)
			switch {
			case err != nil:
				t.logger.Warn("published_url_unavailable",
					slog.Int("entity_id", e.ID),
					slog.String("error", err.Error()))
			case ok:
				doc["Url"] = url
			}
		}
		if e.TemplateAlias != "" {
			doc["Template"] = e.TemplateAlias
		}
		doc["Icon"] = e.ContentType.Icon

	case cms.KindMedia:
		doc["Url"] = mediaURL(e)
		doc["ContentTypeAlias"] = e.ContentType.Alias
		doc["Icon"] = e.ContentType.Icon

	case cms.KindMember:
		doc["MemberEmail"] = e.Email
		doc["ContentTypeAlias"] = e.ContentType.Alias
		doc["Icon"] = e.ContentType.Icon
	}
	return nil
}

// coerceStandard applies the standard field type rules: strings are
// stringified, booleans default to false.
func coerceStandard(dt schema.DataType, raw any) (any, error) {
	switch dt {
	case schema.String:
		return stringify(raw), nil
	case schema.Boolean:
		return toBool(raw), nil
	case schema.Int32:
		if raw == nil {
			return nil, nil
		}
		return toInt(raw)
	case schema.DateTimeOffset:
		if raw == nil {
			return nil, nil
		}
		return toTime(raw)
	default:
		return raw, nil
	}
}

// propertyValue reads a configured, non-computed field from the entity's
// properties. Absent values become the type's default.
func propertyValue(e *cms.Entity, f config.SearchField) (any, error) {
	var raw any
	if e.HasProperty(f.Name) {
		raw = e.GetValue(f.Name)
	}

	fieldType := strings.ToLower(f.Type)
	if raw == nil {
		return defaultValue(fieldType), nil
	}

	switch fieldType {
	case config.FieldTypeCollection:
		s, _ := stringify(raw).(string)
		if s == "" {
			return []string{}, nil
		}
		return strings.Split(s, ","), nil
	case config.FieldTypeInt:
		return toInt(raw)
	case config.FieldTypeBool:
		return toBool(raw), nil
	case config.FieldTypeDate:
		return toTime(raw)
	default:
		s, _ := stringify(raw).(string)
		if f.IsGridJSON {
			return ExtractGridText(s), nil
		}
		return s, nil
	}
}

// defaultValue is assigned when a configured property has no value.
// Dates have no default and are left out.
func defaultValue(fieldType string) any {
	switch fieldType {
	case config.FieldTypeCollection:
		return []string{}
	case config.FieldTypeInt:
		return 0
	case config.FieldTypeBool:
		return false
	case config.FieldTypeDate:
		return nil
	default:
		return ""
	}
}
