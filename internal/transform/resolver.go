package transform

import (
	"context"
	"strings"
	"sync"

	"github.com/Aman-CERP/cmsindex/internal/cms"
)

// UserLookup resolves backoffice user names.
type UserLookup interface {
	UserName(ctx context.Context, id int) (string, error)
}

// accessor reads one model field from an entity.
type accessor func(e *cms.Entity) any

// modelFields are the fields every entity kind exposes directly.
var modelFields = map[string]accessor{
	"Id":            func(e *cms.Entity) any { return e.ID },
	"Name":          func(e *cms.Entity) any { return e.Name },
	"Key":           func(e *cms.Entity) any { return e.Key },
	"Trashed":       func(e *cms.Entity) any { return e.Trashed },
	"Level":         func(e *cms.Entity) any { return e.Level },
	"SortOrder":     func(e *cms.Entity) any { return e.SortOrder },
	"ParentId":      func(e *cms.Entity) any { return e.ParentID },
	"CreatorId":     func(e *cms.Entity) any { return e.CreatorID },
	"ContentTypeId": func(e *cms.Entity) any { return e.ContentType.ID },
	"CreateDate":    func(e *cms.Entity) any { return e.CreateDate },
	"UpdateDate":    func(e *cms.Entity) any { return e.UpdateDate },
}

// kindFields extend modelFields per entity kind.
var kindFields = map[cms.Kind]map[string]accessor{
	cms.KindContent: {
		"Published": func(e *cms.Entity) any { return e.Published },
		"WriterId":  func(e *cms.Entity) any { return e.WriterID },
		"Template": func(e *cms.Entity) any {
			if e.TemplateAlias == "" {
				return nil
			}
			return e.TemplateAlias
		},
	},
	cms.KindMedia: {},
	cms.KindMember: {
		"Email":            func(e *cms.Entity) any { return e.Email },
		"ContentTypeAlias": func(e *cms.Entity) any { return e.ContentType.Alias },
	},
}

// Resolver extracts raw field values from entities. Accessor lookups are
// cached per entity kind, misses included, for the life of the Resolver.
type Resolver struct {
	users UserLookup

	mu    sync.RWMutex
	cache map[string]map[string]accessor
}

// NewResolver creates a resolver.
func NewResolver(users UserLookup) *Resolver {
	return &Resolver{
		users: users,
		cache: make(map[string]map[string]accessor),
	}
}

// Resolve returns the raw value of field on e, or nil when absent.
func (r *Resolver) Resolve(ctx context.Context, e *cms.Entity, field string) (any, error) {
	switch field {
	case "SearchablePath":
		return strings.TrimLeft(e.Path, "-"), nil
	case "Path":
		return strings.Split(e.Path, ","), nil
	case "CreatorName":
		return r.users.UserName(ctx, e.CreatorID)
	case "ParentID":
		return e.ParentID, nil
	}

	if get := r.accessor(e.Kind, field); get != nil {
		return get(e), nil
	}
	if e.HasProperty(field) {
		return e.GetValue(field), nil
	}
	return nil, nil
}

func (r *Resolver) accessor(kind cms.Kind, field string) accessor {
	typeName := kind.TypeName()

	r.mu.RLock()
	fields, ok := r.cache[typeName]
	var get accessor
	var cached bool
	if ok {
		get, cached = fields[field]
	}
	r.mu.RUnlock()
	if cached {
		return get
	}

	get = lookupAccessor(kind, field)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cache[typeName] == nil {
		r.cache[typeName] = make(map[string]accessor)
	}
	r.cache[typeName][field] = get
	return get
}

func lookupAccessor(kind cms.Kind, field string) accessor {
	if get, ok := kindFields[kind][field]; ok {
		return get
	}
	return modelFields[field]
}
