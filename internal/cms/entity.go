// Package cms models the CMS entities that are synchronized into the search
// index and defines the Repository collaborator that reads them.
package cms

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies the entity family a node belongs to.
type Kind int

const (
	KindContent Kind = iota
	KindMedia
	KindMember
)

// Node object type identifiers, as stored on each node row.
const (
	ObjectTypeDocument = "C66BA18E-EAF3-4CFF-8A22-41B16D66A972"
	ObjectTypeMedia    = "B796F64C-1F99-4FFB-B886-4BF4BC011A9C"
	ObjectTypeMember   = "39EB0F98-B348-42A1-8662-E7EB18487560"
)

// Property editor aliases with special handling.
const (
	EditorUpload       = "Umbraco.UploadField"
	EditorImageCropper = "Umbraco.ImageCropper"
	EditorGrid         = "Umbraco.Grid"
)

// FilePropertyAlias is the property holding a media item's file.
const FilePropertyAlias = "umbracoFile"

// FolderAlias is the media type that never carries a file.
const FolderAlias = "Folder"

// Kinds returns every entity kind in processing order.
func Kinds() []Kind {
	return []Kind{KindContent, KindMedia, KindMember}
}

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindContent:
		return "content"
	case KindMedia:
		return "media"
	case KindMember:
		return "member"
	default:
		return "unknown"
	}
}

// TypeName is the concrete entity type name used for kind flags and the
// accessor cache.
func (k Kind) TypeName() string {
	switch k {
	case KindContent:
		return "Content"
	case KindMedia:
		return "Media"
	case KindMember:
		return "Member"
	default:
		return "Unknown"
	}
}

// FileName is the session file the kind's id snapshot is stored in.
func (k Kind) FileName() string {
	return k.String() + ".json"
}

// ObjectType returns the node object type identifier for the kind.
func (k Kind) ObjectType() string {
	switch k {
	case KindMedia:
		return ObjectTypeMedia
	case KindMember:
		return ObjectTypeMember
	default:
		return ObjectTypeDocument
	}
}

// ParseKind parses "content", "media" or "member" (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "content", "document", "documents":
		return KindContent, nil
	case "media":
		return KindMedia, nil
	case "member", "members":
		return KindMember, nil
	default:
		return 0, fmt.Errorf("unknown entity kind %q (valid: content, media, member)", s)
	}
}

// ContentType describes the document/media/member type of an entity.
type ContentType struct {
	ID    int
	Alias string
	Icon  string
}

// Property is a user-defined property value on an entity.
type Property struct {
	Alias       string
	EditorAlias string
	// Value is nil when the property has no value.
	Value any
}

// Entity is a content, media or member node with its properties.
type Entity struct {
	ID          int
	Key         string
	Kind        Kind
	Name        string
	ParentID    int
	Level       int
	Path        string
	SortOrder   int
	Trashed     bool
	ContentType ContentType
	CreatorID   int
	WriterID    int
	CreateDate  time.Time
	UpdateDate  time.Time

	// Content only.
	Published     bool
	TemplateAlias string

	// Member only.
	Email string

	Properties []*Property
}

// Property returns the named property, or nil.
func (e *Entity) Property(alias string) *Property {
	for _, p := range e.Properties {
		if p.Alias == alias {
			return p
		}
	}
	return nil
}

// HasProperty reports whether the entity's type defines the property.
func (e *Entity) HasProperty(alias string) bool {
	return e.Property(alias) != nil
}

// GetValue returns the property value, or nil when absent.
func (e *Entity) GetValue(alias string) any {
	if p := e.Property(alias); p != nil {
		return p.Value
	}
	return nil
}
