// Package schema derives the search index field schema from the fixed
// standard fields, the CMS property names and the configured search fields.
package schema

import (
	"strings"

	"github.com/Aman-CERP/cmsindex/internal/config"
)

// DataType is the index-side type of a field.
type DataType string

const (
	String         DataType = "Edm.String"
	Boolean        DataType = "Edm.Boolean"
	Int32          DataType = "Edm.Int32"
	DateTimeOffset DataType = "Edm.DateTimeOffset"
	Collection     DataType = "Collection(Edm.String)"
)

// KeywordAnalyzer treats the entire value of a field as a single token.
const KeywordAnalyzer = "keyword"

// KeyField is the name of the identity field.
const KeyField = "Id"

// FieldDescriptor describes one field of the index.
type FieldDescriptor struct {
	Name        string   `json:"name"`
	Type        DataType `json:"type"`
	Key         bool     `json:"key,omitempty"`
	Searchable  bool     `json:"searchable,omitempty"`
	Filterable  bool     `json:"filterable,omitempty"`
	Sortable    bool     `json:"sortable,omitempty"`
	Facetable   bool     `json:"facetable,omitempty"`
	Retrievable bool     `json:"retrievable,omitempty"`
	Analyzer    string   `json:"analyzer,omitempty"`
}

// DataTypeFor maps a configured field type to its index data type.
func DataTypeFor(fieldType string) DataType {
	switch strings.ToLower(fieldType) {
	case config.FieldTypeCollection:
		return Collection
	case config.FieldTypeInt:
		return Int32
	case config.FieldTypeBool:
		return Boolean
	case config.FieldTypeDate:
		return DateTimeOffset
	default:
		return String
	}
}

// FromSearchField translates a configured search field into a descriptor.
func FromSearchField(f config.SearchField) FieldDescriptor {
	return FieldDescriptor{
		Name:        f.Name,
		Type:        DataTypeFor(f.Type),
		Searchable:  f.IsSearchable,
		Filterable:  f.IsFilterable,
		Sortable:    f.IsSortable,
		Facetable:   f.IsFacetable,
		Retrievable: f.Retrievable(),
		Analyzer:    f.Analyzer,
	}
}

// standardFields is the fixed part of every schema. Id is a string because
// the index requires a string key.
var standardFields = []FieldDescriptor{
	{Name: "Id", Type: String, Key: true, Filterable: true, Sortable: true, Retrievable: true},
	{Name: "Name", Type: String, Filterable: true, Sortable: true, Searchable: true, Retrievable: true},
	{Name: "Key", Type: String, Searchable: true, Retrievable: true},

	{Name: "Url", Type: String, Searchable: true, Retrievable: true},
	{Name: "MemberEmail", Type: String, Searchable: true, Retrievable: true},

	{Name: "IsContent", Type: Boolean, Filterable: true, Facetable: true, Retrievable: true},
	{Name: "IsMedia", Type: Boolean, Filterable: true, Facetable: true, Retrievable: true},
	{Name: "IsMember", Type: Boolean, Filterable: true, Facetable: true, Retrievable: true},

	{Name: "Published", Type: Boolean, Filterable: true, Facetable: true, Retrievable: true},
	{Name: "Trashed", Type: Boolean, Filterable: true, Facetable: true, Retrievable: true},

	{Name: "SearchablePath", Type: String, Searchable: true, Filterable: true, Retrievable: true},
	{Name: "Path", Type: Collection, Searchable: true, Filterable: true, Retrievable: true},
	{Name: "Template", Type: String, Searchable: true, Facetable: true, Retrievable: true},
	{Name: "Icon", Type: String, Searchable: true, Facetable: true, Retrievable: true},

	{Name: "ContentTypeAlias", Type: String, Searchable: true, Facetable: true, Filterable: true, Retrievable: true},

	{Name: "UpdateDate", Type: DateTimeOffset, Filterable: true, Sortable: true, Retrievable: true},
	{Name: "CreateDate", Type: DateTimeOffset, Filterable: true, Sortable: true, Retrievable: true},

	{Name: "ContentTypeId", Type: Int32, Filterable: true, Retrievable: true},
	{Name: "ParentID", Type: String, Filterable: true, Searchable: true, Retrievable: true},
	{Name: "Level", Type: Int32, Sortable: true, Facetable: true, Retrievable: true},
	{Name: "SortOrder", Type: Int32, Sortable: true, Retrievable: true},

	{Name: "WriterId", Type: Int32, Sortable: true, Facetable: true, Retrievable: true},
	{Name: "CreatorId", Type: Int32, Sortable: true, Facetable: true, Retrievable: true},
	{Name: "WriterName", Type: String, Sortable: true, Facetable: true, Retrievable: true},
	{Name: "CreatorName", Type: String, Sortable: true, Facetable: true, Retrievable: true},
}

// FixedFields returns a copy of the hard-coded descriptors in declaration order.
func FixedFields() []FieldDescriptor {
	out := make([]FieldDescriptor, len(standardFields))
	copy(out, standardFields)
	return out
}

// propertyField is the descriptor given to CMS-reported property names.
func propertyField(name string) FieldDescriptor {
	return FieldDescriptor{
		Name:        name,
		Type:        String,
		Filterable:  true,
		Searchable:  true,
		Retrievable: true,
		Analyzer:    KeywordAnalyzer,
	}
}
