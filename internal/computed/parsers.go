// Package computed holds the computed-field parsers: pluggable functions
// that produce a document value from a CMS entity.
package computed

import (
	"strings"

	"github.com/Aman-CERP/cmsindex/internal/cms"
)

// Parser produces the value of a computed field. Parsers own the typing of
// their result; the value is stored in the document as returned.
type Parser interface {
	GetValue(entity *cms.Entity) any
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(entity *cms.Entity) any

// GetValue implements Parser.
func (f ParserFunc) GetValue(entity *cms.Entity) any {
	return f(entity)
}

// Factory constructs a parser instance. It returns any so that Register can
// check the instance actually satisfies Parser.
type Factory func() any

// Built-in parser type identifiers.
const (
	NameLower     = "name-lower"
	PathDepth     = "path-depth"
	CreatedYear   = "created-year"
	PropertyCount = "property-count"
)

// Factories returns the built-in factory table keyed by parser type.
func Factories() map[string]Factory {
	return map[string]Factory{
		NameLower:     func() any { return ParserFunc(nameLower) },
		PathDepth:     func() any { return ParserFunc(pathDepth) },
		CreatedYear:   func() any { return ParserFunc(createdYear) },
		PropertyCount: func() any { return ParserFunc(propertyCount) },
	}
}

func nameLower(e *cms.Entity) any {
	return strings.ToLower(e.Name)
}

// pathDepth counts the ancestors-and-self segments, ignoring the -1 root.
func pathDepth(e *cms.Entity) any {
	depth := 0
	for _, seg := range strings.Split(e.Path, ",") {
		seg = strings.TrimSpace(seg)
		if seg == "" || seg == "-1" {
			continue
		}
		depth++
	}
	return depth
}

func createdYear(e *cms.Entity) any {
	if e.CreateDate.IsZero() {
		return nil
	}
	return e.CreateDate.Year()
}

func propertyCount(e *cms.Entity) any {
	n := 0
	for _, p := range e.Properties {
		if p != nil && p.Value != nil {
			n++
		}
	}
	return n
}
