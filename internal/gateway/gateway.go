// Package gateway submits documents to the search engine and administers
// its indexes.
package gateway

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Aman-CERP/cmsindex/internal/config"
	"github.com/Aman-CERP/cmsindex/internal/schema"
	"github.com/Aman-CERP/cmsindex/internal/transform"
)

// BatchResult reports the outcome of a batch submission. Rejected documents
// make Success false without failing the call.
type BatchResult struct {
	Success    bool
	Message    string
	FailedKeys []string
}

// Gateway pushes documents into a named index.
type Gateway interface {
	SubmitBatch(ctx context.Context, indexName string, docs []transform.Document) (*BatchResult, error)
	DeleteByID(ctx context.Context, indexName, id string) error
}

// Admin manages index definitions.
type Admin interface {
	ListIndexes(ctx context.Context) ([]string, error)
	DeleteIndex(ctx context.Context, name string) error
	CreateIndex(ctx context.Context, def Definition) error
}

// Definition describes an index to create.
type Definition struct {
	Name            string                   `json:"name"`
	Fields          []schema.FieldDescriptor `json:"fields"`
	ScoringProfiles []config.ScoringProfile  `json:"scoring_profiles,omitempty"`
	Analyzers       []config.Analyzer        `json:"analyzers,omitempty"`
}

// KeyField returns the name of the key field, or "".
func (d Definition) KeyField() string {
	for _, f := range d.Fields {
		if f.Key {
			return f.Name
		}
	}
	return ""
}

// Validate checks the definition can be created.
func (d Definition) Validate() error {
	if err := ValidateIndexName(d.Name); err != nil {
		return err
	}
	keys := 0
	seen := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if f.Key {
			keys++
			if f.Type != schema.String {
				return fmt.Errorf("key field %s must be a string", f.Name)
			}
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field %s", f.Name)
		}
		seen[f.Name] = true
	}
	if keys != 1 {
		return fmt.Errorf("index %s must have exactly one key field, has %d", d.Name, keys)
	}
	return nil
}

// maxIndexNameLength is the maximum allowed index name length.
const maxIndexNameLength = 128

var validIndexNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidateIndexName checks an index name: lowercase letters, digits,
// hyphens and underscores.
func ValidateIndexName(name string) error {
	if name == "" {
		return fmt.Errorf("index name cannot be empty")
	}
	if len(name) > maxIndexNameLength {
		return fmt.Errorf("index name too long (max %d chars)", maxIndexNameLength)
	}
	if !validIndexNamePattern.MatchString(name) {
		return fmt.Errorf("index name %q can only contain lowercase letters, numbers, hyphens, and underscores", name)
	}
	return nil
}

// failureMessage formats the message for rejected documents.
func failureMessage(keys []string) string {
	return "Failed to index some of the documents: " + strings.Join(keys, ", ")
}
