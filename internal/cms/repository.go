package cms

import (
	"context"
	"fmt"
	"strings"
)

// Repository reads entities and metadata from the CMS.
// Implementations must be safe for concurrent use.
type Repository interface {
	// IDsByKind returns the ids of every node of the kind.
	IDsByKind(ctx context.Context, kind Kind) ([]int, error)

	// EntitiesByIDs loads entities aligned with ids; missing ids yield nil.
	EntitiesByIDs(ctx context.Context, kind Kind, ids []int) ([]*Entity, error)

	// SystemPropertyNames returns the built-in node property names.
	SystemPropertyNames(ctx context.Context) ([]string, error)

	// UserPropertyNames returns every property alias defined on any type.
	UserPropertyNames(ctx context.Context) ([]string, error)

	// UserName returns a backoffice user's display name, "" when unknown.
	UserName(ctx context.Context, id int) (string, error)

	// PublishedURL returns the front-end URL of published content.
	// ok is false when no live rendering exists for the node.
	PublishedURL(ctx context.Context, id int) (url string, ok bool, err error)

	// Close releases the underlying connection.
	Close() error
}

// systemPropertyNames are the node fields every entity exposes.
var systemPropertyNames = []string{
	"id", "key", "version", "parentID", "level", "writerID", "creatorID",
	"nodeType", "template", "sortOrder", "createDate", "updateDate",
	"nodeName", "urlName", "writerName", "creatorName", "nodeTypeAlias", "path",
}

// SystemPropertyNames returns a copy of the built-in node property names.
func SystemPropertyNames() []string {
	out := make([]string, len(systemPropertyNames))
	copy(out, systemPropertyNames)
	return out
}

// Open connects to a CMS database using the named driver.
func Open(ctx context.Context, driver, dsn string) (Repository, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "":
		return OpenSQLite(dsn)
	case "postgres", "postgresql":
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown cms driver: %s (valid options: sqlite, postgres)", driver)
	}
}

// alignByID orders loaded entities to match ids, leaving nil for misses.
func alignByID(ids []int, loaded map[int]*Entity) []*Entity {
	out := make([]*Entity, len(ids))
	for i, id := range ids {
		out[i] = loaded[id]
	}
	return out
}

func kindFromObjectType(objectType string) Kind {
	switch strings.ToUpper(objectType) {
	case ObjectTypeMedia:
		return KindMedia
	case ObjectTypeMember:
		return KindMember
	default:
		return KindContent
	}
}
