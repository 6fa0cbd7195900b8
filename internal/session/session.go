// Package session persists the id snapshots of reindex runs.
// A session is a directory holding one JSON integer array per entity kind,
// addressed by (session id, file name).
package session

import (
	"fmt"
	"regexp"
	"time"
)

// maxSessionIDLength is the maximum allowed session id length.
const maxSessionIDLength = 64

// validSessionIDPattern matches alphanumeric, hyphen, and underscore.
var validSessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateSessionID validates a session id.
// Valid ids contain only letters, numbers, hyphens, and underscores, so an id
// can never escape the storage root.
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if len(id) > maxSessionIDLength {
		return fmt.Errorf("session id too long (max %d chars)", maxSessionIDLength)
	}
	if !validSessionIDPattern.MatchString(id) {
		return fmt.Errorf("session id can only contain letters, numbers, hyphens, and underscores")
	}
	return nil
}

// Info summarizes a stored session for listing.
type Info struct {
	// ID is the session identifier.
	ID string

	// Files are the id snapshot files present, e.g. content.json.
	Files []string

	// UpdatedAt is the newest file modification time.
	UpdatedAt time.Time

	// Size is the total size of the snapshot files in bytes.
	Size int64
}

// IsStale returns true if the session hasn't been written within maxAge.
func (i *Info) IsStale(maxAge time.Duration) bool {
	return time.Since(i.UpdatedAt) > maxAge
}
