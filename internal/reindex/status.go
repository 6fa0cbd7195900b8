package reindex

import (
	"github.com/Aman-CERP/cmsindex/internal/cms"
)

// MessageDone is reported once a kind has no pages left.
const MessageDone = "Done"

// Status reports the outcome of one page request.
type Status struct {
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`

	// Queued counts. Only the one for the requested kind is set.
	DocumentsQueued int `json:"documents_queued"`
	MediaQueued     int `json:"media_queued"`
	MembersQueued   int `json:"members_queued"`

	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`

	// Processed is the number of ids in the page slice.
	Processed int `json:"processed"`

	// Submitted is the number of documents sent after hook cancellations.
	Submitted int `json:"submitted"`

	Finished   bool     `json:"finished"`
	Error      bool     `json:"error"`
	Message    string   `json:"message,omitempty"`
	FailedKeys []string `json:"failed_keys,omitempty"`
}

// Queued returns the queued count for the status kind.
func (s *Status) Queued() int {
	return s.DocumentsQueued + s.MediaQueued + s.MembersQueued
}

func (s *Status) setQueued(kind cms.Kind, n int) {
	switch kind {
	case cms.KindContent:
		s.DocumentsQueued = n
	case cms.KindMedia:
		s.MediaQueued = n
	case cms.KindMember:
		s.MembersQueued = n
	}
}

// queuedCount is the number of ids left after page has been processed.
// A probe (page 0) reports the whole list.
func queuedCount(total, batchSize, page int) int {
	if page == 0 {
		return total
	}
	queued := total - batchSize*page
	if queued < 0 {
		return 0
	}
	return queued
}

// pageCount is ceil(total / batchSize).
func pageCount(total, batchSize int) int {
	if total <= 0 {
		return 0
	}
	return (total + batchSize - 1) / batchSize
}

// pageBounds returns the half-open slice range of a 1-based page.
func pageBounds(total, batchSize, page int) (int, int) {
	start := (page - 1) * batchSize
	if start >= total {
		return total, total
	}
	end := start + batchSize
	if end > total {
		end = total
	}
	return start, end
}
