package transform

import (
	"sync"

	"github.com/Aman-CERP/cmsindex/internal/cms"
)

// Document is a search document: field name to typed value.
type Document map[string]any

// ID returns the key field value as a string, or "" when unset.
func (d Document) ID() string {
	if v, ok := d["Id"].(string); ok {
		return v
	}
	return ""
}

// Event is passed to indexing hooks. Handlers may modify Document; a
// Document set to nil is ignored and the built document is kept.
type Event struct {
	Entity   *cms.Entity
	Document Document
}

// IndexingFunc runs before configured fields are added. Returning true
// excludes the entity from the batch.
type IndexingFunc func(*Event) bool

// IndexedFunc runs after the document is complete. It fires before the
// document is submitted, so it does not mean the document reached the index.
type IndexedFunc func(*Event)

// Hooks holds the indexing subscribers. The zero value is ready to use.
type Hooks struct {
	mu       sync.RWMutex
	indexing []IndexingFunc
	indexed  []IndexedFunc
}

// OnIndexing subscribes a cancellable pre-hook.
func (h *Hooks) OnIndexing(fn IndexingFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.indexing = append(h.indexing, fn)
}

// OnIndexed subscribes an informational post-hook.
func (h *Hooks) OnIndexed(fn IndexedFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.indexed = append(h.indexed, fn)
}

// fireIndexing runs every pre-hook and reports whether any cancelled.
func (h *Hooks) fireIndexing(ev *Event) bool {
	h.mu.RLock()
	subs := h.indexing
	h.mu.RUnlock()

	cancel := false
	for _, fn := range subs {
		if fn(ev) {
			cancel = true
		}
	}
	return cancel
}

func (h *Hooks) fireIndexed(ev *Event) {
	h.mu.RLock()
	subs := h.indexed
	h.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}
