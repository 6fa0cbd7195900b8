package ui

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReporter_Probe(t *testing.T) {
	// Given: a reporter writing to a buffer
	buf := &bytes.Buffer{}
	r := NewReporter(NewConfig(buf))

	// When: reporting a probe
	r.Page(PageEvent{Kind: "content", Page: 0, TotalPages: 3, Queued: 2500})

	// Then: the queued count is shown
	assert.Equal(t, "[content] 2500 queued in 3 pages\n", buf.String())
}

func TestReporter_PageLines(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewReporter(NewConfig(buf))

	r.Page(PageEvent{Kind: "media", Page: 1, TotalPages: 2, Processed: 999, Submitted: 998, Queued: 1})
	r.Page(PageEvent{Kind: "media", Page: 2, TotalPages: 2, Processed: 1, Submitted: 1, Finished: true})

	out := buf.String()
	assert.Contains(t, out, "[media] page 1/2 - 999 processed, 998 sent, 1 queued\n")
	assert.Contains(t, out, "[media] page 2/2 - 1 processed, 1 sent, 0 queued done\n")
}

func TestReporter_FailedKeysWarn(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewReporter(NewConfig(buf))

	r.Page(PageEvent{
		Kind: "content", Page: 1, TotalPages: 1, Processed: 2, Submitted: 2,
		Message:    "Failed to index some of the documents: 7",
		FailedKeys: []string{"7"},
	})

	assert.Contains(t, buf.String(), "WARN content: Failed to index some of the documents: 7")
}

func TestReporter_NoANSIWhenNotTerminal(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewReporter(NewConfig(buf))

	r.Page(PageEvent{Kind: "member", Page: 1, TotalPages: 1, Finished: true})
	r.Warn("session %s recomputed", "abc")
	r.Complete(Summary{SessionID: "abc", Pages: 1, Submitted: 3, Failed: 1, Duration: time.Second})

	out := buf.String()
	assert.NotContains(t, out, "\x1b[")
	assert.Contains(t, out, "WARN session abc recomputed")
	assert.Contains(t, out, "Complete: 3 documents in 1 pages (1s), 1 rejected session abc")
}

func TestReporter_ConcurrentKinds(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewReporter(NewConfig(buf))

	var wg sync.WaitGroup
	for _, kind := range []string{"content", "media", "member"} {
		wg.Add(1)
		go func(kind string) {
			defer wg.Done()
			for p := 1; p <= 10; p++ {
				r.Page(PageEvent{Kind: kind, Page: p, TotalPages: 10})
			}
		}(kind)
	}
	wg.Wait()

	assert.Equal(t, 30, bytes.Count(buf.Bytes(), []byte("\n")))
}
