package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// PageEvent describes one processed reindex page.
type PageEvent struct {
	Kind       string
	Page       int
	TotalPages int
	Processed  int
	Submitted  int
	Queued     int
	Finished   bool
	Message    string
	FailedKeys []string
}

// Summary is printed when a reindex command ends.
type Summary struct {
	SessionID string
	Pages     int
	Submitted int
	Failed    int
	Duration  time.Duration
}

// Reporter prints reindex progress, one line per page.
// It is safe for concurrent use by several kinds.
type Reporter struct {
	mu     sync.Mutex
	out    io.Writer
	styles Styles
}

// NewReporter creates a reporter; styling follows cfg.Colored().
func NewReporter(cfg Config) *Reporter {
	return &Reporter{
		out:    cfg.Output,
		styles: GetStyles(!cfg.Colored()),
	}
}

// Page prints a page line.
func (r *Reporter) Page(ev PageEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kind := r.styles.Kind.Render(fmt.Sprintf("[%s]", ev.Kind))
	if ev.Page == 0 {
		_, _ = fmt.Fprintf(r.out, "%s %d queued in %d pages\n", kind, ev.Queued, ev.TotalPages)
		return
	}

	line := fmt.Sprintf("%s page %d/%d - %d processed, %d sent, %d queued",
		kind, ev.Page, ev.TotalPages, ev.Processed, ev.Submitted, ev.Queued)
	if ev.Finished {
		line += " " + r.styles.Success.Render("done")
	}
	_, _ = fmt.Fprintln(r.out, line)

	if len(ev.FailedKeys) > 0 {
		_, _ = fmt.Fprintf(r.out, "%s %s: %s\n", r.styles.Warning.Render("WARN"), ev.Kind, ev.Message)
	}
}

// Warn prints a warning line.
func (r *Reporter) Warn(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.out, "%s %s\n", r.styles.Warning.Render("WARN"), fmt.Sprintf(format, args...))
}

// Complete prints the run summary.
func (r *Reporter) Complete(s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "%s %d documents in %d pages (%s)",
		r.styles.Header.Render("Complete:"), s.Submitted, s.Pages, s.Duration.Round(100*time.Millisecond))
	if s.Failed > 0 {
		fmt.Fprintf(&b, ", %s", r.styles.Error.Render(fmt.Sprintf("%d rejected", s.Failed)))
	}
	if s.SessionID != "" {
		fmt.Fprintf(&b, " %s", r.styles.Dim.Render("session "+s.SessionID))
	}
	_, _ = fmt.Fprintln(r.out, b.String())
}
