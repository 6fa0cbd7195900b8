package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// SessionInfo is one stored reindex session.
type SessionInfo struct {
	ID        string    `json:"id"`
	Files     []string  `json:"files"`
	UpdatedAt time.Time `json:"updated_at"`
	Size      int64     `json:"size"`
	Stale     bool      `json:"stale"`
}

// StatusInfo summarizes the index and pending sessions.
type StatusInfo struct {
	IndexName string        `json:"index_name"`
	Exists    bool          `json:"exists"`
	Documents uint64        `json:"documents"`
	Fields    int           `json:"fields"`
	CMSDriver string        `json:"cms_driver"`
	Sessions  []SessionInfo `json:"sessions"`
}

// StatusRenderer displays index status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer. Styling is dropped when out
// is not a terminal.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	cfg := NewConfig(out, WithNoColor(noColor))
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(!cfg.Colored()),
	}
}

// Render displays status info to terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Index Status: "+info.IndexName))

	if !info.Exists {
		_, _ = fmt.Fprintf(r.out, "  Index:     %s\n", r.styles.Warning.Render("missing"))
	} else {
		_, _ = fmt.Fprintf(r.out, "  Index:     %s\n", r.styles.Success.Render("ready"))
		_, _ = fmt.Fprintf(r.out, "  Documents: %d\n", info.Documents)
		_, _ = fmt.Fprintf(r.out, "  Fields:    %d\n", info.Fields)
	}
	_, _ = fmt.Fprintf(r.out, "  CMS:       %s\n", info.CMSDriver)
	_, _ = fmt.Fprintln(r.out)

	return r.RenderSessions(info.Sessions)
}

// RenderSessions lists sessions, newest first as given.
func (r *StatusRenderer) RenderSessions(sessions []SessionInfo) error {
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(r.out, "  No reindex sessions in progress.")
		return nil
	}
	_, _ = fmt.Fprintln(r.out, "  Sessions:")
	for _, s := range sessions {
		line := fmt.Sprintf("    %-36s %v %8s  %s", s.ID, s.Files, FormatBytes(s.Size), formatTime(s.UpdatedAt))
		if s.Stale {
			line += " " + r.styles.Warning.Render("(stale)")
		}
		_, _ = fmt.Fprintln(r.out, line)
	}
	return nil
}

// RenderJSON outputs v as indented JSON.
func (r *StatusRenderer) RenderJSON(v any) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// formatTime formats a time for display.
func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
