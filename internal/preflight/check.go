package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Aman-CERP/cmsindex/internal/cms"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the status as its name in JSON output.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// IDSource is the CMS query used to prove connectivity.
type IDSource interface {
	IDsByKind(ctx context.Context, kind cms.Kind) ([]int, error)
}

// IndexLister lists the indexes of the search backend.
type IndexLister interface {
	ListIndexes(ctx context.Context) ([]string, error)
}

// Targets are the resources RunAll inspects. Nil collaborators and empty
// paths skip their checks.
type Targets struct {
	CMS          IDSource
	Indexes      IndexLister
	IndexName    string
	IndexPath    string
	SessionsPath string
}

// Checker performs preflight validation checks.
type Checker struct {
	verbose bool
	output  io.Writer
}

// Option configures a Checker.
type Option func(*Checker)

// WithVerbose enables verbose output.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) {
		c.verbose = verbose
	}
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) {
		c.output = w
	}
}

// New creates a new Checker with the given options.
func New(opts ...Option) *Checker {
	c := &Checker{
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every applicable check and returns the results.
func (c *Checker) RunAll(ctx context.Context, t Targets) []CheckResult {
	var results []CheckResult

	if t.CMS != nil {
		results = append(results, c.CheckCMS(ctx, t.CMS))
	}
	if t.IndexPath != "" {
		results = append(results, c.CheckWritePermissions("index_storage", t.IndexPath))
		results = append(results, c.CheckDiskSpace(t.IndexPath))
	} else {
		results = append(results, CheckResult{
			Name:    "index_storage",
			Status:  StatusWarn,
			Message: "index.path is empty, indexes are kept in memory",
		})
	}
	if t.SessionsPath != "" {
		results = append(results, c.CheckWritePermissions("session_storage", t.SessionsPath))
	}
	results = append(results, c.CheckFileDescriptors())
	if t.Indexes != nil {
		results = append(results, c.CheckIndex(ctx, t.Indexes, t.IndexName))
	}

	return results
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns a summary status string for the results.
func (c *Checker) SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	hasCriticalFailure := false

	for _, r := range results {
		if r.IsCritical() {
			hasCriticalFailure = true
		}
		if r.Status == StatusWarn || (r.Status == StatusFail && !r.Required) {
			hasWarnings = true
		}
	}

	if hasCriticalFailure {
		return "failed"
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults prints check results to the configured output.
func (c *Checker) PrintResults(results []CheckResult) {
	_, _ = fmt.Fprintln(c.output, "cmsindex System Check")
	_, _ = fmt.Fprintln(c.output, "=====================")
	_, _ = fmt.Fprintln(c.output)

	for _, r := range results {
		_, _ = fmt.Fprintf(c.output, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(c.output, "      %s\n", r.Details)
		}
	}

	_, _ = fmt.Fprintln(c.output)
	_, _ = fmt.Fprintf(c.output, "Status: %s\n", strings.ToUpper(c.SummaryStatus(results)))

	var warnings, errors []string
	for _, r := range results {
		if r.IsCritical() {
			errors = append(errors, r.Name+": "+r.Message)
		} else if r.Status != StatusPass {
			warnings = append(warnings, r.Name+": "+r.Message)
		}
	}

	if len(errors) > 0 {
		_, _ = fmt.Fprintf(c.output, "\n%d error(s):\n", len(errors))
		for _, e := range errors {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", e)
		}
	}
	if len(warnings) > 0 {
		_, _ = fmt.Fprintf(c.output, "\n%d warning(s):\n", len(warnings))
		for _, w := range warnings {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", w)
		}
	}
}

// CheckCMS queries the content ids once.
func (c *Checker) CheckCMS(ctx context.Context, src IDSource) CheckResult {
	result := CheckResult{
		Name:     "cms_connection",
		Required: true,
	}

	ids, err := src.IDsByKind(ctx, cms.KindContent)
	if err != nil {
		result.Status = StatusFail
		result.Message = "query failed"
		result.Details = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("OK (%d content nodes)", len(ids))
	return result
}

// CheckWritePermissions checks that a file can be created under path.
// The directory is created when missing.
func (c *Checker) CheckWritePermissions(name, path string) CheckResult {
	result := CheckResult{
		Name:     name,
		Required: true,
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create %s: %v", path, err)
		return result
	}

	testFile := filepath.Join(path, ".cmsindex-preflight-test")
	f, err := os.Create(testFile)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(testFile)

	result.Status = StatusPass
	result.Message = "OK"
	result.Details = path
	return result
}

// CheckIndex warns when the configured index has not been created yet.
func (c *Checker) CheckIndex(ctx context.Context, lister IndexLister, name string) CheckResult {
	result := CheckResult{Name: "index"}

	names, err := lister.ListIndexes(ctx)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to list indexes: %v", err)
		return result
	}
	if !slices.Contains(names, name) {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s does not exist", name)
		result.Details = "Run 'cmsindex index create' or 'cmsindex reindex --create-index'"
		return result
	}

	result.Status = StatusPass
	result.Message = name
	return result
}
