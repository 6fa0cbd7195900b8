package preflight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/cmsindex/internal/cms"
)

type stubCMS struct {
	ids []int
	err error
}

func (s stubCMS) IDsByKind(context.Context, cms.Kind) ([]int, error) {
	return s.ids, s.err
}

type stubIndexes []string

func (s stubIndexes) ListIndexes(context.Context) ([]string, error) {
	return s, nil
}

func TestCheckStatus_String(t *testing.T) {
	tests := []struct {
		status CheckStatus
		want   string
	}{
		{StatusPass, "PASS"},
		{StatusWarn, "WARN"},
		{StatusFail, "FAIL"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestCheckResult_JSONStatusName(t *testing.T) {
	data, err := json.Marshal(CheckResult{Name: "index", Status: StatusWarn})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"WARN"`)
}

func TestCheckResult_IsCritical(t *testing.T) {
	tests := []struct {
		name     string
		result   CheckResult
		expected bool
	}{
		{"required pass is not critical", CheckResult{Status: StatusPass, Required: true}, false},
		{"required fail is critical", CheckResult{Status: StatusFail, Required: true}, true},
		{"optional fail is not critical", CheckResult{Status: StatusFail}, false},
		{"required warn is not critical", CheckResult{Status: StatusWarn, Required: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.IsCritical())
		})
	}
}

func TestChecker_CheckCMS(t *testing.T) {
	checker := New()

	ok := checker.CheckCMS(context.Background(), stubCMS{ids: []int{1, 2}})
	assert.Equal(t, StatusPass, ok.Status)
	assert.Equal(t, "OK (2 content nodes)", ok.Message)

	failed := checker.CheckCMS(context.Background(), stubCMS{err: errors.New("connection refused")})
	assert.True(t, failed.IsCritical())
	assert.Equal(t, "connection refused", failed.Details)
}

func TestChecker_CheckWritePermissions_CreatesDirectory(t *testing.T) {
	// Given: a directory that does not exist yet
	dir := filepath.Join(t.TempDir(), "sessions")

	// When: checking write permissions
	result := New().CheckWritePermissions("session_storage", dir)

	// Then: the directory is created and the check passes
	assert.Equal(t, StatusPass, result.Status)
	assert.Equal(t, "session_storage", result.Name)
	assert.DirExists(t, dir)
	assert.NoFileExists(t, filepath.Join(dir, ".cmsindex-preflight-test"))
}

func TestChecker_CheckWritePermissions_ReadOnly(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("Skipping read-only test when running as root")
	}

	readOnlyDir := filepath.Join(t.TempDir(), "readonly")
	require.NoError(t, os.Mkdir(readOnlyDir, 0555))
	defer func() { _ = os.Chmod(readOnlyDir, 0755) }()

	result := New().CheckWritePermissions("index_storage", readOnlyDir)

	assert.Equal(t, StatusFail, result.Status)
	assert.Contains(t, result.Message, "permission denied")
}

func TestChecker_CheckIndex(t *testing.T) {
	checker := New()

	present := checker.CheckIndex(context.Background(), stubIndexes{"site"}, "site")
	assert.Equal(t, StatusPass, present.Status)

	missing := checker.CheckIndex(context.Background(), stubIndexes{}, "site")
	assert.Equal(t, StatusWarn, missing.Status)
	assert.False(t, missing.IsCritical())
}

func TestChecker_RunAll(t *testing.T) {
	// Given: every target configured
	dir := t.TempDir()
	targets := Targets{
		CMS:          stubCMS{ids: []int{1}},
		Indexes:      stubIndexes{"site"},
		IndexName:    "site",
		IndexPath:    filepath.Join(dir, "indexes"),
		SessionsPath: filepath.Join(dir, "sessions"),
	}

	// When: running all checks
	results := New().RunAll(context.Background(), targets)

	// Then: each check is present
	names := make(map[string]bool)
	for _, r := range results {
		names[r.Name] = true
	}
	for _, want := range []string{"cms_connection", "index_storage", "disk_space", "session_storage", "file_descriptors", "index"} {
		assert.True(t, names[want], "%s check missing", want)
	}
}

func TestChecker_RunAll_InMemoryIndex(t *testing.T) {
	results := New().RunAll(context.Background(), Targets{})

	require.NotEmpty(t, results)
	assert.Equal(t, "index_storage", results[0].Name)
	assert.Equal(t, StatusWarn, results[0].Status)
}

func TestChecker_HasCriticalFailures(t *testing.T) {
	checker := New()

	assert.False(t, checker.HasCriticalFailures(nil))
	assert.False(t, checker.HasCriticalFailures([]CheckResult{{Status: StatusFail}}))
	assert.True(t, checker.HasCriticalFailures([]CheckResult{{Status: StatusPass, Required: true}, {Status: StatusFail, Required: true}}))
}

func TestChecker_PrintResults(t *testing.T) {
	// Given: some check results
	results := []CheckResult{
		{Name: "disk_space", Status: StatusPass, Message: "50 GB free"},
		{Name: "index", Status: StatusWarn, Message: "site does not exist", Details: "run index create"},
		{Name: "cms_connection", Status: StatusFail, Message: "query failed", Required: true},
	}

	buf := &bytes.Buffer{}
	checker := New(WithOutput(buf), WithVerbose(true))

	// When: printing results
	checker.PrintResults(results)

	// Then: output contains formatted results
	output := buf.String()
	assert.Contains(t, output, "[PASS] disk_space: 50 GB free")
	assert.Contains(t, output, "[WARN] index")
	assert.Contains(t, output, "      run index create")
	assert.Contains(t, output, "[FAIL] cms_connection")
	assert.Contains(t, output, "Status: FAILED")
	assert.Contains(t, output, "1 error(s):")
	assert.Contains(t, output, "1 warning(s):")
}

func TestChecker_SummaryStatus(t *testing.T) {
	checker := New()

	tests := []struct {
		name     string
		results  []CheckResult
		expected string
	}{
		{"all pass", []CheckResult{{Status: StatusPass}, {Status: StatusPass}}, "ready"},
		{"with warnings", []CheckResult{{Status: StatusPass}, {Status: StatusWarn}}, "ready_with_warnings"},
		{"with critical failure", []CheckResult{{Status: StatusPass}, {Status: StatusFail, Required: true}}, "failed"},
		{"with optional failure", []CheckResult{{Status: StatusPass}, {Status: StatusFail}}, "ready_with_warnings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, checker.SummaryStatus(tt.results))
		})
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 bytes", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "100.0 MB", formatBytes(MinDiskSpaceBytes))
}

func TestChecker_CheckDiskSpace_MissingPath(t *testing.T) {
	// Given: a path that has not been created yet
	path := filepath.Join(t.TempDir(), "not", "yet")

	// When: checking disk space
	result := New().CheckDiskSpace(path)

	// Then: the parent filesystem is measured
	assert.NotContains(t, result.Message, "failed to check")
	assert.Contains(t, result.Message, "free (minimum: 100.0 MB)")
}
