package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testEnv is a throwaway workspace: a config file pointing at temp index,
// session and CMS paths.
type testEnv struct {
	dir        string
	configPath string
	indexPath  string
	sessions   string
	dsn        string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "cmsindex.yaml"),
		indexPath:  filepath.Join(dir, "indexes"),
		sessions:   filepath.Join(dir, "sessions"),
		dsn:        filepath.Join(dir, "cms.db"),
	}

	yaml := fmt.Sprintf(`version: 1
index:
  name: site
  path: %s
cms:
  driver: sqlite
  dsn: %s
sessions:
  storage_path: %s
  max_age: 24h
log_level: error
search_fields:
  - name: title
    type: string
    searchable: true
  - name: tags
    type: collection
    filterable: true
  - name: bodyGrid
    type: string
    is_grid_json: true
    searchable: true
  - name: nameLower
    type: string
    parser_type: name-lower
`, env.indexPath, env.dsn, env.sessions)
	require.NoError(t, os.WriteFile(env.configPath, []byte(yaml), 0644))
	return env
}

// run executes the root command with the env's config and returns stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append([]string{"--config", e.configPath, "--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// seed loads the sample site into the env's CMS database.
func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	_, err := e.run(t, "cms", "init")
	require.NoError(t, err)
}
