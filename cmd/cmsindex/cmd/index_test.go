package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cmserrors "github.com/Aman-CERP/cmsindex/internal/errors"
)

func TestIndexCmd_CreateListDelete(t *testing.T) {
	// Given: a seeded CMS
	env := newTestEnv(t)
	env.seed(t)

	// When: creating the index twice
	out, err := env.run(t, "index", "create")
	require.NoError(t, err)
	assert.Contains(t, out, "Index created: site")
	_, err = env.run(t, "index", "create")

	// Then: the second create drops and recreates
	require.NoError(t, err)

	out, err = env.run(t, "index", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "* site")

	out, err = env.run(t, "index", "delete", "site")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted index site")

	out, err = env.run(t, "index", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No indexes.")
}

func TestIndexCmd_DeleteInvalidName(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "index", "delete", "../x")

	require.Error(t, err)
	assert.Equal(t, cmserrors.ErrCodeInvalidInput, cmserrors.GetCode(err))
}

func TestSchemaCmd(t *testing.T) {
	// Given: a seeded CMS
	env := newTestEnv(t)
	env.seed(t)

	// When: printing the schema
	out, err := env.run(t, "schema")

	// Then: the key comes first and configured fields are listed
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Regexp(t, `(?m)^Id\s+Edm.String\s+key`, out)
	assert.Regexp(t, `(?m)^tags\s+Collection\(Edm.String\)`, out)
	assert.Contains(t, out, "nameLower")
}

func TestCMSInit_RejectsPostgres(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("CMSINDEX_CMS_DRIVER", "postgres")

	_, err := env.run(t, "cms", "init")

	require.Error(t, err)
	assert.Equal(t, cmserrors.ErrCodeInvalidInput, cmserrors.GetCode(err))
}

func TestStatusCmd_NoIndex(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "status")

	require.NoError(t, err)
	assert.Contains(t, out, "Index Status: site")
	assert.Contains(t, out, "missing")
	assert.Contains(t, out, "No reindex sessions in progress.")
}

func TestDoctorCmd(t *testing.T) {
	// Given: a seeded CMS and an existing index
	env := newTestEnv(t)
	env.seed(t)
	_, err := env.run(t, "index", "create")
	require.NoError(t, err)

	// When: running diagnostics
	out, err := env.run(t, "doctor")

	// Then: the CMS and storage checks pass
	require.NoError(t, err)
	assert.Contains(t, out, "[PASS] cms_connection: OK (3 content nodes)")
	assert.Contains(t, out, "[PASS] session_storage")
	assert.Contains(t, out, "[PASS] index: site")
}
