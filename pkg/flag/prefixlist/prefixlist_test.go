package prefixlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAccumulatesPrefixes(t *testing.T) {
	var prefixes []string
	v := New(&prefixes)

	require.NoError(t, v.Set("/workflow/etl/, /workflow/reporting/"))
	require.NoError(t, v.Set("/workflow/backup/,"))
	assert.Equal(t, []string{"/workflow/etl/", "/workflow/reporting/", "/workflow/backup/"}, prefixes)
	assert.Equal(t, "/workflow/etl/,/workflow/reporting/,/workflow/backup/", v.String())
}

func TestSetRejectsUnrootedPrefix(t *testing.T) {
	var prefixes []string
	v := New(&prefixes)
	err := v.Set("workflow/etl/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must start with '/'")
}

func TestResetClears(t *testing.T) {
	var prefixes []string
	v := New(&prefixes)
	require.NoError(t, v.Set("/workflow/"))
	require.NoError(t, v.Reset())
	assert.Empty(t, prefixes)
	assert.Equal(t, "", v.String())
}

func TestFromEnv(t *testing.T) {
	var prefixes []string
	v := New(&prefixes)
	require.NoError(t, v.FromEnv("/workflow/etl/,/workflow/backup/"))
	assert.Len(t, prefixes, 2)
}
