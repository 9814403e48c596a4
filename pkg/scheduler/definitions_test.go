package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefinitionsAndMergedData(t *testing.T) {
	defs := writeDefinitionsDir(t, map[string]string{
		"backup.yaml":    "jobs:\n  - name: extract\n",
		"_defaults.yaml": "region: us-east-1\nretries: 3\n",
		"notes.txt":      "not a definition",
	})

	_, ok := defs.Get("backup")
	assert.True(t, ok)
	_, ok = defs.Get("notes")
	assert.False(t, ok, "non-yaml files are not definitions")
	_, ok = defs.Get("_defaults")
	assert.False(t, ok, "the defaults file is not a definition")

	merged, err := defs.MergedData(map[string]any{"region": "eu-west-1"})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", merged["region"], "schedule data wins over defaults")
	assert.Equal(t, 3, merged["retries"], "defaults fill missing keys")
}
