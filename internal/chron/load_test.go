package chron

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStages(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stages.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTable(t *testing.T) {
	path := writeStages(t, `
- name: Messinian
  lower: 5
  upper: 7
  midpoint: 6.0
- name: Zanclean
  lower: 4
  upper: 5
  midpoint: 4.5
`)

	table, err := LoadTable(path)
	require.NoError(t, err)

	name, ok := table.Classify(6)
	require.True(t, ok)
	assert.Equal(t, "Messinian", name)

	// File order fixes the boundary tie-break.
	name, ok = table.Classify(5)
	require.True(t, ok)
	assert.Equal(t, "Messinian", name)

	mid, ok := table.Midpoint("Zanclean")
	require.True(t, ok)
	assert.InDelta(t, 4.5, mid, 0.001)
}

func TestLoadTableMissingFile(t *testing.T) {
	_, err := LoadTable(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read stage table")
}

func TestLoadTableBadYAML(t *testing.T) {
	path := writeStages(t, "::not yaml::")
	_, err := LoadTable(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse stage table")
}

func TestLoadTableInvalidStages(t *testing.T) {
	path := writeStages(t, `
- name: Broken
  lower: 9
  upper: 3
`)
	_, err := LoadTable(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid stage table")
}
