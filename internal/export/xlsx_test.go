package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/lessardlab/nowclean/internal/chron"
	"github.com/lessardlab/nowclean/internal/pipeline"
)

func TestWriteSummary(t *testing.T) {
	summary := []pipeline.SummaryRow{
		{Region: "Anatolia", Stage: "Tortonian", Species: 12, Occurrences: 40},
		{Region: "Europe", Stage: "Messinian", Species: 8, Occurrences: 21},
	}
	stages := chron.Default().Stages()

	path := filepath.Join(t.TempDir(), "summary.xlsx")
	require.NoError(t, WriteSummary(path, summary, stages))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)

	counts := f.Sheet["region_stage_counts"]
	require.NotNil(t, counts)
	require.Len(t, counts.Rows, 3) // header plus two groups
	assert.Equal(t, "region", counts.Rows[0].Cells[0].Value)
	assert.Equal(t, "Anatolia", counts.Rows[1].Cells[0].Value)
	assert.Equal(t, "Tortonian", counts.Rows[1].Cells[1].Value)
	species, err := counts.Rows[1].Cells[2].Int()
	require.NoError(t, err)
	assert.Equal(t, 12, species)

	stageSheet := f.Sheet["stages"]
	require.NotNil(t, stageSheet)
	require.Len(t, stageSheet.Rows, len(stages)+1)
	assert.Equal(t, "Aquitanian", stageSheet.Rows[1].Cells[0].Value)
	mid, err := stageSheet.Rows[1].Cells[3].Float()
	require.NoError(t, err)
	assert.InDelta(t, 21.5, mid, 0.001)
}

func TestWriteSummaryEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.xlsx")
	require.NoError(t, WriteSummary(path, nil, nil))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	counts := f.Sheet["region_stage_counts"]
	require.NotNil(t, counts)
	assert.Len(t, counts.Rows, 1)
}
