package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lessardlab/nowclean/internal/model"
	"github.com/lessardlab/nowclean/internal/pipeline"
	"github.com/lessardlab/nowclean/internal/spatial"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	run, err := s.CreateRun(ctx, "now_export.tsv")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	counts := RunCounts{Input: 100, Cleaned: 42, Regions: 6, GridCells: 12}
	require.NoError(t, s.CompleteRun(ctx, run.ID, counts))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, RunStatusComplete, runs[0].Status)
	require.NotNil(t, runs[0].Counts)
	assert.Equal(t, counts, *runs[0].Counts)
}

func TestSQLiteFailRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	run, err := s.CreateRun(ctx, "now_export.tsv")
	require.NoError(t, err)
	require.NoError(t, s.FailRun(ctx, run.ID))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, RunStatusFailed, runs[0].Status)
	assert.Nil(t, runs[0].Counts)
}

func TestSQLiteRunNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.CompleteRun(ctx, "missing-run", RunCounts{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	err = s.FailRun(ctx, "missing-run")
	require.Error(t, err)
}

func TestSQLiteOccurrenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	run, err := s.CreateRun(ctx, "now_export.tsv")
	require.NoError(t, err)

	occs := []model.Occurrence{
		{
			LocalityID:   1001,
			LocalityName: "Samos Main Bone Beds",
			TaxonOrder:   "Perissodactyla",
			Family:       "Equidae",
			Genus:        "Hipparion",
			Species:      "matthewi",
			MinAge:       model.Float64(7.1),
			MaxAge:       model.Float64(7.3),
			MidAge:       model.Float64(7.2),
			Stage:        "Tortonian",
			Lat:          model.Float64(37.74),
			Lon:          model.Float64(26.83),
			PaleoLat:     model.Float64(37.2),
			PaleoLon:     model.Float64(26.1),
			Region:       "Anatolia",
			MapID:        model.Int64(4),
			GridCell:     model.Int64(17),
		},
		{
			// Mostly empty record: nullable columns stay nil.
			LocalityID: 1002,
			Genus:      "Gazella",
			Species:    "capricornis",
		},
	}

	n, err := s.SaveOccurrences(ctx, run.ID, occs)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := s.GetOccurrences(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(1001), got[0].LocalityID)
	require.NotNil(t, got[0].MidAge)
	assert.InDelta(t, 7.2, *got[0].MidAge, 0.001)
	assert.Equal(t, "Tortonian", got[0].Stage)
	assert.Equal(t, "Anatolia", got[0].Region)
	require.NotNil(t, got[0].GridCell)
	assert.Equal(t, int64(17), *got[0].GridCell)

	assert.Nil(t, got[1].MinAge)
	assert.Nil(t, got[1].MapID)
	assert.Empty(t, got[1].Stage)
	assert.Empty(t, got[1].Region)
}

func TestSQLiteSaveOccurrencesEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	n, err := s.SaveOccurrences(ctx, "whatever", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteSummaryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	run, err := s.CreateRun(ctx, "now_export.tsv")
	require.NoError(t, err)

	summary := []pipeline.SummaryRow{
		{Region: "Europe", Stage: "Messinian", Species: 8, Occurrences: 21},
		{Region: "Anatolia", Stage: "Tortonian", Species: 12, Occurrences: 40},
	}
	require.NoError(t, s.SaveSummary(ctx, run.ID, summary))

	got, err := s.GetSummary(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Rows come back ordered by region then stage.
	assert.Equal(t, summary[1], got[0])
	assert.Equal(t, summary[0], got[1])

	// Re-saving the same pairs replaces rather than duplicates.
	summary[0].Species = 9
	require.NoError(t, s.SaveSummary(ctx, run.ID, summary))
	got, err = s.GetSummary(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 9, got[1].Species)
}

func TestSQLiteGetSummaryMissingRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	got, err := s.GetSummary(ctx, "missing-run")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteSaveGridCells(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	run, err := s.CreateRun(ctx, "now_export.tsv")
	require.NoError(t, err)

	cells := []spatial.Cell{
		{Index: 0, MinLon: 0, MinLat: 0, MaxLon: 5, MaxLat: 5},
		{Index: 1, MinLon: 5, MinLat: 0, MaxLon: 10, MaxLat: 5},
	}

	n, err := s.SaveGridCells(ctx, run.ID, cells)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Saving the same cells again replaces rather than duplicates.
	n, err = s.SaveGridCells(ctx, run.ID, cells)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var count int
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM grid_cells WHERE run_id = ?`, run.ID).Scan(&count))
	assert.Equal(t, 2, count)
}
