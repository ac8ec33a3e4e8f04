// Package store persists cleaning runs, cleaned occurrence tables, and grid
// cells. SQLite is the default local backend; Postgres serves a shared lab
// database.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/lessardlab/nowclean/internal/config"
	"github.com/lessardlab/nowclean/internal/model"
	"github.com/lessardlab/nowclean/internal/pipeline"
	"github.com/lessardlab/nowclean/internal/spatial"
)

// RunStatus tracks the lifecycle of a cleaning run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunCounts summarizes a completed run.
type RunCounts struct {
	Input     int `json:"input"`
	Cleaned   int `json:"cleaned"`
	Regions   int `json:"regions"`
	GridCells int `json:"grid_cells"`
}

// Run is one recorded execution of the cleaning pipeline.
type Run struct {
	ID        string
	Source    string
	Status    RunStatus
	Counts    *RunCounts
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store defines the persistence interface for cleaning runs.
type Store interface {
	Migrate(ctx context.Context) error

	CreateRun(ctx context.Context, source string) (*Run, error)
	CompleteRun(ctx context.Context, runID string, counts RunCounts) error
	FailRun(ctx context.Context, runID string) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	SaveOccurrences(ctx context.Context, runID string, occs []model.Occurrence) (int64, error)
	GetOccurrences(ctx context.Context, runID string) ([]model.Occurrence, error)
	SaveGridCells(ctx context.Context, runID string, cells []spatial.Cell) (int64, error)

	// The pre-filter region-stage summary is stored with the run because the
	// sufficiency threshold is judged against it; it cannot be rebuilt from
	// the persisted post-filter table.
	SaveSummary(ctx context.Context, runID string, rows []pipeline.SummaryRow) error
	GetSummary(ctx context.Context, runID string) ([]pipeline.SummaryRow, error)

	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.Path)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
