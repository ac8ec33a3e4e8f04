// Package pipeline runs the occurrence-cleaning stages in a fixed sequence.
// Every stage takes the previous immutable table and returns a new one, so
// intermediate states stay inspectable and testable.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lessardlab/nowclean/internal/chron"
	"github.com/lessardlab/nowclean/internal/model"
	"github.com/lessardlab/nowclean/internal/regions"
	"github.com/lessardlab/nowclean/internal/spatial"
	"github.com/lessardlab/nowclean/pkg/gplates"
)

var errAllRotationsFailed = eris.New("pipeline: rotation service unreachable for every age group")

// Options configures a cleaning run.
type Options struct {
	CellDegrees float64 // grid cell size; default 5
	MinSpecies  int     // region-stage pairs must exceed this species count; default 5
	Concurrency int     // rotation service fetch concurrency; default 3
}

// Pipeline holds the fixed collaborators of a cleaning run.
type Pipeline struct {
	table   *chron.Table
	regions []regions.Region
	rotator gplates.Rotator
	opts    Options
}

// StageStat records the outcome of one pipeline stage.
type StageStat struct {
	Name       string
	Records    int
	DurationMs int64
}

// Result is the output of a full cleaning run.
type Result struct {
	Cleaned []model.Occurrence
	Summary []SummaryRow
	Grid    *spatial.Grid
	Stats   []StageStat
}

// New creates a Pipeline.
func New(table *chron.Table, regs []regions.Region, rot gplates.Rotator, opts Options) *Pipeline {
	if opts.CellDegrees <= 0 {
		opts.CellDegrees = 5
	}
	if opts.MinSpecies <= 0 {
		opts.MinSpecies = 5
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	return &Pipeline{table: table, regions: regs, rotator: rot, opts: opts}
}

// Run executes all stages over the input table and returns the cleaned
// table, the pre-filter summary, and the generated grid.
func (p *Pipeline) Run(ctx context.Context, occs []model.Occurrence) (*Result, error) {
	log := zap.L().With(zap.String("component", "pipeline"))
	log.Info("starting cleaning run", zap.Int("records", len(occs)))

	result := &Result{}
	track := func(name string, out []model.Occurrence, start time.Time) []model.Occurrence {
		stat := StageStat{
			Name:       name,
			Records:    len(out),
			DurationMs: time.Since(start).Milliseconds(),
		}
		result.Stats = append(result.Stats, stat)
		log.Debug("stage complete",
			zap.String("stage", name),
			zap.Int("records", stat.Records),
			zap.Int64("duration_ms", stat.DurationMs),
		)
		return out
	}

	start := time.Now()
	table := track("subset", Subset(occs), start)

	start = time.Now()
	table = track("midpoint", ComputeMidpoints(table), start)

	start = time.Now()
	table = track("classify", ClassifyStages(table, p.table), start)

	start = time.Now()
	rotated, err := Rotate(ctx, p.rotator, table, p.table, p.opts.Concurrency)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: rotate")
	}
	table = track("rotate", rotated, start)

	start = time.Now()
	table = track("regions", AssignRegions(table, p.regions), start)

	start = time.Now()
	gridded, grid, err := AssignGrid(table, p.opts.CellDegrees)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: grid")
	}
	result.Grid = grid
	table = track("grid", gridded, start)

	start = time.Now()
	table = track("taxa", FilterTaxa(table), start)

	// Summary is taken before the sufficiency filter so the threshold is
	// judged against pre-filter counts.
	result.Summary = Summarize(table)

	start = time.Now()
	table = track("sampling", FilterSampling(table, p.opts.MinSpecies), start)

	result.Cleaned = table
	log.Info("cleaning run complete",
		zap.Int("input", len(occs)),
		zap.Int("cleaned", len(table)),
		zap.Int("grid_cells", len(grid.Cells())),
	)
	return result, nil
}
