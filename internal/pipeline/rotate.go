package pipeline

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lessardlab/nowclean/internal/chron"
	"github.com/lessardlab/nowclean/internal/model"
	"github.com/lessardlab/nowclean/pkg/gplates"
)

// Rotate back-rotates present-day coordinates to each record's stage midpoint
// age. Records are grouped by stage so the service is called once per stage;
// groups are fetched with bounded concurrency, which is the only concurrent
// part of the pipeline. Records without a stage or coordinates pass through
// unrotated. A group-level service failure degrades those records to raw
// coordinates with a warning; the stage only fails when every group fails.
func Rotate(ctx context.Context, rot gplates.Rotator, occs []model.Occurrence, table *chron.Table, concurrency int) ([]model.Occurrence, error) {
	if concurrency <= 0 {
		concurrency = 3
	}

	out := make([]model.Occurrence, len(occs))
	copy(out, occs)

	// Group record indices by rotation age.
	groups := make(map[float64][]int)
	for i := range out {
		o := &out[i]
		if o.Stage == "" || !o.HasCoords() {
			continue
		}
		age, ok := table.Midpoint(o.Stage)
		if !ok {
			continue
		}
		groups[age] = append(groups[age], i)
	}
	if len(groups) == 0 {
		return out, nil
	}

	ages := make([]float64, 0, len(groups))
	for age := range groups {
		ages = append(ages, age)
	}
	sort.Float64s(ages)

	log := zap.L().With(zap.String("component", "pipeline.rotate"))

	var mu sync.Mutex
	var failed int

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, age := range ages {
		idx := groups[age]
		g.Go(func() error {
			pts := make([]gplates.Point, len(idx))
			for k, i := range idx {
				pts[k] = gplates.Point{Lat: *out[i].Lat, Lon: *out[i].Lon}
			}

			rotated, err := rot.Rotate(gCtx, age, pts)
			if err != nil {
				log.Warn("rotation failed, keeping raw coordinates",
					zap.Float64("age", age),
					zap.Int("records", len(idx)),
					zap.Error(err),
				)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}

			// Groups are disjoint index sets, so writes do not need the lock.
			for k, i := range idx {
				out[i].PaleoLat = model.Float64(rotated[k].Lat)
				out[i].PaleoLon = model.Float64(rotated[k].Lon)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if failed == len(ages) {
		return nil, errAllRotationsFailed
	}

	log.Debug("rotation complete",
		zap.Int("age_groups", len(ages)),
		zap.Int("failed_groups", failed),
	)
	return out, nil
}
