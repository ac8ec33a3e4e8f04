package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lessardlab/nowclean/internal/chron"
	"github.com/lessardlab/nowclean/internal/model"
	"github.com/lessardlab/nowclean/internal/regions"
	"github.com/lessardlab/nowclean/pkg/gplates"
)

func TestPipelineRun(t *testing.T) {
	regs := []regions.Region{
		testRegion(t, "Europe", 1, -10, 35, 30, 60),
	}

	var occs []model.Occurrence
	// Six well-sampled Messinian species inside Europe.
	for i := 0; i < 6; i++ {
		occs = append(occs, model.Occurrence{
			LocalityID: int64(i + 1),
			Genus:      "Hipparion",
			Species:    fmt.Sprintf("species%d", i),
			MinAge:     model.Float64(5),
			MaxAge:     model.Float64(7),
			Lat:        model.Float64(45),
			Lon:        model.Float64(float64(i)),
		})
	}
	// Dropped by the taxon filter.
	occs = append(occs, model.Occurrence{
		LocalityID: 20, Genus: "Hipparion", Species: "indet.",
		MinAge: model.Float64(5), MaxAge: model.Float64(7),
		Lat: model.Float64(45), Lon: model.Float64(3),
	})
	// Outside every region, so its region-stage group is missing.
	occs = append(occs, model.Occurrence{
		LocalityID: 21, Genus: "Gazella", Species: "deperdita",
		MinAge: model.Float64(5), MaxAge: model.Float64(7),
		Lat: model.Float64(-40), Lon: model.Float64(150),
	})
	// Age outside every stage.
	occs = append(occs, model.Occurrence{
		LocalityID: 22, Genus: "Gazella", Species: "capricornis",
		MinAge: model.Float64(0.5), MaxAge: model.Float64(1.5),
		Lat: model.Float64(45), Lon: model.Float64(4),
	})
	// Dropped at subset, no ages at all.
	occs = append(occs, model.Occurrence{
		LocalityID: 23, Genus: "Gazella", Species: "gaudryi",
	})

	p := New(chron.Default(), regs, gplates.Noop{}, Options{
		CellDegrees: 5,
		MinSpecies:  5,
		Concurrency: 1,
	})

	result, err := p.Run(context.Background(), occs)
	require.NoError(t, err)

	require.Len(t, result.Cleaned, 6)
	for _, o := range result.Cleaned {
		assert.Equal(t, "Europe", o.Region)
		assert.Equal(t, "Messinian", o.Stage)
		require.NotNil(t, o.MidAge)
		assert.InDelta(t, 6.0, *o.MidAge, 0.001)
		assert.NotNil(t, o.GridCell)
		assert.NotNil(t, o.PaleoLat, "noop rotation still fills paleo coords")
	}

	require.NotNil(t, result.Grid)
	assert.Equal(t, 5.0, result.Grid.CellDeg)

	// The pre-filter summary still shows the Europe/Messinian group.
	require.NotEmpty(t, result.Summary)
	found := false
	for _, row := range result.Summary {
		if row.Region == "Europe" && row.Stage == "Messinian" {
			found = true
			assert.Equal(t, 6, row.Species)
		}
	}
	assert.True(t, found)

	names := make([]string, len(result.Stats))
	for i, s := range result.Stats {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"subset", "midpoint", "classify", "rotate", "regions", "grid", "taxa", "sampling"}, names)
}

func TestPipelineRunUndersampled(t *testing.T) {
	regs := []regions.Region{
		testRegion(t, "Europe", 1, -10, 35, 30, 60),
	}

	// Two species never reach the sampling threshold.
	occs := []model.Occurrence{
		{
			LocalityID: 1, Genus: "Hipparion", Species: "primigenium",
			MinAge: model.Float64(5), MaxAge: model.Float64(7),
			Lat: model.Float64(45), Lon: model.Float64(2),
		},
		{
			LocalityID: 2, Genus: "Gazella", Species: "deperdita",
			MinAge: model.Float64(5), MaxAge: model.Float64(7),
			Lat: model.Float64(46), Lon: model.Float64(3),
		},
	}

	p := New(chron.Default(), regs, gplates.Noop{}, Options{MinSpecies: 5})
	result, err := p.Run(context.Background(), occs)
	require.NoError(t, err)

	assert.Empty(t, result.Cleaned)
	require.Len(t, result.Summary, 1)
	assert.Equal(t, 2, result.Summary[0].Species)
}

func TestPipelineDefaults(t *testing.T) {
	p := New(chron.Default(), nil, gplates.Noop{}, Options{})
	assert.Equal(t, 5.0, p.opts.CellDegrees)
	assert.Equal(t, 5, p.opts.MinSpecies)
	assert.Equal(t, 3, p.opts.Concurrency)
}
