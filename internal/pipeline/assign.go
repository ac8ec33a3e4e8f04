package pipeline

import (
	"github.com/rotisserie/eris"

	"github.com/lessardlab/nowclean/internal/model"
	"github.com/lessardlab/nowclean/internal/regions"
	"github.com/lessardlab/nowclean/internal/spatial"
)

// AssignRegions labels each record with the first macro-region polygon
// containing its coordinate. Records with no coordinates or outside every
// region keep an empty region and nil map id.
func AssignRegions(occs []model.Occurrence, regs []regions.Region) []model.Occurrence {
	polys := regions.Polygons(regs)

	out := make([]model.Occurrence, len(occs))
	copy(out, occs)
	for i := range out {
		o := &out[i]
		lon, lat, ok := o.Coords()
		if !ok {
			continue
		}
		if j, hit := spatial.Assign(lon, lat, polys); hit {
			o.Region = polys[j].Label
			o.MapID = model.Int64(polys[j].MapID)
		}
	}
	return out
}

// AssignGrid generates a uniform grid over the extent of the records'
// coordinates and labels each record with its cell index. The grid is
// returned alongside the records so it can be persisted with the run.
func AssignGrid(occs []model.Occurrence, cellDeg float64) ([]model.Occurrence, *spatial.Grid, error) {
	ext := spatial.EmptyExtent()
	for i := range occs {
		if lon, lat, ok := occs[i].Coords(); ok {
			ext.Expand(lon, lat)
		}
	}
	if ext.IsEmpty() {
		return nil, nil, eris.New("pipeline: no records with coordinates to grid")
	}

	grid, err := spatial.NewGrid(ext, cellDeg)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: build grid")
	}

	out := make([]model.Occurrence, len(occs))
	copy(out, occs)
	for i := range out {
		o := &out[i]
		lon, lat, ok := o.Coords()
		if !ok {
			continue
		}
		if idx, hit := grid.CellAt(lon, lat); hit {
			o.GridCell = model.Int64(idx)
		}
	}
	return out, grid, nil
}
