package spatial

import (
	"math"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Extent is a geographic bounding box in degrees.
type Extent struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// Expand grows the extent to include the point.
func (e *Extent) Expand(lon, lat float64) {
	e.MinLon = math.Min(e.MinLon, lon)
	e.MinLat = math.Min(e.MinLat, lat)
	e.MaxLon = math.Max(e.MaxLon, lon)
	e.MaxLat = math.Max(e.MaxLat, lat)
}

// EmptyExtent returns an extent that any Expand call will replace.
func EmptyExtent() Extent {
	return Extent{
		MinLon: math.Inf(1), MinLat: math.Inf(1),
		MaxLon: math.Inf(-1), MaxLat: math.Inf(-1),
	}
}

// IsEmpty reports whether the extent has never been expanded.
func (e Extent) IsEmpty() bool {
	return e.MinLon > e.MaxLon || e.MinLat > e.MaxLat
}

// Cell is one square of a uniform grid, indexed row-major from the
// south-west corner.
type Cell struct {
	Index  int64
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// Polygon returns the cell outline as a closed SRID 4326 polygon.
func (c Cell) Polygon() *geom.Polygon {
	p := geom.NewPolygonFlat(geom.XY, []float64{
		c.MinLon, c.MinLat,
		c.MaxLon, c.MinLat,
		c.MaxLon, c.MaxLat,
		c.MinLon, c.MaxLat,
		c.MinLon, c.MinLat,
	}, []int{10})
	p.SetSRID(4326)
	return p
}

// Grid is a create-once uniform square grid covering an extent. The origin is
// snapped down to a multiple of the cell size so cell edges land on round
// degree values.
type Grid struct {
	CellDeg float64
	Origin  Extent
	Cols    int
	Rows    int
	cells   []Cell
}

// NewGrid builds a grid of cellDeg-sized squares covering the extent.
func NewGrid(e Extent, cellDeg float64) (*Grid, error) {
	if cellDeg <= 0 {
		return nil, eris.New("spatial: cell size must be positive")
	}
	if e.IsEmpty() {
		return nil, eris.New("spatial: empty extent")
	}

	minLon := math.Floor(e.MinLon/cellDeg) * cellDeg
	minLat := math.Floor(e.MinLat/cellDeg) * cellDeg
	maxLon := math.Ceil(e.MaxLon/cellDeg) * cellDeg
	maxLat := math.Ceil(e.MaxLat/cellDeg) * cellDeg
	// A degenerate extent (single point on a cell edge) still gets one cell.
	if maxLon == minLon {
		maxLon = minLon + cellDeg
	}
	if maxLat == minLat {
		maxLat = minLat + cellDeg
	}

	cols := int(math.Round((maxLon - minLon) / cellDeg))
	rows := int(math.Round((maxLat - minLat) / cellDeg))

	cells := make([]Cell, 0, cols*rows)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cells = append(cells, Cell{
				Index:  int64(r*cols + c),
				MinLon: minLon + float64(c)*cellDeg,
				MinLat: minLat + float64(r)*cellDeg,
				MaxLon: minLon + float64(c+1)*cellDeg,
				MaxLat: minLat + float64(r+1)*cellDeg,
			})
		}
	}

	return &Grid{
		CellDeg: cellDeg,
		Origin:  Extent{MinLon: minLon, MinLat: minLat, MaxLon: maxLon, MaxLat: maxLat},
		Cols:    cols,
		Rows:    rows,
		cells:   cells,
	}, nil
}

// Cells returns the grid cells in index order.
func (g *Grid) Cells() []Cell {
	return g.cells
}

// CellAt returns the index of the cell containing the point. Interior cell
// edges are half-open: a point on a shared edge belongs to the cell whose
// south-west corner it touches. The grid's outer east and north boundary is
// closed, so the extent-defining points always land in the last column or
// row.
func (g *Grid) CellAt(lon, lat float64) (int64, bool) {
	if lon < g.Origin.MinLon || lon > g.Origin.MaxLon ||
		lat < g.Origin.MinLat || lat > g.Origin.MaxLat {
		return 0, false
	}

	col := int((lon - g.Origin.MinLon) / g.CellDeg)
	if col >= g.Cols {
		col = g.Cols - 1
	}
	row := int((lat - g.Origin.MinLat) / g.CellDeg)
	if row >= g.Rows {
		row = g.Rows - 1
	}
	return int64(row*g.Cols + col), true
}

// Polygons returns the grid as a labeled polygon collection for callers that
// need cell geometries rather than index lookups.
func (g *Grid) Polygons() []LabeledPolygon {
	polys := make([]LabeledPolygon, len(g.cells))
	for i, c := range g.cells {
		mp := geom.NewMultiPolygon(geom.XY)
		mp.SetSRID(4326)
		if err := mp.Push(c.Polygon()); err != nil {
			// Cell outlines are constructed closed and valid.
			panic(err)
		}
		polys[i] = LabeledPolygon{
			Label: strconv.FormatInt(c.Index, 10),
			MapID: c.Index,
			Geom:  mp,
		}
	}
	return polys
}
