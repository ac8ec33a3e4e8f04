// Package spatial assigns point records to labeled polygon collections and
// generates uniform coordinate grids over a bounding extent.
package spatial

import (
	"github.com/twpayne/go-geom"
)

// LabeledPolygon pairs a polygon geometry with the labels handed back on a
// successful assignment. MapID carries the collaborator's numeric map
// identifier for region polygons and the cell index for grid cells.
type LabeledPolygon struct {
	Label string
	MapID int64
	Geom  *geom.MultiPolygon
}

// Assign returns the index of the first polygon in polys that contains the
// point. Polygons are tested in slice order; a point sitting on a shared
// boundary goes to whichever polygon comes first. ok is false when no polygon
// contains the point.
func Assign(lon, lat float64, polys []LabeledPolygon) (int, bool) {
	for i := range polys {
		if polys[i].Geom == nil {
			continue
		}
		if Contains(polys[i].Geom, lon, lat) {
			return i, true
		}
	}
	return 0, false
}

// Contains reports whether the MultiPolygon contains the point. The bounding
// box is checked first; the exact test is an even-odd ray crossing per ring,
// counting outer-ring hits and subtracting holes.
func Contains(mp *geom.MultiPolygon, lon, lat float64) bool {
	b := mp.Bounds()
	if lon < b.Min(0) || lon > b.Max(0) || lat < b.Min(1) || lat > b.Max(1) {
		return false
	}

	for i := 0; i < mp.NumPolygons(); i++ {
		if polygonContains(mp.Polygon(i), lon, lat) {
			return true
		}
	}
	return false
}

func polygonContains(p *geom.Polygon, lon, lat float64) bool {
	if p.NumLinearRings() == 0 {
		return false
	}
	if !pointInRing(p.LinearRing(0), lon, lat) {
		return false
	}
	// Interior rings are holes.
	for i := 1; i < p.NumLinearRings(); i++ {
		if pointInRing(p.LinearRing(i), lon, lat) {
			return false
		}
	}
	return true
}

// pointInRing is the classic even-odd crossing test over the ring's flat
// coordinates. The tiny denominator offset guards against division by zero on
// horizontal edges.
func pointInRing(ring *geom.LinearRing, lon, lat float64) bool {
	flat := ring.FlatCoords()
	stride := ring.Stride()
	n := len(flat) / stride
	if n < 3 {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := flat[i*stride], flat[i*stride+1]
		xj, yj := flat[j*stride], flat[j*stride+1]
		if (yi > lat) != (yj > lat) &&
			lon < (xj-xi)*(lat-yi)/(yj-yi+1e-12)+xi {
			inside = !inside
		}
	}
	return inside
}
