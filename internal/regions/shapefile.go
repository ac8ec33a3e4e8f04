// Package regions loads the collaborator-provided macro-region polygons from
// a shapefile into go-geom geometries.
package regions

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/lessardlab/nowclean/internal/spatial"
)

// Region is a named macro-area polygon with the collaborator's numeric map
// identifier. Regions are loaded once per run and never mutated.
type Region struct {
	Name  string
	MapID int64
	Geom  *geom.MultiPolygon
}

// Load reads region polygons from a shapefile, taking the region name and
// map id from the given attribute fields (matched case-insensitively).
// Records without a usable polygon are skipped, not fatal.
func Load(shpPath, nameField, mapIDField string) ([]Region, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "regions: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	nameIdx, ok := fieldIdx[strings.ToLower(nameField)]
	if !ok {
		return nil, eris.Errorf("regions: shapefile has no %q field", nameField)
	}
	mapIDIdx, ok := fieldIdx[strings.ToLower(mapIDField)]
	if !ok {
		return nil, eris.Errorf("regions: shapefile has no %q field", mapIDField)
	}

	var out []Region
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		poly, okShape := shape.(*shp.Polygon)
		if !okShape {
			skipped++
			continue
		}
		mp := ToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}

		name := cleanAttr(reader.Attribute(nameIdx))
		mapID, err := strconv.ParseInt(cleanAttr(reader.Attribute(mapIDIdx)), 10, 64)
		if err != nil {
			skipped++
			continue
		}

		out = append(out, Region{Name: name, MapID: mapID, Geom: mp})
	}

	if skipped > 0 {
		zap.L().Debug("regions: skipped shapefile records",
			zap.String("shapefile", shpPath),
			zap.Int("skipped", skipped),
		)
	}
	if len(out) == 0 {
		return nil, eris.Errorf("regions: no usable polygons in %s", shpPath)
	}

	return out, nil
}

// Polygons adapts loaded regions to the labeled collection used by spatial
// assignment, preserving file order.
func Polygons(regions []Region) []spatial.LabeledPolygon {
	polys := make([]spatial.LabeledPolygon, len(regions))
	for i, r := range regions {
		polys[i] = spatial.LabeledPolygon{Label: r.Name, MapID: r.MapID, Geom: r.Geom}
	}
	return polys
}

// ToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon with
// SRID 4326. Returns nil for empty or fully malformed shapes.
func ToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("regions: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("regions: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

func cleanAttr(v string) string {
	return strings.TrimSpace(strings.TrimRight(v, "\x00"))
}
