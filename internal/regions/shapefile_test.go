package regions

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lessardlab/nowclean/internal/spatial"
)

func shpPolygon(points []shp.Point, parts []int32) *shp.Polygon {
	return &shp.Polygon{
		NumParts:  int32(len(parts)),
		NumPoints: int32(len(points)),
		Parts:     parts,
		Points:    points,
	}
}

func TestToMultiPolygon(t *testing.T) {
	poly := shpPolygon([]shp.Point{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0},
	}, []int32{0})

	mp := ToMultiPolygon(poly)
	require.NotNil(t, mp)
	assert.Equal(t, 1, mp.NumPolygons())
	assert.Equal(t, 4326, mp.SRID())

	assert.True(t, spatial.Contains(mp, 5, 5))
	assert.False(t, spatial.Contains(mp, 15, 5))
}

func TestToMultiPolygonMultipleParts(t *testing.T) {
	poly := shpPolygon([]shp.Point{
		// part 1
		{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}, {X: 0, Y: 0},
		// part 2
		{X: 10, Y: 10}, {X: 12, Y: 10}, {X: 12, Y: 12}, {X: 10, Y: 12}, {X: 10, Y: 10},
	}, []int32{0, 5})

	mp := ToMultiPolygon(poly)
	require.NotNil(t, mp)
	assert.Equal(t, 2, mp.NumPolygons())
	assert.True(t, spatial.Contains(mp, 1, 1))
	assert.True(t, spatial.Contains(mp, 11, 11))
	assert.False(t, spatial.Contains(mp, 5, 5))
}

func TestToMultiPolygonEmpty(t *testing.T) {
	assert.Nil(t, ToMultiPolygon(nil))
	assert.Nil(t, ToMultiPolygon(&shp.Polygon{}))
}

func TestPolygonsPreservesOrder(t *testing.T) {
	regs := []Region{
		{Name: "Europe", MapID: 1},
		{Name: "Anatolia", MapID: 7},
	}
	polys := Polygons(regs)
	require.Len(t, polys, 2)
	assert.Equal(t, "Europe", polys[0].Label)
	assert.Equal(t, int64(1), polys[0].MapID)
	assert.Equal(t, "Anatolia", polys[1].Label)
	assert.Equal(t, int64(7), polys[1].MapID)
}

func TestCleanAttr(t *testing.T) {
	assert.Equal(t, "Europe", cleanAttr("Europe\x00\x00"))
	assert.Equal(t, "Europe", cleanAttr("  Europe \x00"))
	assert.Equal(t, "", cleanAttr("\x00"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.shp"), "REGION", "MAP_ID")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open shapefile")
}
