package spatial

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// EncodeEWKB converts a geometry to EWKB bytes in little-endian order for
// persistence. Returns nil, nil for nil geometries.
func EncodeEWKB(g geom.T) ([]byte, error) {
	if g == nil {
		return nil, nil
	}
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "spatial: encode EWKB")
	}
	return data, nil
}
