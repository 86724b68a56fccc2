package raster

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// GeoKey ids.
const (
	keyRasterType        = 1025
	keyGeographicType    = 2048
	keyProjectedCSType   = 3072
	rasterPixelIsPoint   = 2
	geoKeyUserDefined    = 32767
	geoKeyEntryLen       = 4
	geoKeyDirectoryStart = 4
)

type geoKeys map[uint64]uint64

// parseGeoKeys reads the inline SHORT values of a GeoKeyDirectory. Keys that
// point into other tags (ASCII citations, doubles) are skipped.
func parseGeoKeys(dir []uint64) geoKeys {
	keys := geoKeys{}
	if len(dir) < geoKeyDirectoryStart {
		return keys
	}
	n := int(dir[3])
	for i := 0; i < n; i++ {
		p := geoKeyDirectoryStart + i*geoKeyEntryLen
		if p+geoKeyEntryLen > len(dir) {
			break
		}
		if dir[p+1] != 0 {
			continue
		}
		keys[dir[p]] = dir[p+3]
	}
	return keys
}

func (k geoKeys) epsg() int {
	for _, id := range []uint64{keyProjectedCSType, keyGeographicType} {
		if v, ok := k[id]; ok && v != 0 && v != geoKeyUserDefined {
			return int(v)
		}
	}
	return 0
}

func (k geoKeys) pixelIsPoint() bool {
	return k[keyRasterType] == rasterPixelIsPoint
}

// georeference derives the grid-to-map transform. A full ModelTransformation
// wins over PixelScale plus Tiepoint.
func georeference(d *ifd, keys geoKeys) (Affine, error) {
	var t Affine
	switch {
	case len(d.transformation) >= 16:
		m := d.transformation
		t = Affine{A: m[0], B: m[1], C: m[3], D: m[4], E: m[5], F: m[7]}
	case len(d.pixelScale) >= 2 && len(d.tiepoint) >= 6:
		sx, sy := d.pixelScale[0], d.pixelScale[1]
		i, j, x, y := d.tiepoint[0], d.tiepoint[1], d.tiepoint[3], d.tiepoint[4]
		t = Affine{A: sx, C: x - i*sx, E: -sy, F: y + j*sy}
	default:
		return Affine{}, ErrNoGeoreference
	}
	if t.A*t.E-t.B*t.D == 0 {
		return Affine{}, fmt.Errorf("%w: singular transform", ErrMalformed)
	}
	if keys.pixelIsPoint() {
		t = t.Translate(-0.5, -0.5)
	}
	return t, nil
}

func parseNoData(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN(), false
	}
	return v, true
}
