package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/mohammed-shakir/soilgrids-stats/internal/core/ogc"
)

// Bounds is the axis-aligned envelope over every listed vertex. Ring
// simplicity is not checked, so bow-ties and self-intersections still
// produce their vertex extrema.
func Bounds(p orb.Polygon) orb.Bound {
	b := orb.Bound{
		Min: orb.Point{math.Inf(1), math.Inf(1)},
		Max: orb.Point{math.Inf(-1), math.Inf(-1)},
	}
	for _, ring := range p {
		for _, pt := range ring {
			b.Min[0] = math.Min(b.Min[0], pt[0])
			b.Min[1] = math.Min(b.Min[1], pt[1])
			b.Max[0] = math.Max(b.Max[0], pt[0])
			b.Max[1] = math.Max(b.Max[1], pt[1])
		}
	}
	return b
}

// Subsets turns an envelope into the X and Y coverage subsets. Zero-width
// envelopes pass through unchanged.
func Subsets(b orb.Bound) []ogc.Subset {
	return []ogc.Subset{
		{Axis: "X", Low: b.Min[0], High: b.Max[0]},
		{Axis: "Y", Low: b.Min[1], High: b.Max[1]},
	}
}

// AreaHectares is the planar area of p in hectares; meaningful for
// equal-area CRSs in metres.
func AreaHectares(p orb.Polygon) float64 {
	return math.Abs(planar.Area(p)) / 10000
}
