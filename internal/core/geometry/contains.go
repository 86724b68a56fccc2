package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Contains reports whether pt lies in the interior of p. Points on any ring
// boundary are outside, points inside holes are outside.
func Contains(p orb.Polygon, pt orb.Point) bool {
	if len(p) == 0 {
		return false
	}
	for _, ring := range p {
		if onRing(ring, pt) {
			return false
		}
	}
	return planar.PolygonContains(p, pt)
}

// Filter keeps the (point, value) pairs whose point is inside p, in input order.
func Filter(p orb.Polygon, points []orb.Point, values []float64) ([]orb.Point, []float64) {
	n := min(len(points), len(values))
	bound := Bounds(p)
	keptPts := make([]orb.Point, 0, n/2)
	keptVals := make([]float64, 0, n/2)
	for i := 0; i < n; i++ {
		pt := points[i]
		if !bound.Contains(pt) {
			continue
		}
		if Contains(p, pt) {
			keptPts = append(keptPts, pt)
			keptVals = append(keptVals, values[i])
		}
	}
	return keptPts, keptVals
}

func onRing(r orb.Ring, pt orb.Point) bool {
	for i := 1; i < len(r); i++ {
		if onSegment(r[i-1], r[i], pt) {
			return true
		}
	}
	return false
}

func onSegment(a, b, pt orb.Point) bool {
	cross := (b[0]-a[0])*(pt[1]-a[1]) - (b[1]-a[1])*(pt[0]-a[0])
	if cross != 0 {
		return false
	}
	return pt[0] >= min(a[0], b[0]) && pt[0] <= max(a[0], b[0]) &&
		pt[1] >= min(a[1], b[1]) && pt[1] <= max(a[1], b[1])
}
