// Package geometry reprojects field boundaries into a coverage CRS and
// answers the planar questions the sampling pipeline asks of them.
package geometry

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/soilgrids-stats/internal/crs"
)

var ErrDegenerate = errors.New("degenerate polygon")

// ReprojectionError reports a polygon that could not be moved into the
// coverage CRS, either because the source CRS is unknown or the geometry
// is unusable.
type ReprojectionError struct {
	CRS string
	Err error
}

func (e *ReprojectionError) Error() string {
	return fmt.Sprintf("reproject from %q: %v", e.CRS, e.Err)
}

func (e *ReprojectionError) Unwrap() error { return e.Err }

type Reprojector struct {
	target crs.CoverageCRS
}

func NewReprojector(target crs.CoverageCRS) (*Reprojector, error) {
	if target.Projection == nil {
		return nil, errors.New("coverage crs has no projection")
	}
	return &Reprojector{target: target}, nil
}

func (r *Reprojector) Target() crs.CoverageCRS { return r.target }

// Reproject returns a copy of p expressed in the coverage CRS. Ring order,
// vertex order and closure are preserved.
func (r *Reprojector) Reproject(p orb.Polygon, source string) (orb.Polygon, error) {
	if err := ValidatePolygon(p); err != nil {
		return nil, &ReprojectionError{CRS: source, Err: err}
	}
	src, err := crs.Resolve(source)
	if err != nil {
		return nil, &ReprojectionError{CRS: source, Err: err}
	}
	out, err := transform(p, src, r.target.Projection)
	if err != nil {
		return nil, &ReprojectionError{CRS: source, Err: err}
	}
	return out, nil
}

// Inverse moves a polygon in the coverage CRS back into the source CRS.
func (r *Reprojector) Inverse(p orb.Polygon, source string) (orb.Polygon, error) {
	dst, err := crs.Resolve(source)
	if err != nil {
		return nil, &ReprojectionError{CRS: source, Err: err}
	}
	out, err := transform(p, r.target.Projection, dst)
	if err != nil {
		return nil, &ReprojectionError{CRS: source, Err: err}
	}
	return out, nil
}

func transform(p orb.Polygon, from, to crs.Projection) (orb.Polygon, error) {
	if from.Name() == to.Name() {
		return p.Clone(), nil
	}
	out := make(orb.Polygon, len(p))
	for i, ring := range p {
		nr := make(orb.Ring, len(ring))
		for j, pt := range ring {
			lon, lat, err := from.Inverse(pt[0], pt[1])
			if err != nil {
				return nil, fmt.Errorf("ring %d vertex %d: %w", i, j, err)
			}
			x, y, err := to.Forward(lon, lat)
			if err != nil {
				return nil, fmt.Errorf("ring %d vertex %d: %w", i, j, err)
			}
			nr[j] = orb.Point{x, y}
		}
		out[i] = nr
	}
	return out, nil
}

// ValidatePolygon checks every ring is closed, has at least four vertices
// and spans more than a single point.
func ValidatePolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: no rings", ErrDegenerate)
	}
	for i, ring := range p {
		if len(ring) < 4 {
			return fmt.Errorf("%w: ring %d has %d points, need at least 4", ErrDegenerate, i, len(ring))
		}
		if !ring.Closed() {
			return fmt.Errorf("%w: ring %d is not closed", ErrDegenerate, i)
		}
		if zeroLength(ring) {
			return fmt.Errorf("%w: ring %d has zero length", ErrDegenerate, i)
		}
	}
	return nil
}

func zeroLength(r orb.Ring) bool {
	for _, pt := range r[1:] {
		if pt != r[0] {
			return false
		}
	}
	return true
}
