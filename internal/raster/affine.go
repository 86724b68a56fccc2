package raster

import "github.com/paulmach/orb"

// Affine maps a (column, row) grid index to map coordinates:
//
//	x = A*col + B*row + C
//	y = D*col + E*row + F
type Affine struct {
	A, B, C float64
	D, E, F float64
}

func (t Affine) Apply(col, row float64) orb.Point {
	return orb.Point{
		t.A*col + t.B*row + t.C,
		t.D*col + t.E*row + t.F,
	}
}

// Translate returns t composed with a grid-space shift, so that
// t.Translate(dc, dr).Apply(c, r) == t.Apply(c+dc, r+dr).
func (t Affine) Translate(dc, dr float64) Affine {
	return Affine{
		A: t.A, B: t.B, C: t.A*dc + t.B*dr + t.C,
		D: t.D, E: t.E, F: t.D*dc + t.E*dr + t.F,
	}
}

// PixelSize returns the absolute cell width and height for north-up grids.
func (t Affine) PixelSize() (float64, float64) {
	w, h := t.A, t.E
	if w < 0 {
		w = -w
	}
	if h < 0 {
		h = -h
	}
	return w, h
}
