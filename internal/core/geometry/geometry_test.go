package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/soilgrids-stats/internal/crs"
)

func homolosineCRS() crs.CoverageCRS {
	return crs.CoverageCRS{
		Name:       "Homolosine",
		URI:        "http://www.opengis.net/def/crs/EPSG/0/152160",
		Projection: crs.NewHomolosine(),
	}
}

func square(x0, y0, size float64) orb.Polygon {
	return orb.Polygon{{
		{x0, y0}, {x0 + size, y0}, {x0 + size, y0 + size}, {x0, y0 + size}, {x0, y0},
	}}
}

func TestReproject_PreservesClosureAndOrder(t *testing.T) {
	r, err := NewReprojector(homolosineCRS())
	require.NoError(t, err)

	in := square(5, 45, 0.01)
	out, err := r.Reproject(in, "EPSG:4326")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, out[0], 5)
	assert.True(t, out[0].Closed())

	// counter-clockwise input stays counter-clockwise
	assert.Equal(t, in[0].Orientation(), out[0].Orientation())

	// the input must not be mutated
	assert.Equal(t, orb.Point{5, 45}, in[0][0])
}

func TestReproject_RoundTrip(t *testing.T) {
	r, err := NewReprojector(homolosineCRS())
	require.NoError(t, err)

	in := square(-47.9, -15.8, 0.05)
	out, err := r.Reproject(in, "EPSG:4326")
	require.NoError(t, err)
	back, err := r.Inverse(out, "EPSG:4326")
	require.NoError(t, err)

	for i, pt := range in[0] {
		for k := 0; k < 2; k++ {
			rel := math.Abs(back[0][i][k]-pt[k]) / math.Abs(pt[k])
			assert.Less(t, rel, 1e-6, "vertex %d axis %d", i, k)
		}
	}
}

func TestReproject_IdentityForCoverageCRS(t *testing.T) {
	r, err := NewReprojector(homolosineCRS())
	require.NoError(t, err)
	in := square(1000, 2000, 250)
	out, err := r.Reproject(in, "http://www.opengis.net/def/crs/EPSG/0/152160")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReproject_Errors(t *testing.T) {
	r, err := NewReprojector(homolosineCRS())
	require.NoError(t, err)

	cases := map[string]struct {
		poly orb.Polygon
		crs  string
	}{
		"unknown crs":   {square(0, 0, 1), "EPSG:99999"},
		"too few":       {orb.Polygon{{{0, 0}, {1, 0}, {0, 0}}}, "EPSG:4326"},
		"not closed":    {orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}, "EPSG:4326"},
		"zero length":   {orb.Polygon{{{1, 1}, {1, 1}, {1, 1}, {1, 1}}}, "EPSG:4326"},
		"no rings":      {orb.Polygon{}, "EPSG:4326"},
		"out of domain": {square(179.5, 89.5, 1), "EPSG:4326"},
	}
	for name, tc := range cases {
		_, err := r.Reproject(tc.poly, tc.crs)
		var re *ReprojectionError
		if !errors.As(err, &re) {
			t.Fatalf("%s: err=%v want *ReprojectionError", name, err)
		}
	}
}

func TestBounds_BowTie(t *testing.T) {
	bowtie := orb.Polygon{{{0, 0}, {4, 3}, {4, 0}, {0, 3}, {0, 0}}}
	b := Bounds(bowtie)
	assert.Equal(t, orb.Point{0, 0}, b.Min)
	assert.Equal(t, orb.Point{4, 3}, b.Max)

	subsets := Subsets(b)
	require.Len(t, subsets, 2)
	assert.Equal(t, "X", subsets[0].Axis)
	assert.Equal(t, 0.0, subsets[0].Low)
	assert.Equal(t, 4.0, subsets[0].High)
	assert.Equal(t, "Y", subsets[1].Axis)
	assert.Equal(t, 3.0, subsets[1].High)
}

func TestSubsets_DegeneratePassThrough(t *testing.T) {
	line := orb.Polygon{{{2, 1}, {2, 5}, {2, 3}, {2, 1}}}
	s := Subsets(Bounds(line))
	assert.Equal(t, s[0].Low, s[0].High)
}

func TestContains_ExcludesBoundaryAndHoles(t *testing.T) {
	p := orb.Polygon{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
	}
	assert.True(t, Contains(p, orb.Point{1, 1}))
	assert.False(t, Contains(p, orb.Point{0, 5}), "edge")
	assert.False(t, Contains(p, orb.Point{10, 10}), "vertex")
	assert.False(t, Contains(p, orb.Point{5, 5}), "hole")
	assert.False(t, Contains(p, orb.Point{4, 5}), "hole edge")
	assert.False(t, Contains(p, orb.Point{11, 5}), "outside")
}

func TestFilter_PreservesOrder(t *testing.T) {
	p := square(0, 0, 10)
	pts := []orb.Point{{5, 5}, {20, 20}, {1, 9}, {0, 0}, {9, 1}}
	vals := []float64{1, 2, 3, 4, 5}

	gotPts, gotVals := Filter(p, pts, vals)
	assert.Equal(t, []orb.Point{{5, 5}, {1, 9}, {9, 1}}, gotPts)
	assert.Equal(t, []float64{1, 3, 5}, gotVals)
}

func TestFilter_AllOutside(t *testing.T) {
	p := square(0, 0, 1)
	pts, vals := Filter(p, []orb.Point{{5, 5}, {-3, 2}}, []float64{1, 2})
	assert.Empty(t, pts)
	assert.Empty(t, vals)
}

func TestAreaHectares(t *testing.T) {
	assert.InDelta(t, 1.0, AreaHectares(square(0, 0, 100)), 1e-9)
}
