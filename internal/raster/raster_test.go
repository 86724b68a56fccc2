package raster_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/soilgrids-stats/internal/raster"
	"github.com/mohammed-shakir/soilgrids-stats/internal/raster/rastertest"
)

func grid4x4() rastertest.Options {
	return rastertest.Options{
		Width: 4, Height: 4,
		Values:  rastertest.Seq(16),
		OriginX: 1000, OriginY: 2000,
		PixelW: 250, PixelH: 250,
		EPSG: 3857,
	}
}

func TestOpen_Metadata(t *testing.T) {
	o := grid4x4()
	o.NoData = rastertest.Float(-32768)
	ds, err := raster.Open(rastertest.MustEncode(o))
	require.NoError(t, err)
	defer ds.Close()

	assert.Equal(t, 4, ds.Width())
	assert.Equal(t, 4, ds.Height())
	assert.Equal(t, 1, ds.Bands())
	assert.Equal(t, 3857, ds.EPSG())
	assert.Equal(t, raster.Affine{A: 250, C: 1000, E: -250, F: 2000}, ds.Transform())

	nd, ok := ds.NoData()
	assert.True(t, ok)
	assert.Equal(t, -32768.0, nd)
	assert.True(t, ds.IsNoData(-32768))
	assert.True(t, ds.IsNoData(math.NaN()))
	assert.False(t, ds.IsNoData(0))
}

func TestRead_Encodings(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*rastertest.Options)
	}{
		{"float32 strip", func(*rastertest.Options) {}},
		{"float64 big endian", func(o *rastertest.Options) { o.Format = rastertest.Float64; o.BigEndian = true }},
		{"uint8", func(o *rastertest.Options) { o.Format = rastertest.Uint8 }},
		{"int16 deflate predictor", func(o *rastertest.Options) {
			o.Format = rastertest.Int16
			o.Compression = rastertest.Deflate
			o.Predictor = 2
		}},
		{"uint16 big endian predictor", func(o *rastertest.Options) {
			o.Format = rastertest.Uint16
			o.BigEndian = true
			o.Predictor = 2
		}},
		{"float32 float predictor", func(o *rastertest.Options) {
			o.Compression = rastertest.Deflate
			o.Predictor = 3
		}},
		{"float64 float predictor big endian", func(o *rastertest.Options) {
			o.Format = rastertest.Float64
			o.BigEndian = true
			o.Predictor = 3
		}},
		{"int32 packbits", func(o *rastertest.Options) {
			o.Format = rastertest.Int32
			o.Compression = rastertest.PackBits
		}},
		{"multiple strips", func(o *rastertest.Options) { o.RowsPerStrip = 3 }},
		{"tiles with padding", func(o *rastertest.Options) { o.TileSize = 3 }},
		{"model transformation", func(o *rastertest.Options) { o.Transformation = true }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := grid4x4()
			tc.mod(&o)
			ds, err := raster.Open(rastertest.MustEncode(o))
			require.NoError(t, err)
			defer ds.Close()

			got, err := ds.Read(1)
			require.NoError(t, err)
			assert.Equal(t, rastertest.Seq(16), got)
			assert.Equal(t, raster.Affine{A: 250, C: 1000, E: -250, F: 2000}, ds.Transform())
		})
	}
}

func TestRead_Bands(t *testing.T) {
	second := make([]float64, 16)
	for i := range second {
		second[i] = float64(100 + i)
	}
	for _, planar := range []bool{false, true} {
		o := grid4x4()
		o.Values = nil
		o.Bands = [][]float64{rastertest.Seq(16), second}
		o.Planar = planar
		o.Predictor = 3

		ds, err := raster.Open(rastertest.MustEncode(o))
		require.NoError(t, err)
		assert.Equal(t, 2, ds.Bands())

		got, err := ds.Read(2)
		require.NoError(t, err)
		assert.Equal(t, second, got, "planar=%v", planar)

		_, err = ds.Read(3)
		assert.ErrorIs(t, err, raster.ErrBand)
		_ = ds.Close()
	}
}

func TestPixelIsPoint(t *testing.T) {
	o := grid4x4()
	o.PixelIsPoint = true
	ds, err := raster.Open(rastertest.MustEncode(o))
	require.NoError(t, err)
	defer ds.Close()
	assert.InDelta(t, 1000, ds.Transform().C, 1e-9)
	assert.InDelta(t, 2000, ds.Transform().F, 1e-9)
}

func TestOpen_Errors(t *testing.T) {
	_, err := raster.Open([]byte("<ows:ExceptionReport/>"))
	assert.ErrorIs(t, err, raster.ErrNotTIFF)

	_, err = raster.Open([]byte("II\x2b\x00\x08\x00\x00\x00"))
	assert.ErrorIs(t, err, raster.ErrUnsupported)

	_, err = raster.Open(rastertest.MustEncode(grid4x4()), raster.WithMaxCells(15))
	assert.ErrorIs(t, err, raster.ErrTooLarge)

	data := rastertest.MustEncode(grid4x4())
	_, err = raster.Open(data[:len(data)-40])
	assert.Error(t, err)
}

func TestOpen_RejectsOversizedTiles(t *testing.T) {
	for _, c := range []rastertest.Compression{rastertest.None, rastertest.Deflate, rastertest.PackBits} {
		o := rastertest.Options{
			Width: 1, Height: 1, Values: []float64{1},
			TileSize:     1,
			DeclaredTile: [2]int{math.MaxInt32, math.MaxInt32},
			Compression:  c,
		}
		data := rastertest.MustEncode(o)
		require.NotPanics(t, func() {
			_, err := raster.Open(data)
			assert.ErrorIs(t, err, raster.ErrMalformed, "compression %d", c)
		})

		// Declared tile within the 16px padding but larger than the payload.
		o.DeclaredTile = [2]int{16, 16}
		ds, err := raster.Open(rastertest.MustEncode(o))
		require.NoError(t, err)
		require.NotPanics(t, func() {
			_, err = ds.Read(1)
		})
		assert.ErrorIs(t, err, raster.ErrMalformed, "compression %d", c)
		_ = ds.Close()
	}
}

func TestOpen_ChunkOverCellLimit(t *testing.T) {
	o := rastertest.Options{
		Width: 300, Height: 300, Values: rastertest.Seq(300 * 300),
		Format:       rastertest.Uint8,
		TileSize:     16,
		DeclaredTile: [2]int{304, 304},
	}
	_, err := raster.Open(rastertest.MustEncode(o), raster.WithMaxCells(300*300))
	assert.ErrorIs(t, err, raster.ErrTooLarge)
}

func readFixture(t *testing.T, name string) *raster.Dataset {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	ds, err := raster.Open(b)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

// lcgBytes mirrors the generator behind testdata/lzw_uint8.tif: a run of 64
// nines followed by the high bytes of a 31-bit LCG seeded with 1.
func lcgBytes(n int) []float64 {
	out := make([]float64, n)
	x := uint64(1)
	for i := range out {
		if i < 64 {
			out[i] = 9
			continue
		}
		x = (x*1103515245 + 12345) % (1 << 31)
		out[i] = float64((x >> 16) & 0xff)
	}
	return out
}

func TestRead_LZW(t *testing.T) {
	ds := readFixture(t, "lzw_uint8.tif")
	assert.Equal(t, 32, ds.Width())
	assert.Equal(t, 32, ds.Height())
	assert.Equal(t, raster.Affine{A: 10, C: 1000, E: -10, F: 2000}, ds.Transform())
	nd, ok := ds.NoData()
	assert.True(t, ok)
	assert.Equal(t, 0.0, nd)

	got, err := ds.Read(1)
	require.NoError(t, err)
	want := lcgBytes(32 * 32)
	assert.Equal(t, want, got)
	assert.Equal(t, []float64{198, 126, 129, 107}, got[64:68])
}

func TestRead_LZWTiledPredictor(t *testing.T) {
	ds := readFixture(t, "lzw_int16_pred2.tif")

	got, err := ds.Read(1)
	require.NoError(t, err)
	require.Len(t, got, 32*32)
	for i, v := range got {
		if v != float64(i*3-1500) {
			t.Fatalf("cell %d = %v, want %d", i, v, i*3-1500)
		}
	}
}

func TestClose(t *testing.T) {
	ds, err := raster.Open(rastertest.MustEncode(grid4x4()))
	require.NoError(t, err)
	require.NoError(t, ds.Close())
	require.NoError(t, ds.Close())

	_, err = ds.Read(1)
	assert.ErrorIs(t, err, raster.ErrClosed)
}

func TestParseOffset(t *testing.T) {
	for name, want := range map[string]raster.Offset{
		"center":      raster.Center,
		"ul":          raster.UpperLeft,
		"UR":          raster.UpperRight,
		"lower-left":  raster.LowerLeft,
		" lr ":        raster.LowerRight,
		"upper-right": raster.UpperRight,
	} {
		got, err := raster.ParseOffset(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := raster.ParseOffset("middle")
	assert.ErrorIs(t, err, raster.ErrInvalidOffset)
}

func TestSample_ColumnMajor(t *testing.T) {
	o := rastertest.Options{
		Width: 3, Height: 2,
		Values:  []float64{1, 2, 3, 4, 5, 6},
		OriginX: 0, OriginY: 20,
		PixelW: 10, PixelH: 10,
	}
	ds, err := raster.Open(rastertest.MustEncode(o))
	require.NoError(t, err)
	defer ds.Close()

	pts, vals, err := raster.Sample(ds, 1, raster.Center)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, vals)
	assert.Equal(t, []orb.Point{
		{5, 15}, {5, 5},
		{15, 15}, {15, 5},
		{25, 15}, {25, 5},
	}, pts)
}

func TestSample_Offsets(t *testing.T) {
	data := rastertest.MustEncode(rastertest.Options{
		Width: 1, Height: 1, Values: []float64{7},
		OriginX: 100, OriginY: 200, PixelW: 10, PixelH: 10,
	})
	cases := map[string]orb.Point{
		"center": {105, 195},
		"ul":     {100, 200},
		"ur":     {110, 200},
		"ll":     {100, 190},
		"lr":     {110, 190},
	}
	ds, err := raster.Open(data)
	require.NoError(t, err)
	defer ds.Close()
	for name, want := range cases {
		off, err := raster.ParseOffset(name)
		require.NoError(t, err, name)
		pts, vals, err := raster.Sample(ds, 1, off)
		require.NoError(t, err, name)
		assert.Equal(t, []orb.Point{want}, pts, name)
		assert.Equal(t, []float64{7}, vals, name)
	}
}

func TestAffine_Translate(t *testing.T) {
	a := raster.Affine{A: 2, B: 0.5, C: 10, D: -0.25, E: -3, F: 40}
	got := a.Translate(0.5, 1).Apply(3, 4)
	want := a.Apply(3.5, 5)
	assert.InDelta(t, want[0], got[0], 1e-12)
	assert.InDelta(t, want[1], got[1], 1e-12)

	w, h := a.PixelSize()
	assert.Equal(t, 2.0, w)
	assert.Equal(t, 3.0, h)
}
