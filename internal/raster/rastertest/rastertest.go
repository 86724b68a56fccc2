// Package rastertest writes small synthetic GeoTIFFs for tests.
package rastertest

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/klauspost/compress/zlib"
)

type Format int

const (
	Float32 Format = iota
	Float64
	Uint8
	Uint16
	Int16
	Int32
)

func (f Format) bits() int {
	switch f {
	case Uint8:
		return 8
	case Uint16, Int16:
		return 16
	case Int32, Float32:
		return 32
	default:
		return 64
	}
}

func (f Format) sampleFormat() uint16 {
	switch f {
	case Float32, Float64:
		return 3
	case Int16, Int32:
		return 2
	default:
		return 1
	}
}

type Compression int

const (
	None Compression = iota
	Deflate
	PackBits
)

// Options describes the image. Values is shorthand for a single band.
// Grid values are row-major, Width*Height long.
type Options struct {
	Width, Height int
	Values        []float64
	Bands         [][]float64
	Format        Format

	// Upper-left corner of the grid and cell size in map units.
	OriginX, OriginY float64
	PixelW, PixelH   float64

	EPSG   int
	NoData *float64

	BigEndian   bool
	Compression Compression
	Predictor   int
	TileSize    int
	// DeclaredTile, when set, is written as TileWidth/TileLength in place of
	// TileSize. The encoded tiles keep TileSize.
	DeclaredTile   [2]int
	RowsPerStrip   int
	Planar         bool
	PixelIsPoint   bool
	Transformation bool
}

// Float returns a pointer to v, for Options.NoData.
func Float(v float64) *float64 { return &v }

// Seq returns 1..n as float64s.
func Seq(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func MustEncode(o Options) []byte {
	b, err := Encode(o)
	if err != nil {
		panic(err)
	}
	return b
}

func Encode(o Options) ([]byte, error) {
	bands := o.Bands
	if len(bands) == 0 {
		bands = [][]float64{o.Values}
	}
	if o.Width <= 0 || o.Height <= 0 {
		return nil, errors.New("rastertest: width and height must be positive")
	}
	for i, b := range bands {
		if len(b) != o.Width*o.Height {
			return nil, fmt.Errorf("rastertest: band %d has %d values, want %d", i+1, len(b), o.Width*o.Height)
		}
	}
	if o.PixelW == 0 {
		o.PixelW = 1
	}
	if o.PixelH == 0 {
		o.PixelH = 1
	}
	if o.Predictor == 0 {
		o.Predictor = 1
	}

	var bo binary.ByteOrder = binary.LittleEndian
	magic := []byte("II")
	if o.BigEndian {
		bo = binary.BigEndian
		magic = []byte("MM")
	}

	spp := len(bands)
	bps := o.Format.bits() / 8
	cw, ch := o.Width, o.Height
	tiled := o.TileSize > 0
	if tiled {
		cw, ch = o.TileSize, o.TileSize
	} else if o.RowsPerStrip > 0 && o.RowsPerStrip < o.Height {
		ch = o.RowsPerStrip
	}
	across := (o.Width + cw - 1) / cw
	down := (o.Height + ch - 1) / ch

	planes := [][]int{nil}
	stride := spp
	if o.Planar {
		planes = make([][]int, spp)
		for i := range planes {
			planes[i] = []int{i}
		}
		stride = 1
	} else {
		all := make([]int, spp)
		for i := range all {
			all[i] = i
		}
		planes[0] = all
	}

	var chunks [][]byte
	for _, plane := range planes {
		for cy := 0; cy < down; cy++ {
			for cx := 0; cx < across; cx++ {
				rows := ch
				if !tiled && (cy+1)*ch > o.Height {
					rows = o.Height - cy*ch
				}
				rowBytes := cw * stride * bps
				buf := make([]byte, 0, rows*rowBytes)
				for r := 0; r < rows; r++ {
					row := make([]byte, rowBytes)
					for c := 0; c < cw; c++ {
						x, y := cx*cw+c, cy*ch+r
						for si, s := range plane {
							v := 0.0
							if x < o.Width && y < o.Height {
								v = bands[s][y*o.Width+x]
							}
							putSample(row[(c*stride+si)*bps:], o.Format, bo, v)
						}
					}
					switch o.Predictor {
					case 2:
						diffHorizontal(row, bo, bps, stride)
					case 3:
						diffFloat(row, bo, bps, stride)
					}
					buf = append(buf, row...)
				}
				c, err := compress(o.Compression, buf)
				if err != nil {
					return nil, err
				}
				chunks = append(chunks, c)
			}
		}
	}

	var body bytes.Buffer
	offsets := make([]uint32, len(chunks))
	counts := make([]uint32, len(chunks))
	for i, c := range chunks {
		offsets[i] = uint32(8 + body.Len())
		counts[i] = uint32(len(c))
		body.Write(c)
		if body.Len()%2 == 1 {
			body.WriteByte(0)
		}
	}

	w := &ifdWriter{bo: bo}
	w.longs(256, uint32(o.Width))
	w.longs(257, uint32(o.Height))
	w.shorts(258, repeat(uint16(o.Format.bits()), spp)...)
	w.shorts(259, compressionCode(o.Compression))
	w.shorts(262, 1)
	w.shorts(277, uint16(spp))
	planar := uint16(1)
	if o.Planar {
		planar = 2
	}
	w.shorts(284, planar)
	if o.Predictor != 1 {
		w.shorts(317, uint16(o.Predictor))
	}
	if tiled {
		tw, th := uint32(cw), uint32(ch)
		if o.DeclaredTile != [2]int{} {
			tw, th = uint32(o.DeclaredTile[0]), uint32(o.DeclaredTile[1])
		}
		w.longs(322, tw)
		w.longs(323, th)
		w.longs(324, offsets...)
		w.longs(325, counts...)
	} else {
		w.longs(273, offsets...)
		w.longs(278, uint32(ch))
		w.longs(279, counts...)
	}
	w.shorts(339, repeat(o.Format.sampleFormat(), spp)...)

	originX, originY := o.OriginX, o.OriginY
	if o.PixelIsPoint {
		originX += o.PixelW / 2
		originY -= o.PixelH / 2
	}
	if o.Transformation {
		w.doubles(34264,
			o.PixelW, 0, 0, originX,
			0, -o.PixelH, 0, originY,
			0, 0, 0, 0,
			0, 0, 0, 1)
	} else {
		w.doubles(33550, o.PixelW, o.PixelH, 0)
		w.doubles(33922, 0, 0, 0, originX, originY, 0)
	}
	w.shorts(34735, geoKeys(o.EPSG, o.PixelIsPoint)...)
	if o.NoData != nil {
		w.ascii(42113, strconv.FormatFloat(*o.NoData, 'g', -1, 64))
	}

	return w.finish(magic, body.Bytes()), nil
}

func putSample(b []byte, f Format, bo binary.ByteOrder, v float64) {
	switch f {
	case Uint8:
		b[0] = uint8(v)
	case Uint16:
		bo.PutUint16(b, uint16(v))
	case Int16:
		bo.PutUint16(b, uint16(int16(v)))
	case Int32:
		bo.PutUint32(b, uint32(int32(v)))
	case Float32:
		bo.PutUint32(b, math.Float32bits(float32(v)))
	default:
		bo.PutUint64(b, math.Float64bits(v))
	}
}

func diffHorizontal(row []byte, bo binary.ByteOrder, bps, stride int) {
	n := len(row) / bps
	for i := n - 1; i >= stride; i-- {
		switch bps {
		case 1:
			row[i] -= row[i-stride]
		case 2:
			bo.PutUint16(row[i*2:], bo.Uint16(row[i*2:])-bo.Uint16(row[(i-stride)*2:]))
		case 4:
			bo.PutUint32(row[i*4:], bo.Uint32(row[i*4:])-bo.Uint32(row[(i-stride)*4:]))
		case 8:
			bo.PutUint64(row[i*8:], bo.Uint64(row[i*8:])-bo.Uint64(row[(i-stride)*8:]))
		}
	}
}

// diffFloat splits the row into big-endian byte planes and differences them.
func diffFloat(row []byte, bo binary.ByteOrder, bps, stride int) {
	wc := len(row) / bps
	tmp := make([]byte, len(row))
	for c := 0; c < wc; c++ {
		s := row[c*bps : (c+1)*bps]
		for b := 0; b < bps; b++ {
			v := s[b]
			if bo == binary.LittleEndian {
				v = s[bps-1-b]
			}
			tmp[b*wc+c] = v
		}
	}
	copy(row, tmp)
	for i := len(row) - 1; i >= stride; i-- {
		row[i] -= row[i-stride]
	}
}

func compress(c Compression, buf []byte) ([]byte, error) {
	switch c {
	case Deflate:
		var out bytes.Buffer
		zw := zlib.NewWriter(&out)
		if _, err := zw.Write(buf); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return out.Bytes(), nil
	case PackBits:
		var out []byte
		for len(buf) > 0 {
			n := min(len(buf), 128)
			out = append(out, byte(n-1))
			out = append(out, buf[:n]...)
			buf = buf[n:]
		}
		return out, nil
	default:
		return buf, nil
	}
}

func compressionCode(c Compression) uint16 {
	switch c {
	case Deflate:
		return 8
	case PackBits:
		return 32773
	default:
		return 1
	}
}

func geoKeys(epsg int, pixelIsPoint bool) []uint16 {
	raster := uint16(1)
	if pixelIsPoint {
		raster = 2
	}
	model, key := uint16(1), uint16(3072)
	if epsg == 4326 {
		model, key = 2, 2048
	}
	code := uint16(32767)
	if epsg > 0 && epsg < 32767 {
		code = uint16(epsg)
	}
	return []uint16{
		1, 1, 0, 3,
		1024, 0, 1, model,
		1025, 0, 1, raster,
		key, 0, 1, code,
	}
}

func repeat(v uint16, n int) []uint16 {
	out := make([]uint16, n)
	for i := range out {
		out[i] = v
	}
	return out
}

type field struct {
	tag, typ uint16
	count    uint32
	data     []byte
}

type ifdWriter struct {
	bo     binary.ByteOrder
	fields []field
}

func (w *ifdWriter) shorts(tag uint16, vs ...uint16) {
	b := make([]byte, 2*len(vs))
	for i, v := range vs {
		w.bo.PutUint16(b[2*i:], v)
	}
	w.fields = append(w.fields, field{tag, 3, uint32(len(vs)), b})
}

func (w *ifdWriter) longs(tag uint16, vs ...uint32) {
	b := make([]byte, 4*len(vs))
	for i, v := range vs {
		w.bo.PutUint32(b[4*i:], v)
	}
	w.fields = append(w.fields, field{tag, 4, uint32(len(vs)), b})
}

func (w *ifdWriter) doubles(tag uint16, vs ...float64) {
	b := make([]byte, 8*len(vs))
	for i, v := range vs {
		w.bo.PutUint64(b[8*i:], math.Float64bits(v))
	}
	w.fields = append(w.fields, field{tag, 12, uint32(len(vs)), b})
}

func (w *ifdWriter) ascii(tag uint16, s string) {
	b := append([]byte(s), 0)
	w.fields = append(w.fields, field{tag, 2, uint32(len(b)), b})
}

// finish lays out header | body | out-of-line values | IFD.
func (w *ifdWriter) finish(magic, body []byte) []byte {
	sort.Slice(w.fields, func(i, j int) bool { return w.fields[i].tag < w.fields[j].tag })

	extraStart := 8 + len(body)
	var extra bytes.Buffer
	valueOff := make([]uint32, len(w.fields))
	for i, f := range w.fields {
		if len(f.data) <= 4 {
			continue
		}
		valueOff[i] = uint32(extraStart + extra.Len())
		extra.Write(f.data)
		if extra.Len()%2 == 1 {
			extra.WriteByte(0)
		}
	}
	ifdOff := extraStart + extra.Len()

	out := make([]byte, 8, ifdOff+2+12*len(w.fields)+4)
	copy(out, magic)
	w.bo.PutUint16(out[2:], 42)
	w.bo.PutUint32(out[4:], uint32(ifdOff))
	out = append(out, body...)
	out = append(out, extra.Bytes()...)

	ent := make([]byte, 2+12*len(w.fields)+4)
	w.bo.PutUint16(ent, uint16(len(w.fields)))
	for i, f := range w.fields {
		p := ent[2+12*i:]
		w.bo.PutUint16(p, f.tag)
		w.bo.PutUint16(p[2:], f.typ)
		w.bo.PutUint32(p[4:], f.count)
		if len(f.data) <= 4 {
			copy(p[8:12], f.data)
		} else {
			w.bo.PutUint32(p[8:], valueOff[i])
		}
	}
	return append(out, ent...)
}
