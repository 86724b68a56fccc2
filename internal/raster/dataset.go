// Package raster decodes single-image GeoTIFF coverages into grids of cell
// values and samples them as map-space points.
package raster

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DefaultMaxCells bounds width*height of an opened image.
const DefaultMaxCells = 1 << 24

// minChunkCells lets a 256x256 tile through whatever the cell limit is.
const minChunkCells = 256 * 256

type options struct {
	maxCells int
}

type Option func(*options)

// WithMaxCells overrides DefaultMaxCells. Non-positive values are ignored.
func WithMaxCells(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxCells = n
		}
	}
}

// Dataset is an opened GeoTIFF backed by the caller's byte buffer. It must be
// closed once the caller is done reading.
type Dataset struct {
	data []byte
	bo   binary.ByteOrder
	d    *ifd

	transform Affine
	epsg      int
	noData    float64
	hasNoData bool
}

func Open(data []byte, opts ...Option) (*Dataset, error) {
	o := options{maxCells: DefaultMaxCells}
	for _, fn := range opts {
		fn(&o)
	}

	d, bo, err := parseTIFF(data)
	if err != nil {
		return nil, err
	}
	if int64(d.width)*int64(d.height) > int64(o.maxCells) {
		return nil, fmt.Errorf("%w: %dx%d > %d cells", ErrTooLarge, d.width, d.height, o.maxCells)
	}
	if d.bitsPerSample%8 != 0 {
		return nil, fmt.Errorf("%w: %d bits per sample", ErrUnsupported, d.bitsPerSample)
	}
	if _, err := sampleDecoder(d.sampleFormat, d.bitsPerSample, bo); err != nil {
		return nil, err
	}
	switch d.predictor {
	case predictorNone:
	case predictorHorizontal:
		if d.sampleFormat == sampleFloat {
			return nil, fmt.Errorf("%w: horizontal predictor on float samples", ErrUnsupported)
		}
	case predictorFloat:
		if d.sampleFormat != sampleFloat {
			return nil, fmt.Errorf("%w: float predictor on integer samples", ErrUnsupported)
		}
	default:
		return nil, fmt.Errorf("%w: predictor %d", ErrUnsupported, d.predictor)
	}
	if d.planar != 1 && d.planar != 2 {
		return nil, fmt.Errorf("%w: planar configuration %d", ErrUnsupported, d.planar)
	}
	want := d.chunksPerPlane()
	if d.planar == 2 {
		want *= d.samplesPerPixel
	}
	if len(d.chunkOffsets) < want {
		return nil, fmt.Errorf("%w: %d chunks, want %d", ErrMalformed, len(d.chunkOffsets), want)
	}

	if err := checkChunk(d, o.maxCells); err != nil {
		return nil, err
	}

	keys := parseGeoKeys(d.geoKeys)
	t, err := georeference(d, keys)
	if err != nil {
		return nil, err
	}
	nd, ok := parseNoData(d.noData)

	return &Dataset{
		data:      data,
		bo:        bo,
		d:         d,
		transform: t,
		epsg:      keys.epsg(),
		noData:    nd,
		hasNoData: ok,
	}, nil
}

// checkChunk bounds the decompressed size of one strip or tile to the cell
// limit at 8 bytes per cell, so Read never sizes a buffer from tags alone.
func checkChunk(d *ifd, maxCells int) error {
	limit := int64(max(maxCells, minChunkCells))
	cw, ch := d.chunkSize()
	cells := int64(cw) * int64(ch)
	if cells > limit {
		return fmt.Errorf("%w: %dx%d chunk > %d cells", ErrTooLarge, cw, ch, limit)
	}
	stride := int64(d.samplesPerPixel)
	if d.planar == 2 {
		stride = 1
	}
	if n := cells * stride * int64(d.bitsPerSample/8); n > limit*8 {
		return fmt.Errorf("%w: %d byte chunk > %d", ErrTooLarge, n, limit*8)
	}
	return nil
}

func (ds *Dataset) Width() int        { return ds.d.width }
func (ds *Dataset) Height() int       { return ds.d.height }
func (ds *Dataset) Bands() int        { return ds.d.samplesPerPixel }
func (ds *Dataset) Transform() Affine { return ds.transform }

// EPSG returns the code from the GeoKey directory, or 0 when the image uses
// a user-defined CRS.
func (ds *Dataset) EPSG() int { return ds.epsg }

func (ds *Dataset) NoData() (float64, bool) { return ds.noData, ds.hasNoData }

// IsNoData reports whether v is the nodata sentinel or NaN.
func (ds *Dataset) IsNoData(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	return ds.hasNoData && v == ds.noData
}

// Close drops the reference to the image buffer. It is safe to call twice.
func (ds *Dataset) Close() error {
	ds.data = nil
	return nil
}

// Read decodes one band (1-based) into a row-major slice of width*height
// values.
func (ds *Dataset) Read(band int) ([]float64, error) {
	if ds.data == nil {
		return nil, ErrClosed
	}
	d := ds.d
	if band < 1 || band > d.samplesPerPixel {
		return nil, fmt.Errorf("%w: band %d of %d", ErrBand, band, d.samplesPerPixel)
	}

	bps := d.bitsPerSample / 8
	order := ds.bo
	if d.predictor == predictorFloat {
		order = binary.BigEndian
	}
	dec, err := sampleDecoder(d.sampleFormat, d.bitsPerSample, order)
	if err != nil {
		return nil, err
	}

	stride, idx, base := d.samplesPerPixel, band-1, 0
	if d.planar == 2 {
		stride, idx, base = 1, 0, (band-1)*d.chunksPerPlane()
	}

	cw, ch := d.chunkSize()
	across, down := d.chunksAcross(), d.chunksDown()
	rowBytes := cw * stride * bps
	out := make([]float64, d.width*d.height)

	for cy := 0; cy < down; cy++ {
		for cx := 0; cx < across; cx++ {
			k := base + cy*across + cx
			rows := ch
			if !d.tiled && (cy+1)*ch > d.height {
				rows = d.height - cy*ch
			}
			buf, err := ds.chunk(k, rowBytes*rows)
			if err != nil {
				return nil, err
			}
			for r := 0; r < rows; r++ {
				y := cy*ch + r
				if y >= d.height {
					break
				}
				row := buf[r*rowBytes : (r+1)*rowBytes]
				switch d.predictor {
				case predictorHorizontal:
					undoHorizontal(row, ds.bo, bps, stride)
				case predictorFloat:
					undoFloat(row, bps, stride)
				}
				for c := 0; c < cw; c++ {
					x := cx*cw + c
					if x >= d.width {
						break
					}
					p := (c*stride + idx) * bps
					out[y*d.width+x] = dec(row[p : p+bps])
				}
			}
		}
	}
	return out, nil
}

// chunk returns a private copy of strip or tile k, decompressed to want bytes.
func (ds *Dataset) chunk(k, want int) ([]byte, error) {
	d := ds.d
	off, n := d.chunkOffsets[k], d.chunkByteCount[k]
	if off+n > uint64(len(ds.data)) {
		return nil, fmt.Errorf("%w: chunk %d out of bounds", ErrMalformed, k)
	}
	raw := ds.data[off : off+n]
	buf, err := decompress(d.compression, raw, want)
	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w", k, err)
	}
	if len(buf) < want {
		return nil, fmt.Errorf("%w: chunk %d has %d bytes, want %d", ErrMalformed, k, len(buf), want)
	}
	if d.compression == compressionNone {
		buf = append([]byte(nil), buf[:want]...)
	}
	return buf[:want], nil
}
