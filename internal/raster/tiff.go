package raster

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// TIFF tag ids.
const (
	tagImageWidth          = 256
	tagImageLength         = 257
	tagBitsPerSample       = 258
	tagCompression         = 259
	tagStripOffsets        = 273
	tagSamplesPerPixel     = 277
	tagRowsPerStrip        = 278
	tagStripByteCounts     = 279
	tagPlanarConfiguration = 284
	tagPredictor           = 317
	tagTileWidth           = 322
	tagTileLength          = 323
	tagTileOffsets         = 324
	tagTileByteCounts      = 325
	tagSampleFormat        = 339
	tagModelPixelScale     = 33550
	tagModelTiepoint       = 33922
	tagModelTransformation = 34264
	tagGeoKeyDirectory     = 34735
	tagGDALNoData          = 42113
)

// TIFF field types.
const (
	typeByte      = 1
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeSByte     = 6
	typeUndefined = 7
	typeSShort    = 8
	typeSLong     = 9
	typeSRational = 10
	typeFloat     = 11
	typeDouble    = 12
)

func typeSize(t uint16) int {
	switch t {
	case typeByte, typeASCII, typeSByte, typeUndefined:
		return 1
	case typeShort, typeSShort:
		return 2
	case typeLong, typeSLong, typeFloat:
		return 4
	case typeRational, typeSRational, typeDouble:
		return 8
	}
	return 0
}

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	raw   []byte
}

func (e entry) uints(bo binary.ByteOrder) ([]uint64, error) {
	out := make([]uint64, e.count)
	for i := range out {
		switch e.typ {
		case typeByte, typeUndefined:
			out[i] = uint64(e.raw[i])
		case typeShort:
			out[i] = uint64(bo.Uint16(e.raw[2*i:]))
		case typeLong:
			out[i] = uint64(bo.Uint32(e.raw[4*i:]))
		default:
			return nil, fmt.Errorf("tag %d: type %d is not an unsigned integer", e.tag, e.typ)
		}
	}
	return out, nil
}

func (e entry) uint(bo binary.ByteOrder) (uint64, error) {
	vs, err := e.uints(bo)
	if err != nil {
		return 0, err
	}
	if len(vs) == 0 {
		return 0, fmt.Errorf("tag %d: no values", e.tag)
	}
	return vs[0], nil
}

func (e entry) floats(bo binary.ByteOrder) ([]float64, error) {
	switch e.typ {
	case typeByte, typeShort, typeLong:
		vs, err := e.uints(bo)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(vs))
		for i, v := range vs {
			out[i] = float64(v)
		}
		return out, nil
	}

	out := make([]float64, e.count)
	for i := range out {
		switch e.typ {
		case typeDouble:
			out[i] = math.Float64frombits(bo.Uint64(e.raw[8*i:]))
		case typeFloat:
			out[i] = float64(math.Float32frombits(bo.Uint32(e.raw[4*i:])))
		case typeRational:
			num, den := bo.Uint32(e.raw[8*i:]), bo.Uint32(e.raw[8*i+4:])
			if den == 0 {
				return nil, fmt.Errorf("tag %d: zero denominator", e.tag)
			}
			out[i] = float64(num) / float64(den)
		default:
			return nil, fmt.Errorf("tag %d: type %d is not numeric", e.tag, e.typ)
		}
	}
	return out, nil
}

func (e entry) ascii() string {
	return strings.TrimRight(string(e.raw), "\x00 ")
}

// ifd holds the tags of the first image directory that matter for
// single-image GeoTIFF coverages.
type ifd struct {
	width, height   int
	bitsPerSample   int
	samplesPerPixel int
	compression     uint64
	predictor       uint64
	sampleFormat    uint64
	planar          uint64

	rowsPerStrip   int
	tiled          bool
	tileW, tileH   int
	chunkOffsets   []uint64
	chunkByteCount []uint64

	pixelScale     []float64
	tiepoint       []float64
	transformation []float64
	geoKeys        []uint64
	noData         string
}

func parseTIFF(data []byte) (*ifd, binary.ByteOrder, error) {
	if len(data) < 8 {
		return nil, nil, ErrNotTIFF
	}
	var bo binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, nil, ErrNotTIFF
	}
	switch bo.Uint16(data[2:4]) {
	case 42:
	case 43:
		return nil, nil, fmt.Errorf("%w: BigTIFF", ErrUnsupported)
	default:
		return nil, nil, ErrNotTIFF
	}

	entries, err := readIFD(data, bo, uint64(bo.Uint32(data[4:8])))
	if err != nil {
		return nil, nil, err
	}
	d, err := buildIFD(entries, bo)
	if err != nil {
		return nil, nil, err
	}
	return d, bo, nil
}

func readIFD(data []byte, bo binary.ByteOrder, off uint64) (map[uint16]entry, error) {
	if off+2 > uint64(len(data)) {
		return nil, fmt.Errorf("%w: ifd offset %d beyond %d bytes", ErrMalformed, off, len(data))
	}
	n := uint64(bo.Uint16(data[off:]))
	if off+2+n*12 > uint64(len(data)) {
		return nil, fmt.Errorf("%w: ifd with %d entries truncated", ErrMalformed, n)
	}

	entries := make(map[uint16]entry, n)
	for i := uint64(0); i < n; i++ {
		p := off + 2 + i*12
		e := entry{
			tag:   bo.Uint16(data[p:]),
			typ:   bo.Uint16(data[p+2:]),
			count: bo.Uint32(data[p+4:]),
		}
		size := uint64(typeSize(e.typ)) * uint64(e.count)
		if size == 0 {
			continue
		}
		if size <= 4 {
			e.raw = data[p+8 : p+8+size]
		} else {
			vo := uint64(bo.Uint32(data[p+8:]))
			if vo+size > uint64(len(data)) {
				return nil, fmt.Errorf("%w: tag %d values out of bounds", ErrMalformed, e.tag)
			}
			e.raw = data[vo : vo+size]
		}
		entries[e.tag] = e
	}
	return entries, nil
}

func buildIFD(entries map[uint16]entry, bo binary.ByteOrder) (*ifd, error) {
	req := func(tag uint16) (uint64, error) {
		e, ok := entries[tag]
		if !ok {
			return 0, fmt.Errorf("%w: missing tag %d", ErrMalformed, tag)
		}
		return e.uint(bo)
	}
	opt := func(tag uint16, def uint64) (uint64, error) {
		e, ok := entries[tag]
		if !ok {
			return def, nil
		}
		return e.uint(bo)
	}

	d := &ifd{}
	w, err := req(tagImageWidth)
	if err != nil {
		return nil, err
	}
	h, err := req(tagImageLength)
	if err != nil {
		return nil, err
	}
	if w == 0 || h == 0 || w > math.MaxInt32 || h > math.MaxInt32 {
		return nil, fmt.Errorf("%w: image size %dx%d", ErrMalformed, w, h)
	}
	d.width, d.height = int(w), int(h)

	spp, err := opt(tagSamplesPerPixel, 1)
	if err != nil {
		return nil, err
	}
	if spp == 0 || spp > 1<<12 {
		return nil, fmt.Errorf("%w: samples per pixel %d", ErrMalformed, spp)
	}
	d.samplesPerPixel = int(spp)

	bits := []uint64{1}
	if e, ok := entries[tagBitsPerSample]; ok {
		if bits, err = e.uints(bo); err != nil {
			return nil, err
		}
	}
	for _, b := range bits[1:] {
		if b != bits[0] {
			return nil, fmt.Errorf("%w: mixed bits per sample", ErrUnsupported)
		}
	}
	d.bitsPerSample = int(bits[0])

	if d.compression, err = opt(tagCompression, 1); err != nil {
		return nil, err
	}
	if d.predictor, err = opt(tagPredictor, 1); err != nil {
		return nil, err
	}
	if d.sampleFormat, err = opt(tagSampleFormat, 1); err != nil {
		return nil, err
	}
	if d.planar, err = opt(tagPlanarConfiguration, 1); err != nil {
		return nil, err
	}

	offTag, cntTag := uint16(tagStripOffsets), uint16(tagStripByteCounts)
	if _, ok := entries[tagTileWidth]; ok {
		d.tiled = true
		offTag, cntTag = tagTileOffsets, tagTileByteCounts
		tw, err := req(tagTileWidth)
		if err != nil {
			return nil, err
		}
		th, err := req(tagTileLength)
		if err != nil {
			return nil, err
		}
		if tw == 0 || th == 0 || tw > padTile(w) || th > padTile(h) {
			return nil, fmt.Errorf("%w: tile size %dx%d for %dx%d image", ErrMalformed, tw, th, w, h)
		}
		d.tileW, d.tileH = int(tw), int(th)
	} else {
		rps, err := opt(tagRowsPerStrip, uint64(d.height))
		if err != nil {
			return nil, err
		}
		if rps == 0 || rps > uint64(d.height) {
			rps = uint64(d.height)
		}
		d.rowsPerStrip = int(rps)
	}

	offs, ok := entries[offTag]
	if !ok {
		return nil, fmt.Errorf("%w: missing chunk offsets", ErrMalformed)
	}
	if d.chunkOffsets, err = offs.uints(bo); err != nil {
		return nil, err
	}
	cnts, ok := entries[cntTag]
	if !ok {
		return nil, fmt.Errorf("%w: missing chunk byte counts", ErrMalformed)
	}
	if d.chunkByteCount, err = cnts.uints(bo); err != nil {
		return nil, err
	}
	if len(d.chunkOffsets) != len(d.chunkByteCount) {
		return nil, fmt.Errorf("%w: %d offsets but %d byte counts", ErrMalformed, len(d.chunkOffsets), len(d.chunkByteCount))
	}

	if e, ok := entries[tagModelPixelScale]; ok {
		if d.pixelScale, err = e.floats(bo); err != nil {
			return nil, err
		}
	}
	if e, ok := entries[tagModelTiepoint]; ok {
		if d.tiepoint, err = e.floats(bo); err != nil {
			return nil, err
		}
	}
	if e, ok := entries[tagModelTransformation]; ok {
		if d.transformation, err = e.floats(bo); err != nil {
			return nil, err
		}
	}
	if e, ok := entries[tagGeoKeyDirectory]; ok {
		if d.geoKeys, err = e.uints(bo); err != nil {
			return nil, err
		}
	}
	if e, ok := entries[tagGDALNoData]; ok {
		d.noData = e.ascii()
	}
	return d, nil
}

// chunk layout helpers

// padTile rounds n up to the 16-pixel tile granularity.
func padTile(n uint64) uint64 {
	return (n + 15) &^ 15
}

func (d *ifd) chunkSize() (w, h int) {
	if d.tiled {
		return d.tileW, d.tileH
	}
	return d.width, d.rowsPerStrip
}

func (d *ifd) chunksAcross() int {
	w, _ := d.chunkSize()
	return (d.width + w - 1) / w
}

func (d *ifd) chunksDown() int {
	_, h := d.chunkSize()
	return (d.height + h - 1) / h
}

func (d *ifd) chunksPerPlane() int {
	return d.chunksAcross() * d.chunksDown()
}
