package raster

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/image/tiff/lzw"
)

// TIFF compression schemes.
const (
	compressionNone     = 1
	compressionLZW      = 5
	compressionDeflate  = 8
	compressionPackBits = 32773
	compressionDeflate2 = 32946
)

// TIFF predictors.
const (
	predictorNone       = 1
	predictorHorizontal = 2
	predictorFloat      = 3
)

// TIFF sample formats.
const (
	sampleUint  = 1
	sampleInt   = 2
	sampleFloat = 3
	sampleVoid  = 4
)

// decompress inflates one strip or tile. want caps the output so a hostile
// stream cannot expand without bound.
func decompress(scheme uint64, raw []byte, want int) ([]byte, error) {
	var r io.Reader
	switch scheme {
	case compressionNone:
		return raw, nil
	case compressionLZW:
		lr := lzw.NewReader(bytes.NewReader(raw), lzw.MSB, 8)
		defer lr.Close()
		r = lr
	case compressionDeflate, compressionDeflate2:
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
		defer zr.Close()
		r = zr
	case compressionPackBits:
		return unpackBits(raw, want)
	default:
		return nil, fmt.Errorf("%w: compression %d", ErrUnsupported, scheme)
	}

	out, err := io.ReadAll(io.LimitReader(r, int64(want)))
	if err != nil && len(out) < want {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return out, nil
}

func unpackBits(src []byte, want int) ([]byte, error) {
	out := make([]byte, 0, want)
	for i := 0; i < len(src) && len(out) < want; {
		n := int(int8(src[i]))
		i++
		switch {
		case n >= 0:
			if i+n+1 > len(src) {
				return nil, fmt.Errorf("%w: packbits literal overruns input", ErrMalformed)
			}
			out = append(out, src[i:i+n+1]...)
			i += n + 1
		case n != -128:
			if i >= len(src) {
				return nil, fmt.Errorf("%w: packbits run overruns input", ErrMalformed)
			}
			for range 1 - n {
				out = append(out, src[i])
			}
			i++
		}
	}
	return out, nil
}

// undoHorizontal reverses predictor 2 on one row of integer samples.
func undoHorizontal(row []byte, bo binary.ByteOrder, bps, stride int) {
	n := len(row) / bps
	switch bps {
	case 1:
		for i := stride; i < n; i++ {
			row[i] += row[i-stride]
		}
	case 2:
		for i := stride; i < n; i++ {
			v := bo.Uint16(row[i*2:]) + bo.Uint16(row[(i-stride)*2:])
			bo.PutUint16(row[i*2:], v)
		}
	case 4:
		for i := stride; i < n; i++ {
			v := bo.Uint32(row[i*4:]) + bo.Uint32(row[(i-stride)*4:])
			bo.PutUint32(row[i*4:], v)
		}
	case 8:
		for i := stride; i < n; i++ {
			v := bo.Uint64(row[i*8:]) + bo.Uint64(row[(i-stride)*8:])
			bo.PutUint64(row[i*8:], v)
		}
	}
}

// undoFloat reverses predictor 3. The row comes back with every sample in
// big-endian byte order, whatever the file's byte order is.
func undoFloat(row []byte, bps, stride int) {
	for i := stride; i < len(row); i++ {
		row[i] += row[i-stride]
	}
	tmp := make([]byte, len(row))
	copy(tmp, row)
	wc := len(row) / bps
	for c := 0; c < wc; c++ {
		for b := 0; b < bps; b++ {
			row[bps*c+b] = tmp[b*wc+c]
		}
	}
}

type sampleFunc func([]byte) float64

func sampleDecoder(format uint64, bits int, bo binary.ByteOrder) (sampleFunc, error) {
	switch format {
	case sampleUint, sampleVoid:
		switch bits {
		case 8:
			return func(b []byte) float64 { return float64(b[0]) }, nil
		case 16:
			return func(b []byte) float64 { return float64(bo.Uint16(b)) }, nil
		case 32:
			return func(b []byte) float64 { return float64(bo.Uint32(b)) }, nil
		case 64:
			return func(b []byte) float64 { return float64(bo.Uint64(b)) }, nil
		}
	case sampleInt:
		switch bits {
		case 8:
			return func(b []byte) float64 { return float64(int8(b[0])) }, nil
		case 16:
			return func(b []byte) float64 { return float64(int16(bo.Uint16(b))) }, nil
		case 32:
			return func(b []byte) float64 { return float64(int32(bo.Uint32(b))) }, nil
		case 64:
			return func(b []byte) float64 { return float64(int64(bo.Uint64(b))) }, nil
		}
	case sampleFloat:
		switch bits {
		case 32:
			return func(b []byte) float64 { return float64(math.Float32frombits(bo.Uint32(b))) }, nil
		case 64:
			return func(b []byte) float64 { return math.Float64frombits(bo.Uint64(b)) }, nil
		}
	}
	return nil, fmt.Errorf("%w: sample format %d with %d bits", ErrUnsupported, format, bits)
}
