package raster

import "errors"

var (
	ErrNotTIFF        = errors.New("raster: not a TIFF image")
	ErrUnsupported    = errors.New("raster: unsupported TIFF feature")
	ErrMalformed      = errors.New("raster: malformed TIFF")
	ErrNoGeoreference = errors.New("raster: image carries no georeference")
	ErrTooLarge       = errors.New("raster: image exceeds cell limit")
	ErrClosed         = errors.New("raster: dataset is closed")
	ErrBand           = errors.New("raster: band out of range")

	// ErrInvalidOffset is returned for an anchor name outside center|ul|ur|ll|lr.
	ErrInvalidOffset = errors.New("raster: invalid cell offset")
)
