// Package crs resolves coordinate reference system identifiers into
// projections between geographic WGS84 coordinates and planar map units.
package crs

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedCRS = errors.New("unsupported coordinate reference system")

// Projection converts between WGS84 longitude/latitude (degrees) and the
// coordinates of a specific CRS.
type Projection interface {
	Forward(lon, lat float64) (x, y float64, err error)
	Inverse(x, y float64) (lon, lat float64, err error)
	Name() string
}

// CoverageCRS describes the native projection of a coverage provider.
// Values are immutable and handed to the reprojector at construction time.
type CoverageCRS struct {
	Name       string
	WKT        string
	URI        string
	Projection Projection
}

// Resolve maps an identifier (EPSG code, OGC URN/URI, PROJ string or WKT)
// to a Projection. Only the reference systems the service can reproject
// exactly are supported.
func Resolve(name string) (Projection, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrUnsupportedCRS)
	}

	if strings.HasPrefix(s, "+") {
		return resolveProj(s)
	}
	upper := strings.ToUpper(s)
	if strings.HasPrefix(upper, "GEOGCS[") || strings.HasPrefix(upper, "PROJCS[") {
		return resolveWKT(s)
	}

	auth, code, ok := parseAuthority(s)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCRS, name)
	}
	switch auth + ":" + code {
	case "EPSG:4326", "OGC:CRS84", "OGC:84":
		return Geographic{}, nil
	case "EPSG:3857", "EPSG:900913", "EPSG:3785", "ESRI:102100", "ESRI:102113":
		return WebMercator{}, nil
	case "EPSG:152160", "ESRI:54052":
		return NewHomolosine(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedCRS, name)
}

func parseAuthority(s string) (auth, code string, ok bool) {
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "urn:ogc:def:crs:"):
		// urn:ogc:def:crs:EPSG::4326, urn:ogc:def:crs:OGC:1.3:CRS84
		parts := strings.Split(s[len("urn:ogc:def:crs:"):], ":")
		if len(parts) < 2 {
			return "", "", false
		}
		return strings.ToUpper(parts[0]), strings.ToUpper(parts[len(parts)-1]), true
	case strings.Contains(lower, "opengis.net/def/crs/"):
		i := strings.Index(lower, "opengis.net/def/crs/") + len("opengis.net/def/crs/")
		parts := strings.Split(strings.Trim(s[i:], "/"), "/")
		if len(parts) < 2 {
			return "", "", false
		}
		return strings.ToUpper(parts[0]), strings.ToUpper(parts[len(parts)-1]), true
	}

	switch strings.ToUpper(s) {
	case "CRS84", "WGS84":
		return "OGC", "CRS84", true
	}

	i := strings.Index(s, ":")
	if i <= 0 {
		return "", "", false
	}
	code = strings.TrimLeft(s[i+1:], ":")
	if code == "" {
		return "", "", false
	}
	return strings.ToUpper(s[:i]), strings.ToUpper(code), true
}

func resolveProj(s string) (Projection, error) {
	params := map[string]string{}
	for _, tok := range strings.Fields(s) {
		tok = strings.TrimPrefix(tok, "+")
		k, v, _ := strings.Cut(tok, "=")
		params[strings.ToLower(k)] = v
	}
	switch params["proj"] {
	case "longlat", "latlong", "lonlat", "latlon":
		if d, ok := params["datum"]; ok && !strings.EqualFold(d, "WGS84") {
			return nil, fmt.Errorf("%w: datum %q", ErrUnsupportedCRS, d)
		}
		return Geographic{}, nil
	case "igh":
		return NewHomolosine(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedCRS, s)
}

func resolveWKT(s string) (Projection, error) {
	upper := strings.ToUpper(s)
	switch {
	case strings.HasPrefix(upper, "PROJCS[") && strings.Contains(upper, "INTERRUPTED_GOODE_HOMOLOSINE"):
		return NewHomolosine(), nil
	case strings.HasPrefix(upper, "GEOGCS[") && strings.Contains(upper, "WGS_1984"):
		return Geographic{}, nil
	}
	return nil, fmt.Errorf("%w: unrecognised WKT", ErrUnsupportedCRS)
}
