package crs

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// Geographic is WGS84 longitude/latitude in degrees, axis order lon/lat.
type Geographic struct{}

func (Geographic) Name() string { return "EPSG:4326" }

func (Geographic) Forward(lon, lat float64) (float64, float64, error) {
	if err := checkLonLat(lon, lat); err != nil {
		return 0, 0, err
	}
	return lon, lat, nil
}

func (Geographic) Inverse(x, y float64) (float64, float64, error) {
	if err := checkLonLat(x, y); err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// WebMercator is the spherical pseudo-Mercator used by web maps (EPSG:3857).
type WebMercator struct{}

func (WebMercator) Name() string { return "EPSG:3857" }

func (WebMercator) Forward(lon, lat float64) (float64, float64, error) {
	if err := checkLonLat(lon, lat); err != nil {
		return 0, 0, err
	}
	p := project.WGS84.ToMercator(orb.Point{lon, lat})
	return p[0], p[1], nil
}

func (WebMercator) Inverse(x, y float64) (float64, float64, error) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return 0, 0, fmt.Errorf("non-finite coordinate (%v, %v)", x, y)
	}
	p := project.Mercator.ToWGS84(orb.Point{x, y})
	return p[0], p[1], nil
}

func checkLonLat(lon, lat float64) error {
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return fmt.Errorf("non-finite coordinate (%v, %v)", lon, lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180,180]", lon)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90,90]", lat)
	}
	return nil
}
