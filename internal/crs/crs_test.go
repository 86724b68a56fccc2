package crs

import (
	"errors"
	"testing"
)

func TestResolve_KnownIdentifiers(t *testing.T) {
	cases := map[string]string{
		"EPSG:4326":                                  "EPSG:4326",
		"epsg:4326":                                  "EPSG:4326",
		"urn:ogc:def:crs:EPSG::4326":                 "EPSG:4326",
		"urn:ogc:def:crs:OGC:1.3:CRS84":              "EPSG:4326",
		"http://www.opengis.net/def/crs/EPSG/0/4326": "EPSG:4326",
		"CRS84":                               "EPSG:4326",
		"+proj=longlat +datum=WGS84 +no_defs": "EPSG:4326",
		"EPSG:3857":                           "EPSG:3857",
		"EPSG:900913":                         "EPSG:3857",
		"http://www.opengis.net/def/crs/EPSG/0/152160": "Interrupted_Goode_Homolosine",
		"ESRI:54052": "Interrupted_Goode_Homolosine",
		"+proj=igh +ellps=WGS84 +units=m +no_defs": "Interrupted_Goode_Homolosine",
	}
	for in, want := range cases {
		p, err := Resolve(in)
		if err != nil {
			t.Fatalf("Resolve(%q) err=%v", in, err)
		}
		if p.Name() != want {
			t.Fatalf("Resolve(%q)=%s want %s", in, p.Name(), want)
		}
	}
}

func TestResolve_Unsupported(t *testing.T) {
	for _, in := range []string{"", "EPSG:", "EPSG:32633", "not a crs", "+proj=utm +zone=33", "PROJCS[\"UTM\"]"} {
		_, err := Resolve(in)
		if err == nil {
			t.Fatalf("Resolve(%q) expected error", in)
		}
		if !errors.Is(err, ErrUnsupportedCRS) {
			t.Fatalf("Resolve(%q) err=%v want ErrUnsupportedCRS", in, err)
		}
	}
}

func TestWebMercator_RoundTrip(t *testing.T) {
	m := WebMercator{}
	x, y, err := m.Forward(13.4, 52.5)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	lon, lat, err := m.Inverse(x, y)
	if err != nil {
		t.Fatalf("inverse: %v", err)
	}
	if d := lon - 13.4; d > 1e-9 || d < -1e-9 {
		t.Fatalf("lon=%v want 13.4", lon)
	}
	if d := lat - 52.5; d > 1e-9 || d < -1e-9 {
		t.Fatalf("lat=%v want 52.5", lat)
	}
}
