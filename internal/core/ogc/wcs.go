package ogc

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	WCSVersion    = "2.0.1"
	FormatGeoTIFF = "image/tiff"
)

// Subset restricts one coverage axis to [Low, High].
type Subset struct {
	Axis string
	Low  float64
	High float64
}

// String renders the WCS 2.0 KVP form, e.g. X(-10.5,20).
func (s Subset) String() string {
	return fmt.Sprintf("%s(%s,%s)", s.Axis, formatFloat(s.Low), formatFloat(s.High))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// MapRoute is the MapServer mapfile path serving a product's coverages.
func MapRoute(product string) string {
	return "/map/" + strings.TrimSpace(product) + ".map"
}

type GetCoverageRequest struct {
	MapRoute   string
	CoverageID string
	Subsets    []Subset
	Format     string
	CRS        string
}

func BuildGetCoverageParams(q GetCoverageRequest) url.Values {
	params := url.Values{}
	if q.MapRoute != "" {
		params.Set("map", q.MapRoute)
	}
	params.Set("service", "WCS")
	params.Set("version", WCSVersion)
	params.Set("request", "GetCoverage")
	params.Set("coverageId", q.CoverageID)
	for _, s := range q.Subsets {
		params.Add("subset", s.String())
	}
	format := strings.TrimSpace(q.Format)
	if format == "" {
		format = FormatGeoTIFF
	}
	params.Set("format", format)
	if q.CRS != "" {
		params.Set("subsettingCrs", q.CRS)
		params.Set("outputCrs", q.CRS)
	}
	return params
}

func BuildGetCapabilitiesParams(mapRoute string) url.Values {
	params := url.Values{}
	if mapRoute != "" {
		params.Set("map", mapRoute)
	}
	params.Set("service", "WCS")
	params.Set("version", WCSVersion)
	params.Set("request", "GetCapabilities")
	return params
}

// Endpoint joins the service base URL with the encoded parameters, keeping
// any query already present on the base. base is not modified.
func Endpoint(base *url.URL, params url.Values) string {
	u := *base
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
