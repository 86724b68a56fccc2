package ogc

import (
	"net/url"
	"strings"
	"testing"
)

func TestBuildGetCoverageParams(t *testing.T) {
	v := BuildGetCoverageParams(GetCoverageRequest{
		MapRoute:   MapRoute("soc"),
		CoverageID: "soc_0-5cm_mean",
		Subsets: []Subset{
			{Axis: "X", Low: -1200.5, High: 3400},
			{Axis: "Y", Low: 5000000, High: 5000250.25},
		},
		CRS: "http://www.opengis.net/def/crs/EPSG/0/152160",
	})
	assertHas := func(k, want string) {
		if got := v.Get(k); got != want {
			t.Fatalf("param %q got %q want %q", k, got, want)
		}
	}
	assertHas("map", "/map/soc.map")
	assertHas("service", "WCS")
	assertHas("version", "2.0.1")
	assertHas("request", "GetCoverage")
	assertHas("coverageId", "soc_0-5cm_mean")
	assertHas("format", "image/tiff")
	assertHas("subsettingCrs", "http://www.opengis.net/def/crs/EPSG/0/152160")
	assertHas("outputCrs", "http://www.opengis.net/def/crs/EPSG/0/152160")

	subsets := v["subset"]
	if len(subsets) != 2 {
		t.Fatalf("subset count=%d want 2", len(subsets))
	}
	if subsets[0] != "X(-1200.5,3400)" || subsets[1] != "Y(5000000,5000250.25)" {
		t.Fatalf("unexpected subsets %q", subsets)
	}
}

func TestEndpoint_KeepsBaseQuery(t *testing.T) {
	base, err := url.Parse("https://maps.isric.org/mapserv?foo=bar")
	if err != nil {
		t.Fatalf("parse base: %v", err)
	}
	u := Endpoint(base, BuildGetCapabilitiesParams(MapRoute("ocs")))
	if base.RawQuery != "foo=bar" {
		t.Fatalf("base modified: %q", base.RawQuery)
	}
	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := parsed.Query()
	if q.Get("foo") != "bar" || q.Get("map") != "/map/ocs.map" || q.Get("request") != "GetCapabilities" {
		t.Fatalf("unexpected query %v", q)
	}
	if !strings.HasPrefix(u, "https://maps.isric.org/mapserv?") {
		t.Fatalf("unexpected url %q", u)
	}
}

const capsDoc = `<?xml version="1.0" encoding="UTF-8"?>
<wcs:Capabilities xmlns:wcs="http://www.opengis.net/wcs/2.0" xmlns:ows="http://www.opengis.net/ows/2.0" version="2.0.1">
  <ows:ServiceIdentification><ows:Title>SoilGrids</ows:Title></ows:ServiceIdentification>
  <wcs:Contents>
    <wcs:CoverageSummary>
      <wcs:CoverageId>ocs_0-30cm_Q0.05</wcs:CoverageId>
      <wcs:CoverageSubtype>RectifiedGridCoverage</wcs:CoverageSubtype>
    </wcs:CoverageSummary>
    <wcs:CoverageSummary>
      <wcs:CoverageId>ocs_0-30cm_mean</wcs:CoverageId>
      <wcs:CoverageSubtype>RectifiedGridCoverage</wcs:CoverageSubtype>
    </wcs:CoverageSummary>
  </wcs:Contents>
</wcs:Capabilities>`

const exceptionDoc = `<?xml version="1.0" encoding="UTF-8"?>
<ows:ExceptionReport xmlns:ows="http://www.opengis.net/ows/2.0" version="2.0.1">
  <ows:Exception exceptionCode="NoSuchCoverage" locator="coverageid">
    <ows:ExceptionText>msWCSGetCoverage20(): Coverage nope_0-5cm_mean not found</ows:ExceptionText>
  </ows:Exception>
</ows:ExceptionReport>`

func TestParseCapabilities(t *testing.T) {
	ids, err := ParseCapabilities([]byte(capsDoc))
	if err != nil {
		t.Fatalf("ParseCapabilities: %v", err)
	}
	if len(ids) != 2 || ids[0] != "ocs_0-30cm_Q0.05" || ids[1] != "ocs_0-30cm_mean" {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestParseCapabilities_ExceptionReport(t *testing.T) {
	_, err := ParseCapabilities([]byte(exceptionDoc))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "NoSuchCoverage") {
		t.Fatalf("error %q should carry the exception code", err)
	}
}

func TestParseExceptionReport(t *testing.T) {
	if !LooksLikeXML([]byte("\n  " + exceptionDoc)) {
		t.Fatal("expected xml detection")
	}
	rep, err := ParseExceptionReport([]byte(exceptionDoc))
	if err != nil {
		t.Fatalf("ParseExceptionReport: %v", err)
	}
	if rep.Code() != "NoSuchCoverage" {
		t.Fatalf("code=%q", rep.Code())
	}
	if !strings.Contains(rep.Error(), "nope_0-5cm_mean not found") {
		t.Fatalf("message=%q", rep.Error())
	}
}
