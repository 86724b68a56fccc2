package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/soilgrids-stats/internal/raster/rastertest"
	"github.com/mohammed-shakir/soilgrids-stats/internal/stats"
)

const field = `{
  "type": "FeatureCollection",
  "features": [{
    "type": "Feature",
    "properties": {},
    "geometry": {"type": "Polygon", "coordinates": [[[-1,-1],[1,-1],[1,1],[-1,1],[-1,-1]]]}
  }]
}`

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

type recorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *recorder) add(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func fakeWCS(t *testing.T, hits *recorder) *httptest.Server {
	t.Helper()
	tif := rastertest.MustEncode(rastertest.Options{
		Width: 40, Height: 40,
		Values:  constant(1600, 7),
		OriginX: -200000, OriginY: 200000,
		PixelW: 10000, PixelH: 10000,
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.add(r.URL.Query().Get("coverageId"))
		w.Header().Set("Content-Type", "image/tiff")
		_, _ = w.Write(tif)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeField(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "field.geojson")
	require.NoError(t, os.WriteFile(p, []byte(field), 0o600))
	return p
}

func TestStats_PrintsAreaAndTypes(t *testing.T) {
	var hits recorder
	srv := fakeWCS(t, &hits)

	out, err := execute(t, "stats", "--wcs", srv.URL,
		"--geojson", writeField(t),
		"--layer", "ocs_0-30cm",
		"--types", "mean,Q0.95")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "area: "), lines[0])
	assert.Contains(t, lines[1], "ocs_0-30cm_mean: mean=7.0000")
	assert.Contains(t, lines[1], "t/ha")
	assert.Contains(t, lines[2], "ocs_0-30cm_Q0.95: mean=7.0000")
	assert.Equal(t, []string{"ocs_0-30cm_mean", "ocs_0-30cm_Q0.95"}, hits.seen())
}

func TestStats_SelectedStatistics(t *testing.T) {
	var hits recorder
	srv := fakeWCS(t, &hits)

	out, err := execute(t, "stats", "--wcs", srv.URL,
		"--geojson", writeField(t),
		"--layer", "ocs_0-30cm",
		"--types", "mean",
		"--stats", "max,std")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "ocs_0-30cm_mean: max=7.0000 std=0.0000 cells="), lines[1])
	assert.NotContains(t, lines[1], "min=")
}

func TestStats_UnknownStatistic(t *testing.T) {
	var hits recorder
	srv := fakeWCS(t, &hits)

	_, err := execute(t, "stats", "--wcs", srv.URL,
		"--geojson", writeField(t),
		"--layer", "ocs_0-30cm",
		"--stats", "median")
	require.ErrorIs(t, err, stats.ErrUnknownKind)
	assert.Empty(t, hits.seen())
}

func TestStats_SaveTiffPerLayer(t *testing.T) {
	var hits recorder
	srv := fakeWCS(t, &hits)
	dir := t.TempDir()

	_, err := execute(t, "stats", "--wcs", srv.URL,
		"--geojson", writeField(t),
		"--layer", "soc_0-5cm",
		"--types", "mean,uncertainty",
		"--save-tiff", filepath.Join(dir, "out.tif"))
	require.NoError(t, err)

	for _, name := range []string{"out_soc_0-5cm_mean.tif", "out_soc_0-5cm_uncertainty.tif"} {
		b, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Equal(t, "II", string(b[:2]))
	}
}

func TestStats_InvalidOffset(t *testing.T) {
	var hits recorder
	srv := fakeWCS(t, &hits)

	_, err := execute(t, "stats", "--wcs", srv.URL,
		"--geojson", writeField(t),
		"--layer", "ocs_0-30cm",
		"--types", "mean",
		"--offset", "middle")
	require.Error(t, err)
	assert.Empty(t, hits.seen())
}

func TestStats_RequiresLayer(t *testing.T) {
	_, err := execute(t, "stats", "--geojson", "x.geojson")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "layer")
}

func TestProducts_ListsCatalog(t *testing.T) {
	out, err := execute(t, "products")
	require.NoError(t, err)
	assert.Contains(t, out, "phh2o")
	assert.Contains(t, out, "ocs")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 12)
}

func TestReadPolygon_SingleFeature(t *testing.T) {
	p := filepath.Join(t.TempDir(), "f.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}`), 0o600))

	poly, err := readPolygon(p)
	require.NoError(t, err)
	assert.Len(t, poly[0], 4)
}

func TestReadPolygon_RejectsPoint(t *testing.T) {
	p := filepath.Join(t.TempDir(), "f.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[0,0]}}`), 0o600))

	_, err := readPolygon(p)
	assert.Error(t, err)
}
