// Package pipeline computes soil statistics for one polygon: reproject,
// fetch the covering raster, sample, filter and summarize.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/soilgrids-stats/internal/catalog"
	"github.com/mohammed-shakir/soilgrids-stats/internal/core/geometry"
	"github.com/mohammed-shakir/soilgrids-stats/internal/core/observability"
	"github.com/mohammed-shakir/soilgrids-stats/internal/coverage"
	"github.com/mohammed-shakir/soilgrids-stats/internal/crs"
	"github.com/mohammed-shakir/soilgrids-stats/internal/raster"
	"github.com/mohammed-shakir/soilgrids-stats/internal/stats"
)

// Fetcher returns the raw GeoTIFF for one coverage request.
type Fetcher interface {
	GetCoverage(ctx context.Context, q coverage.Request) ([]byte, error)
}

type FetcherFunc func(ctx context.Context, q coverage.Request) ([]byte, error)

func (f FetcherFunc) GetCoverage(ctx context.Context, q coverage.Request) ([]byte, error) {
	return f(ctx, q)
}

type Options struct {
	Offset   string
	Band     int
	MaxCells int
}

type Pipeline struct {
	logger   *slog.Logger
	catalog  *catalog.Catalog
	reproj   *geometry.Reprojector
	fetcher  Fetcher
	offset   raster.Offset
	band     int
	maxCells int
}

func New(logger *slog.Logger, cat *catalog.Catalog, target crs.CoverageCRS, fetcher Fetcher, opts Options) (*Pipeline, error) {
	if cat == nil || fetcher == nil {
		return nil, errors.New("pipeline: catalog and fetcher are required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	reproj, err := geometry.NewReprojector(target)
	if err != nil {
		return nil, err
	}
	off := raster.Center
	if opts.Offset != "" {
		if off, err = raster.ParseOffset(opts.Offset); err != nil {
			return nil, err
		}
	}
	band := opts.Band
	if band < 1 {
		band = 1
	}
	return &Pipeline{
		logger:   logger,
		catalog:  cat,
		reproj:   reproj,
		fetcher:  fetcher,
		offset:   off,
		band:     band,
		maxCells: opts.MaxCells,
	}, nil
}

// Input is one polygon in its source CRS. Offset, when set, overrides the
// pipeline's default cell anchor.
type Input struct {
	Polygon orb.Polygon
	CRS     string
	Layer   string
	Offset  string
}

type Result struct {
	Statistics stats.Summary `json:"statistics"`
	Unit       *string       `json:"unit"`
	Cells      int           `json:"cells"`
	AreaHa     float64       `json:"area_ha"`
}

func (p *Pipeline) Catalog() *catalog.Catalog { return p.catalog }

func (p *Pipeline) Target() crs.CoverageCRS { return p.reproj.Target() }

// Reproject moves a polygon into the coverage CRS.
func (p *Pipeline) Reproject(poly orb.Polygon, source string) (orb.Polygon, error) {
	return p.reproj.Reproject(poly, source)
}

func (p *Pipeline) Run(ctx context.Context, in Input) (Result, error) {
	off := p.offset
	if in.Offset != "" {
		var err error
		if off, err = raster.ParseOffset(in.Offset); err != nil {
			return Result{}, err
		}
	}

	product, err := p.catalog.Lookup(in.Layer)
	if err != nil {
		return Result{}, err
	}

	projected, err := p.reproj.Reproject(in.Polygon, in.CRS)
	if err != nil {
		return Result{}, err
	}
	bound := geometry.Bounds(projected)

	data, err := p.fetcher.GetCoverage(ctx, coverage.Request{
		Product:    product.Code,
		CoverageID: in.Layer,
		Subsets:    geometry.Subsets(bound),
		CRS:        p.reproj.Target().URI,
	})
	if err != nil {
		return Result{}, err
	}

	values, sampled, err := p.sample(ctx, data, projected, off)
	if err != nil {
		return Result{}, err
	}
	observability.ObserveSampledCells(len(values))

	summary, err := stats.Summarize(values)
	if err != nil {
		return Result{}, fmt.Errorf("%w: none of %d cells inside polygon", err, sampled)
	}

	p.logger.DebugContext(ctx, "polygon summarized",
		"cells", len(values),
		"sampled", sampled,
		"mean", summary.Mean)

	return Result{
		Statistics: summary,
		Unit:       product.Unit,
		Cells:      len(values),
		AreaHa:     geometry.AreaHectares(projected),
	}, nil
}

// sample decodes the raster and returns the valid values inside poly, plus
// the number of cells visited.
func (p *Pipeline) sample(ctx context.Context, data []byte, poly orb.Polygon, off raster.Offset) ([]float64, int, error) {
	var opts []raster.Option
	if p.maxCells > 0 {
		opts = append(opts, raster.WithMaxCells(p.maxCells))
	}
	ds, err := raster.Open(data, opts...)
	if err != nil {
		return nil, 0, err
	}
	defer ds.Close()

	cw, ch := ds.Transform().PixelSize()
	p.logger.DebugContext(ctx, "coverage decoded",
		"width", ds.Width(),
		"height", ds.Height(),
		"epsg", ds.EPSG(),
		"cell_w", cw,
		"cell_h", ch)

	points, values, err := raster.Sample(ds, p.band, off)
	if err != nil {
		return nil, 0, err
	}
	_, inside := geometry.Filter(poly, points, values)

	kept := inside[:0]
	for _, v := range inside {
		if !ds.IsNoData(v) {
			kept = append(kept, v)
		}
	}
	return kept, len(values), nil
}
