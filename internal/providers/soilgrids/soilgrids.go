// Package soilgrids wires the ISRIC SoilGrids WCS into a provider.
package soilgrids

import (
	"context"
	"fmt"

	"github.com/mohammed-shakir/soilgrids-stats/internal/catalog"
	"github.com/mohammed-shakir/soilgrids-stats/internal/core/config"
	"github.com/mohammed-shakir/soilgrids-stats/internal/core/httpclient"
	"github.com/mohammed-shakir/soilgrids-stats/internal/coverage"
	"github.com/mohammed-shakir/soilgrids-stats/internal/crs"
	"github.com/mohammed-shakir/soilgrids-stats/internal/pipeline"
	"github.com/mohammed-shakir/soilgrids-stats/internal/providers"
)

const (
	Name = "soilgrids"

	// CRSURI is the identifier sent as subsettingCrs and outputCrs.
	CRSURI = "http://www.opengis.net/def/crs/EPSG/0/152160"

	CRSWKT = `PROJCS["Homolosine",
    GEOGCS["WGS 84",
        DATUM["WGS_1984",
            SPHEROID["WGS 84",6378137,298.257223563,
                AUTHORITY["EPSG","7030"]],
            AUTHORITY["EPSG","6326"]],
        PRIMEM["Greenwich",0,
            AUTHORITY["EPSG","8901"]],
        UNIT["degree",0.0174532925199433,
            AUTHORITY["EPSG","9122"]],
        AUTHORITY["EPSG","4326"]],
    PROJECTION["Interrupted_Goode_Homolosine"],
    UNIT["Meter",1]]`
)

func init() {
	providers.Register(Name, New)
}

// CoverageCRS returns the native Homolosine CRS of SoilGrids rasters.
func CoverageCRS() crs.CoverageCRS {
	return crs.CoverageCRS{
		Name:       "Homolosine",
		WKT:        CRSWKT,
		URI:        CRSURI,
		Projection: crs.NewHomolosine(),
	}
}

type Provider struct {
	client   *coverage.Client
	pipeline *pipeline.Pipeline
}

func New(cfg config.Config, deps providers.Deps) (providers.Provider, error) {
	hc := deps.HTTP
	if hc == nil {
		hc = httpclient.NewOutbound(cfg.Coverage.Timeout)
	}
	client, err := coverage.New(deps.Logger, hc, coverage.Options{
		BaseURL:  cfg.Coverage.BaseURL,
		Timeout:  cfg.Coverage.Timeout,
		Retries:  cfg.Coverage.Retries,
		Backoff:  cfg.Coverage.Backoff,
		Jitter:   cfg.Coverage.Jitter,
		MaxBytes: cfg.Coverage.MaxBytes,
		Upstream: Name,
	})
	if err != nil {
		return nil, fmt.Errorf("soilgrids: %w", err)
	}

	var fetcher pipeline.Fetcher = client
	if deps.WrapFetcher != nil {
		fetcher = deps.WrapFetcher(fetcher)
	}
	p, err := pipeline.New(deps.Logger, catalog.SoilGrids(), CoverageCRS(), fetcher, pipeline.Options{
		Offset:   cfg.Sampling.Offset,
		Band:     cfg.Sampling.Band,
		MaxCells: cfg.Sampling.MaxCells,
	})
	if err != nil {
		return nil, fmt.Errorf("soilgrids: %w", err)
	}
	return &Provider{client: client, pipeline: p}, nil
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Catalog() *catalog.Catalog { return p.pipeline.Catalog() }

func (p *Provider) Stats(ctx context.Context, in pipeline.Input) (pipeline.Result, error) {
	return p.pipeline.Run(ctx, in)
}

// Layers lists coverage ids for a product via GetCapabilities.
func (p *Provider) Layers(ctx context.Context, product string) ([]string, error) {
	if _, ok := p.Catalog().Product(product); !ok {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownProduct, product)
	}
	return p.client.ListCoverages(ctx, product)
}

// Pipeline exposes the underlying pipeline for callers that need the
// reprojected geometry (e.g. area reporting in the CLI).
func (p *Provider) Pipeline() *pipeline.Pipeline { return p.pipeline }
