package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/soilgrids-stats/internal/catalog"
	"github.com/mohammed-shakir/soilgrids-stats/internal/core/config"
	"github.com/mohammed-shakir/soilgrids-stats/internal/core/geometry"
	"github.com/mohammed-shakir/soilgrids-stats/internal/coverage"
	"github.com/mohammed-shakir/soilgrids-stats/internal/logger"
	"github.com/mohammed-shakir/soilgrids-stats/internal/pipeline"
	"github.com/mohammed-shakir/soilgrids-stats/internal/providers"
	"github.com/mohammed-shakir/soilgrids-stats/internal/providers/soilgrids"
	"github.com/mohammed-shakir/soilgrids-stats/internal/stats"
)

type rootFlags struct {
	wcs     string
	verbose bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	rf := &rootFlags{}
	root := &cobra.Command{
		Use:           "soilstats",
		Short:         "Polygon statistics over SoilGrids coverages",
		Long:          `Compute soil property statistics for a field boundary against the ISRIC SoilGrids WCS.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&rf.wcs, "wcs", "", "WCS base URL (default from SOILGRIDS_URL)")
	root.PersistentFlags().BoolVarP(&rf.verbose, "verbose", "v", false, "Debug logging to stderr")

	root.AddCommand(newStatsCmd(rf), newLayersCmd(rf), newProductsCmd())
	return root
}

// build constructs the SoilGrids provider from env config and root flags.
func (rf *rootFlags) build(wrap func(pipeline.Fetcher) pipeline.Fetcher) (*soilgrids.Provider, error) {
	cfg := config.FromEnv()
	if rf.wcs != "" {
		cfg.Coverage.BaseURL = rf.wcs
	}
	level := "warn"
	if rf.verbose {
		level = "debug"
	}
	zl := logger.Build(logger.Config{Level: level, Console: true, Service: "soilstats", Component: "cli"}, os.Stderr)

	p, err := providers.Build(soilgrids.Name, cfg, providers.Deps{
		Logger:      logger.NewSlog(&zl),
		WrapFetcher: wrap,
	})
	if err != nil {
		return nil, err
	}
	sp, ok := p.(*soilgrids.Provider)
	if !ok {
		return nil, fmt.Errorf("unexpected provider %T", p)
	}
	return sp, nil
}

func newStatsCmd(rf *rootFlags) *cobra.Command {
	var (
		path    string
		srcCRS  string
		layerID string
		types   []string
		kinds   []string
		offset  string
		saveTIF string
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize a layer over the first feature of a GeoJSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			selected, err := parseKinds(kinds)
			if err != nil {
				return err
			}
			poly, err := readPolygon(path)
			if err != nil {
				return err
			}
			base, err := catalog.ParseLayer(layerID)
			if err != nil {
				return err
			}

			var wrap func(pipeline.Fetcher) pipeline.Fetcher
			if saveTIF != "" {
				wrap = saveCoverage(saveTIF, len(types) > 1)
			}
			p, err := rf.build(wrap)
			if err != nil {
				return err
			}

			projected, err := p.Pipeline().Reproject(poly, srcCRS)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "area: %.4f ha\n", geometry.AreaHectares(projected))

			for _, t := range types {
				layer := base.WithQuantile(t).String()
				res, err := p.Stats(cmd.Context(), pipeline.Input{
					Polygon: poly,
					CRS:     srcCRS,
					Layer:   layer,
					Offset:  offset,
				})
				if err != nil {
					return fmt.Errorf("%s: %w", layer, err)
				}
				var line strings.Builder
				fmt.Fprintf(&line, "%s:", layer)
				for _, k := range selected {
					fmt.Fprintf(&line, " %s=%.4f", k, res.Statistics.Value(k))
				}
				fmt.Fprintf(&line, " cells=%d", res.Cells)
				if res.Unit != nil {
					line.WriteString(" " + *res.Unit)
				}
				fmt.Fprintln(out, line.String())
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&path, "geojson", "", "GeoJSON FeatureCollection or Feature file")
	f.StringVar(&srcCRS, "crs", "EPSG:4326", "CRS of the input coordinates")
	f.StringVar(&layerID, "layer", "", "Layer id, e.g. ocs_0-30cm")
	f.StringSliceVar(&types, "types", catalog.DefaultTypes, "Value types to summarize")
	f.StringSliceVar(&kinds, "stats", []string{"mean", "min", "max", "std"}, "Statistics to print")
	f.StringVar(&offset, "offset", "", "Cell anchor: center, ul, ur, ll, lr")
	f.StringVar(&saveTIF, "save-tiff", "", "Write fetched coverages to this path")
	_ = cmd.MarkFlagRequired("geojson")
	_ = cmd.MarkFlagRequired("layer")
	return cmd
}

func newLayersCmd(rf *rootFlags) *cobra.Command {
	var product string
	cmd := &cobra.Command{
		Use:   "layers",
		Short: "List coverage ids published for a product",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := rf.build(nil)
			if err != nil {
				return err
			}
			ids, err := p.Layers(cmd.Context(), product)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&product, "product", "", "Product code, e.g. ocs")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

func newProductsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "Print the product catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, p := range catalog.SoilGrids().Products() {
				unit := p.UnitString()
				if unit == "" {
					unit = "-"
				}
				fmt.Fprintf(out, "%-8s %-10s %s\n", p.Code, unit, p.Description)
			}
			return nil
		},
	}
}

func parseKinds(names []string) ([]stats.Kind, error) {
	if len(names) == 0 {
		return stats.All(), nil
	}
	out := make([]stats.Kind, 0, len(names))
	for _, n := range names {
		k, err := stats.ParseKind(n)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

// readPolygon returns the polygon of the first feature in a GeoJSON file.
func readPolygon(path string) (orb.Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var g orb.Geometry
	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil && len(fc.Features) > 0 {
		g = fc.Features[0].Geometry
	} else if f, ferr := geojson.UnmarshalFeature(data); ferr == nil {
		g = f.Geometry
	} else {
		return nil, fmt.Errorf("%s: no feature found", path)
	}
	switch v := g.(type) {
	case orb.Polygon:
		return v, nil
	case orb.MultiPolygon:
		if len(v) > 0 {
			return v[0], nil
		}
	}
	return nil, fmt.Errorf("%s: first feature is %T, want Polygon", path, g)
}

// saveCoverage decorates the fetcher so every fetched coverage is written to
// disk. With perLayer the coverage id is appended to the file stem.
func saveCoverage(path string, perLayer bool) func(pipeline.Fetcher) pipeline.Fetcher {
	return func(next pipeline.Fetcher) pipeline.Fetcher {
		return pipeline.FetcherFunc(func(ctx context.Context, q coverage.Request) ([]byte, error) {
			data, err := next.GetCoverage(ctx, q)
			if err != nil {
				return nil, err
			}
			name := path
			if perLayer {
				ext := filepath.Ext(path)
				name = strings.TrimSuffix(path, ext) + "_" + q.CoverageID + ext
			}
			if err := os.WriteFile(name, data, 0o644); err != nil {
				return nil, fmt.Errorf("save coverage: %w", err)
			}
			return data, nil
		})
	}
}
