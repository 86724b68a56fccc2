// Package router serves the statistics HTTP API.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/soilgrids-stats/internal/catalog"
	"github.com/mohammed-shakir/soilgrids-stats/internal/core/geometry"
	"github.com/mohammed-shakir/soilgrids-stats/internal/core/observability"
	"github.com/mohammed-shakir/soilgrids-stats/internal/coverage"
	mylog "github.com/mohammed-shakir/soilgrids-stats/internal/logger"
	"github.com/mohammed-shakir/soilgrids-stats/internal/pipeline"
	"github.com/mohammed-shakir/soilgrids-stats/internal/providers"
	"github.com/mohammed-shakir/soilgrids-stats/internal/raster"
	"github.com/mohammed-shakir/soilgrids-stats/internal/stats"
	"github.com/mohammed-shakir/soilgrids-stats/internal/statsevents"
)

// EventSink receives one event per successfully summarized feature.
type EventSink interface {
	Publish(ev statsevents.Event) bool
}

type Handler struct {
	logger    *slog.Logger
	providers map[string]providers.Provider
	events    EventSink
	maxBody   int64
}

func New(logger *slog.Logger, provs map[string]providers.Provider, events EventSink, maxBody int64) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if maxBody <= 0 {
		maxBody = 10 << 20
	}
	return &Handler{logger: logger, providers: provs, events: events, maxBody: maxBody}
}

// Mount registers the API routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/{provider}/products", h.observe("/{provider}/products", h.Products))
	r.Get("/{provider}/products/{product}/layers", h.observe("/{provider}/products/{product}/layers", h.Layers))
	r.Post("/{provider}/{layer}", h.observe("/{provider}/{layer}", h.Stats))
}

func (h *Handler) observe(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next(sw, r)
		observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

type featureError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type featureResult struct {
	FeatureID  int            `json:"feature_id"`
	Statistics *stats.Summary `json:"statistics,omitempty"`
	Unit       *string        `json:"unit"`
	Cells      int            `json:"cells,omitempty"`
	AreaHa     float64        `json:"area_ha,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Error      *featureError  `json:"error,omitempty"`
}

type statsResponse struct {
	Layer string          `json:"layer"`
	Data  []featureResult `json:"data"`
}

// Stats handles POST /{provider}/{layer}. Features run one after another;
// a failing feature gets an error entry and the rest still run.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	prov, ok := h.provider(w, r)
	if !ok {
		return
	}
	layer := strings.TrimSpace(chi.URLParam(r, "layer"))
	ctx := mylog.WithLayer(mylog.WithProvider(r.Context(), prov.Name()), layer)

	product, err := prov.Catalog().Lookup(layer)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_product", err.Error(), "")
		return
	}

	offset := strings.TrimSpace(r.URL.Query().Get("offset"))
	if offset != "" {
		if _, err := raster.ParseOffset(offset); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "validation", err.Error(), "offset")
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, "validation", "request body too large", "")
			return
		}
		writeError(w, http.StatusBadRequest, "validation", "read body: "+err.Error(), "")
		return
	}

	srcCRS, features, err := decodeCollection(body)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusUnprocessableEntity, "validation", ve.Message, ve.Field)
			return
		}
		writeError(w, http.StatusBadRequest, "validation", "invalid JSON: "+err.Error(), "")
		return
	}

	h.logger.InfoContext(ctx, "stats request",
		"features", len(features),
		"crs", srcCRS)

	resp := statsResponse{Layer: layer, Data: make([]featureResult, 0, len(features))}
	for i, f := range features {
		fctx := mylog.WithFeature(ctx, i)
		res, err := prov.Stats(fctx, pipeline.Input{
			Polygon: f.Polygon,
			CRS:     srcCRS,
			Layer:   layer,
			Offset:  offset,
		})
		entry := featureResult{FeatureID: i, Unit: product.Unit, Properties: f.Properties}
		if err != nil {
			kind := errorKind(err)
			observability.IncFeature(prov.Name(), kind)
			h.logger.WarnContext(fctx, "feature failed", "kind", kind, "err", err)
			entry.Error = &featureError{Kind: kind, Message: err.Error()}
			resp.Data = append(resp.Data, entry)
			continue
		}
		observability.IncFeature(prov.Name(), "ok")
		summary := res.Statistics
		entry.Statistics = &summary
		entry.Unit = res.Unit
		entry.Cells = res.Cells
		entry.AreaHa = res.AreaHa
		resp.Data = append(resp.Data, entry)

		if h.events != nil {
			h.events.Publish(statsevents.Event{
				Provider:    prov.Name(),
				Layer:       layer,
				RequestID:   mylog.RequestID(ctx),
				Feature:     i,
				Fingerprint: statsevents.Fingerprint(layer, f.Polygon),
				Statistics:  res.Statistics,
				Unit:        res.Unit,
				Cells:       res.Cells,
				AreaHa:      res.AreaHa,
			})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Products handles GET /{provider}/products.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	prov, ok := h.provider(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"provider": prov.Name(),
		"products": prov.Catalog().Products(),
	})
}

// Layers handles GET /{provider}/products/{product}/layers.
func (h *Handler) Layers(w http.ResponseWriter, r *http.Request) {
	prov, ok := h.provider(w, r)
	if !ok {
		return
	}
	product := chi.URLParam(r, "product")
	ids, err := prov.Layers(r.Context(), product)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, catalog.ErrUnknownProduct) {
			status = http.StatusNotFound
		}
		h.logger.WarnContext(r.Context(), "list layers failed", "product", product, "err", err)
		writeError(w, status, errorKind(err), err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product, "layers": ids})
}

func (h *Handler) provider(w http.ResponseWriter, r *http.Request) (providers.Provider, bool) {
	name := chi.URLParam(r, "provider")
	p, ok := h.providers[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_provider", "unknown provider "+name, "")
		return nil, false
	}
	return p, true
}

// errorKind names the failure class reported to clients and in metrics.
func errorKind(err error) string {
	var (
		re *geometry.ReprojectionError
		fe *coverage.FetchError
	)
	switch {
	case errors.As(err, &re):
		return "reprojection"
	case errors.As(err, &fe):
		return "coverage_fetch"
	case errors.Is(err, raster.ErrInvalidOffset):
		return "invalid_offset"
	case errors.Is(err, stats.ErrEmptySample):
		return "empty_sample"
	case errors.Is(err, catalog.ErrUnknownProduct):
		return "unknown_product"
	case errors.Is(err, raster.ErrNotTIFF), errors.Is(err, raster.ErrMalformed),
		errors.Is(err, raster.ErrUnsupported), errors.Is(err, raster.ErrTooLarge),
		errors.Is(err, raster.ErrNoGeoreference), errors.Is(err, raster.ErrBand):
		return "raster"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "internal"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg, field string) {
	type body struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
		Field   string `json:"field,omitempty"`
	}
	writeJSON(w, status, map[string]body{"error": {Kind: kind, Message: msg, Field: field}})
}
