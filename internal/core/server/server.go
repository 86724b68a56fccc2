// Package server assembles the HTTP surface and runs it until the context ends.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/soilgrids-stats/internal/core/config"
	"github.com/mohammed-shakir/soilgrids-stats/internal/core/health"
	middleware "github.com/mohammed-shakir/soilgrids-stats/internal/core/middleware"
	"github.com/mohammed-shakir/soilgrids-stats/internal/core/router"
	"github.com/mohammed-shakir/soilgrids-stats/internal/metrics"
)

// NewRouter wires health, metrics and the statistics routes. /metrics is
// only mounted when a metrics provider is given.
func NewRouter(logger *slog.Logger, mp *metrics.Provider, h *router.Handler) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/", health.Alive())
	r.Get("/health", health.Alive())
	r.Get("/healthz", health.Liveness())
	if mp != nil {
		r.Method(http.MethodGet, mp.Path(), mp.Handler())
	}
	if h != nil {
		h.Mount(r)
	}
	return r
}

// Run serves handler on cfg.Addr and shuts down gracefully once ctx is done.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, handler http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		grace := cfg.ShutdownGrace
		if grace <= 0 {
			grace = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		logger.Info("http shutdown", "grace", grace)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		return err
	}
}
