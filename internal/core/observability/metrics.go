// Package observability holds the service's Prometheus collectors.
package observability

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream"},
	)

	coverageFetchAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coverage_fetch_attempts_total",
			Help: "WCS GetCoverage attempts by outcome.",
		},
		[]string{"outcome"},
	)

	featuresProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "features_processed_total",
			Help: "Polygon features processed by outcome.",
		},
		[]string{"provider", "outcome"},
	)

	sampledCells = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sampled_cells",
			Help:    "Raster cells retained inside a polygon.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)
)

// Collectors returns every collector owned by this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDurationSeconds,
		upstreamLatencySeconds,
		coverageFetchAttempts,
		featuresProcessed,
		sampledCells,
	}
}

// Register adds the collectors to reg. Registering into the same registry
// twice is not an error.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream).Observe(durationSeconds)
}

// IncCoverageAttempt counts one GetCoverage attempt; outcome is one of
// ok, temporary, permanent.
func IncCoverageAttempt(outcome string) {
	coverageFetchAttempts.WithLabelValues(outcome).Inc()
}

func IncFeature(provider, outcome string) {
	featuresProcessed.WithLabelValues(provider, outcome).Inc()
}

func ObserveSampledCells(n int) {
	sampledCells.Observe(float64(n))
}
