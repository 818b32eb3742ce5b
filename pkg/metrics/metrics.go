// Package metrics defines the Prometheus metric collectors used by the
// indexer and query engine and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for sagasu.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	IndexRunsTotal       *prometheus.CounterVec
	IndexRunDuration     prometheus.Histogram
	IndexJobsTotal       *prometheus.CounterVec
	DocsIndexedTotal     prometheus.Counter
	IndexTerms           prometheus.Gauge
	SnapshotSavesTotal   *prometheus.CounterVec
	LookupsTotal         *prometheus.CounterVec
	LookupCacheTotal     *prometheus.CounterVec
}

// New creates all collectors and registers them on reg. Tests pass a fresh
// prometheus.NewRegistry(); binaries pass prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		IndexRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sagasu_index_runs_total",
				Help: "Indexing runs by outcome (clean, partial, failed).",
			},
			[]string{"outcome"},
		),
		IndexRunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sagasu_index_run_duration_seconds",
				Help:    "Wall-clock duration of an indexing run.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
			},
		),
		IndexJobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sagasu_index_jobs_total",
				Help: "Build jobs (document x width) by status.",
			},
			[]string{"status"},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sagasu_docs_indexed_total",
				Help: "Total documents passed through the indexing engine.",
			},
		),
		IndexTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sagasu_index_terms",
				Help: "Distinct tokens in the most recently built or loaded index.",
			},
		),
		SnapshotSavesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sagasu_snapshot_saves_total",
				Help: "Snapshot writes by status.",
			},
			[]string{"status"},
		),
		LookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sagasu_lookups_total",
				Help: "Token lookups by result (hit, miss, not_indexed).",
			},
			[]string{"result"},
		),
		LookupCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sagasu_lookup_cache_total",
				Help: "Lookup cache accesses by tier (local, redis) and status (hit, miss).",
			},
			[]string{"tier", "status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.IndexRunsTotal,
		m.IndexRunDuration,
		m.IndexJobsTotal,
		m.DocsIndexedTotal,
		m.IndexTerms,
		m.SnapshotSavesTotal,
		m.LookupsTotal,
		m.LookupCacheTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
