// Package metrics defines the Prometheus metric collectors used across the
// analysis pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	SpecsProcessedTotal prometheus.Counter
	SpecsSkippedTotal   prometheus.Counter
	SpecsFailedTotal    prometheus.Counter
	DocsTokenizedTotal  prometheus.Counter
	DocsIndexedTotal    *prometheus.CounterVec
	BulkFlushesTotal    *prometheus.CounterVec
	FilesSkippedTotal   prometheus.Counter
	QueryLatency        *prometheus.HistogramVec
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
}

// New creates and registers all Prometheus metrics with the default
// registry.
func New() *Metrics {
	m := &Metrics{
		SpecsProcessedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "freq_specs_processed_total",
				Help: "Total frequency batch entries fully processed.",
			},
		),
		SpecsSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "freq_specs_skipped_total",
				Help: "Frequency batch entries skipped because the artifact already existed.",
			},
		),
		SpecsFailedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "freq_specs_failed_total",
				Help: "Frequency batch entries that failed and were left for a future run.",
			},
		),
		DocsTokenizedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_tokenized_total",
				Help: "Total documents run through the tokenizer.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents bulk-indexed, by dataset.",
			},
			[]string{"dataset"},
		),
		BulkFlushesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bulk_flushes_total",
				Help: "Bulk requests sent to the index, by outcome (ok, error).",
			},
			[]string{"outcome"},
		),
		FilesSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "source_files_skipped_total",
				Help: "Source files skipped because they were already indexed.",
			},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "query_latency_seconds",
				Help:    "Aggregation query latency in seconds, by strategy.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"strategy"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "selection_cache_hits_total",
				Help: "Total selection cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "selection_cache_misses_total",
				Help: "Total selection cache misses.",
			},
		),
	}
	prometheus.MustRegister(
		m.SpecsProcessedTotal,
		m.SpecsSkippedTotal,
		m.SpecsFailedTotal,
		m.DocsTokenizedTotal,
		m.DocsIndexedTotal,
		m.BulkFlushesTotal,
		m.FilesSkippedTotal,
		m.QueryLatency,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)
	return m
}
