package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion and retrieval metrics for production monitoring
var (
	// Ingestion metrics
	LinesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opslens_ingest_lines_total",
			Help: "Total number of log lines seen by the indexer",
		},
		[]string{"source", "outcome"}, // outcome: parsed/skipped
	)

	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opslens_ingest_batches_total",
			Help: "Total number of batch writes attempted",
		},
		[]string{"source", "status"}, // status: ok/failed
	)

	BatchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "opslens_ingest_batch_retries_total",
			Help: "Total number of batch write retry attempts",
		},
	)

	IngestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opslens_ingest_run_duration_seconds",
			Help:    "Ingestion run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~7min
		},
		[]string{"source"},
	)

	EnrichmentDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "opslens_enrichment_degraded_total",
			Help: "Total number of records enriched via the level-only fallback path",
		},
	)

	// Retrieval metrics
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opslens_searches_total",
			Help: "Total number of search operations",
		},
		[]string{"mode", "status"}, // mode: vector/keyword/hybrid, status: ok/degraded/failed
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opslens_search_duration_seconds",
			Help:    "Search duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"mode"},
	)

	SearchResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opslens_search_results",
			Help:    "Number of results returned per search",
			Buckets: prometheus.LinearBuckets(0, 5, 11), // 0 to 50
		},
		[]string{"mode"},
	)

	// Embedding metrics
	EmbeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opslens_embedding_requests_total",
			Help: "Total number of embedding encode calls",
		},
		[]string{"status"}, // status: ok/error
	)
)
