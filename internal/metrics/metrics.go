package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Item store metrics
var (
	StoreResetsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookmarks_store_resets_total",
			Help: "Total number of item store rebuilds",
		},
	)

	StoreSortDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookmarks_store_sort_duration_seconds",
			Help:    "Item store sort duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"role"},
	)

	StoreItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bookmarks_store_items",
			Help: "Number of items currently held per data type",
		},
		[]string{"data_type"},
	)

	FlagTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookmarks_flag_toggles_total",
			Help: "Total number of flag toggle operations",
		},
		[]string{"flag", "status"},
	)
)

// Worker metrics
var (
	WorkerQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bookmarks_worker_queue_depth",
			Help: "Number of pending entries per worker role",
		},
		[]string{"role"},
	)

	WorkerItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookmarks_worker_items_processed_total",
			Help: "Total number of items enriched by workers",
		},
		[]string{"role", "status"},
	)

	WorkerQueueResets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookmarks_worker_queue_resets_total",
			Help: "Total number of queue reset events per worker role",
		},
		[]string{"role"},
	)

	WorkerProcessDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookmarks_worker_process_duration_seconds",
			Help:    "Per-item enrichment duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"role"},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookmarks_thumbnail_generations_total",
			Help: "Total number of thumbnail generation attempts",
		},
		[]string{"source", "status"},
	)

	ThumbnailCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookmarks_thumbnail_cache_hits_total",
			Help: "Thumbnail cache hits per cache tier",
		},
		[]string{"tier"},
	)

	ThumbnailCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookmarks_thumbnail_cache_misses_total",
			Help: "Thumbnail cache misses",
		},
	)

	ThumbnailDecodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookmarks_thumbnail_decode_duration_seconds",
			Help:    "Thumbnail decode duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)

	ThumbnailOversizeRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookmarks_thumbnail_oversize_rejections_total",
			Help: "Sources rejected for exceeding the decode size ceiling",
		},
	)
)

// Metadata store metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookmarks_db_queries_total",
			Help: "Total number of metadata store queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookmarks_db_query_duration_seconds",
			Help:    "Metadata store query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookmarks_db_transaction_duration_seconds",
			Help:    "Metadata store batch transaction duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"outcome"},
	)
)

// Scanner metrics
var (
	ScannerRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookmarks_scanner_runs_total",
			Help: "Total number of discovery passes",
		},
	)

	ScannerEntriesDiscovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookmarks_scanner_entries_discovered_total",
			Help: "Total number of entries discovered per data type",
		},
		[]string{"data_type"},
	)

	ScannerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookmarks_scanner_errors_total",
			Help: "Total number of discovery errors (recovered)",
		},
	)

	ScannerChangeEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookmarks_scanner_change_events_total",
			Help: "Filesystem change events that triggered a refresh",
		},
	)
)
