package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"catalog-service/pkg/config"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Authentication metrics
	AuthAttemptsCounter prometheus.Counter
	AuthSuccessCounter  prometheus.Counter
	AuthErrorsCounter   prometheus.Counter

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec

	// Catalog entity metrics
	CatalogOperationsCounter prometheus.CounterVec

	// Cascade rename metrics
	CascadeRenamesCounter    prometheus.CounterVec
	CascadeProductsRewritten prometheus.Counter

	// Bulk ingestion metrics
	IngestRunsCounter prometheus.Counter
	IngestRowsCounter prometheus.CounterVec
	IngestRunDuration prometheus.Histogram
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(config *config.Config) {
	prefix := config.Metrics.Prefix

	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	AuthAttemptsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
	)

	AuthSuccessCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_success_total",
			Help: "Total number of successful authentications",
		},
	)

	AuthErrorsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of authentication errors",
		},
	)

	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	CatalogOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_catalog_operations_total",
			Help: "Total number of catalog entity operations",
		},
		[]string{"entity", "operation"},
	)

	CascadeRenamesCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_cascade_renames_total",
			Help: "Total number of committed ancestor renames",
		},
		[]string{"entity"},
	)

	CascadeProductsRewritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_cascade_products_rewritten_total",
			Help: "Total number of product identities rewritten by renames",
		},
	)

	IngestRunsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_ingest_runs_total",
			Help: "Total number of bulk ingestion runs",
		},
	)

	IngestRowsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_ingest_rows_total",
			Help: "Total number of bulk ingestion rows by outcome",
		},
		[]string{"status"},
	)

	IngestRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    prefix + "_ingest_run_duration_seconds",
			Help:    "Duration of bulk ingestion runs in seconds",
			Buckets: []float64{0.5, 1, 5, 15, 60, 120, 300, 600},
		},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordCatalogOperation increments the counter for one entity operation
func RecordCatalogOperation(entity, operation string) {
	CatalogOperationsCounter.WithLabelValues(entity, operation).Inc()
}

// RecordCascadeRename counts a committed rename and the products it rewrote
func RecordCascadeRename(entity string, products int) {
	CascadeRenamesCounter.WithLabelValues(entity).Inc()
	CascadeProductsRewritten.Add(float64(products))
}

// RecordIngestRun records one completed bulk ingestion run
func RecordIngestRun(duration time.Duration, created, failed int) {
	IngestRunsCounter.Inc()
	IngestRunDuration.Observe(duration.Seconds())
	IngestRowsCounter.WithLabelValues("created").Add(float64(created))
	IngestRowsCounter.WithLabelValues("failed").Add(float64(failed))
}
