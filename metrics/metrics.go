package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const prefix = "storefront"

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Catalog refreshes by result: "ok", "error", "stale"
	CatalogRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_catalog_refresh_total",
			Help: "Catalog list refreshes by result",
		},
		[]string{"result"},
	)

	CatalogEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_catalog_entries",
			Help: "Number of entries in the in-memory catalog",
		},
	)

	ImageDownscaleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    prefix + "_image_downscale_duration_seconds",
			Help:    "Duration of image decode, resize and encode",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Bucket uploads by result: "ok", "error"
	ImageUploadTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_image_upload_total",
			Help: "Image uploads to the bucket by result",
		},
		[]string{"result"},
	)

	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)
)

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		DBOperationDuration.WithLabelValues(operationType).Observe(time.Since(startTime).Seconds())
	}
}

// RecordRefresh counts a catalog refresh outcome
func RecordRefresh(result string) {
	CatalogRefreshTotal.WithLabelValues(result).Inc()
}

// RecordUpload counts a bucket upload outcome
func RecordUpload(err error) {
	if err != nil {
		ImageUploadTotal.WithLabelValues("error").Inc()
		return
	}
	ImageUploadTotal.WithLabelValues("ok").Inc()
}
