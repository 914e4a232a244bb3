// Package metrics registers the Prometheus collectors for the service.
// Transfer metrics are updated from the service layer, HTTP metrics from
// middleware.HTTPMetrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UploadsTotal counts upload attempts by result.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "securedrop_uploads_total",
			Help: "Upload attempts by result",
		},
		[]string{"result"},
	)

	// DownloadsTotal counts download attempts by result.
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "securedrop_downloads_total",
			Help: "Download attempts by result",
		},
		[]string{"result"},
	)

	CompressionRatio = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "securedrop_compression_ratio",
			Help:    "Compression ratio of uploads that were stored compressed",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 9),
		},
	)

	StoredBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "securedrop_stored_bytes_total",
			Help: "Ciphertext bytes written to the object store",
		},
	)

	CleanupRemovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "securedrop_cleanup_sessions_total",
			Help: "Expired sessions processed by the cleanup task, by result",
		},
		[]string{"result"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "securedrop_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "securedrop_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
