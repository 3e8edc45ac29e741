// Package observability holds Prometheus metrics and OpenTelemetry tracing setup.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Auth event labels.
const (
	AuthEventLogin               = "login"
	AuthEventLoginFailed         = "login_failed"
	AuthEventLogout              = "logout"
	AuthEventRefresh             = "refresh"
	AuthEventRefreshReuse        = "refresh_reuse_detected"
	AuthEventRefreshRaceLost     = "refresh_race_lost"
	AuthEventAccessRejected      = "access_rejected"
	AuthEventRegistration        = "registration"
	ImageOutcomeUploaded         = "uploaded"
	ImageOutcomeUploadFailed     = "upload_failed"
	ImageOutcomeDeleted          = "deleted"
	ImageOutcomeDeleteFailed     = "delete_failed"
	ImageOutcomeDeleteSkippedURL = "delete_skipped"
)

var (
	// AuthEvents counts authentication lifecycle events. Refresh token reuse shows up here.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_auth_events_total",
		Help: "Total number of authentication events by type",
	}, []string{"event"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheLookups counts cache-aside lookups by result (hit or miss).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_cache_lookups_total",
		Help: "Cache-aside lookups by result",
	}, []string{"result"})

	// ImageHostOperations counts image host calls by outcome.
	ImageHostOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_image_host_operations_total",
		Help: "Image host uploads and deletes by outcome",
	}, []string{"outcome"})

	// DatabaseQueryLatency records repository query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quill_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// RecordAuthEvent increments the auth event counter.
func RecordAuthEvent(event string) {
	AuthEvents.WithLabelValues(event).Inc()
}

// RecordImageOperation increments the image host counter.
func RecordImageOperation(outcome string) {
	ImageHostOperations.WithLabelValues(outcome).Inc()
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
