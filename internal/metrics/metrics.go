// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "built_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	authAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "built_auth_attempts_total",
			Help: "Total auth attempts by event and outcome",
		},
		[]string{"event", "success"},
	)
	auditFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "built_audit_write_failures_total",
			Help: "Activity log entries that could not be persisted",
		},
	)
	jobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "built_jobs_processed_total",
			Help: "Background jobs by type and outcome",
		},
		[]string{"type", "outcome"},
	)
)

// ObserveRequest records one served request. route is the matched route
// template, not the raw path.
func ObserveRequest(method, route string, status int, took time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(took.Seconds())
}

func RecordAuthAttempt(event string, success bool) {
	authAttempts.WithLabelValues(event, strconv.FormatBool(success)).Inc()
}

func RecordAuditFailure() {
	auditFailures.Inc()
}

// RecordJob counts a finished job. outcome is "done", "retry" or "dead".
func RecordJob(jobType, outcome string) {
	jobsProcessed.WithLabelValues(jobType, outcome).Inc()
}
