package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts tracks credential validation outcomes
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulss_auth_attempts_total",
		Help: "Total number of credential validation attempts",
	}, []string{"outcome"})

	// RateLimitDecisions tracks limiter verdicts per window
	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulss_ratelimit_decisions_total",
		Help: "Total number of rate limit decisions",
	}, []string{"decision", "window"})

	// PermissionChecks tracks RBAC evaluation outcomes
	PermissionChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulss_permission_checks_total",
		Help: "Total number of permission checks",
	}, []string{"outcome", "mode"})

	// AuditEvents tracks audit events by terminal disposition
	AuditEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulss_audit_events_total",
		Help: "Total number of audit events recorded",
	}, []string{"result"})

	// AuditQueueDepth tracks the audit recorder backlog
	AuditQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulss_audit_queue_depth",
		Help: "Number of audit events waiting to be persisted",
	})

	// RequestDuration tracks end-to-end request latency through the pipeline
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pulss_request_duration_seconds",
		Help:    "Histogram of request processing duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)
