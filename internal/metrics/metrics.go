// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shop_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	// Uploads counts upload attempts; outcome is stored, unsupported_type,
	// too_large or error.
	Uploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_image_uploads_total",
			Help: "Image uploads by storage backend and outcome.",
		},
		[]string{"backend", "outcome"},
	)
	ImageCleanupFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_image_cleanup_failures_total",
			Help: "Best-effort image deletions that failed.",
		},
		[]string{"backend"},
	)
	// TokensRevoked counts ledger appends by reason (logout, relogin).
	TokensRevoked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_tokens_revoked_total",
			Help: "Session tokens added to the revocation ledger.",
		},
		[]string{"reason"},
	)
	LedgerPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shop_ledger_pruned_total",
			Help: "Revocation ledger entries removed by the pruner.",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, Uploads, ImageCleanupFailures, TokensRevoked, LedgerPruned)
}
