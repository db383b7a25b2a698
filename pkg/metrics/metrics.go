// Package metrics provides Prometheus metrics for the console.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "volunteer_console"

var (
	// APIRequestsTotal counts backend requests by operation and error category.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of backend API requests",
		},
		[]string{"operation", "category"},
	)

	// APIRequestDuration measures backend request latency.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Duration of backend API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// SessionTransitionsTotal counts published session states by phase.
	SessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Total number of session state transitions",
		},
		[]string{"phase"},
	)

	// StaleResultsTotal counts responses dropped because a newer request superseded them.
	StaleResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_results_total",
			Help:      "Total number of discarded stale results",
		},
		[]string{"source"},
	)

	// ProfileChecksTotal counts profile gate outcomes.
	ProfileChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_checks_total",
			Help:      "Total number of profile completeness checks",
		},
		[]string{"role", "outcome"},
	)

	// TokenStoreDegraded is 1 once the token store fell back to memory.
	TokenStoreDegraded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "token_store_degraded",
			Help:      "Token store degradation status (1 = memory fallback, 0 = backend)",
		},
	)
)

// RecordAPIRequest records one backend request.
func RecordAPIRequest(operation, category string, seconds float64) {
	APIRequestsTotal.WithLabelValues(operation, category).Inc()
	APIRequestDuration.WithLabelValues(operation).Observe(seconds)
}

func RecordTransition(phase string) {
	SessionTransitionsTotal.WithLabelValues(phase).Inc()
}

func RecordStale(source string) {
	StaleResultsTotal.WithLabelValues(source).Inc()
}

func RecordProfileCheck(role, outcome string) {
	ProfileChecksTotal.WithLabelValues(role, outcome).Inc()
}

func SetTokenStoreDegraded(degraded bool) {
	if degraded {
		TokenStoreDegraded.Set(1)
		return
	}
	TokenStoreDegraded.Set(0)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
