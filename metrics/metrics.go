// Package metrics provides Prometheus metrics for the MediaWiki client.
// It tracks API call counts, latencies, retries, and throttle behavior.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const (
	Namespace = "ceterach"
)

var (
	// APICallsTotal counts API calls by action and status
	APICallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "api_calls_total",
		Help:      "Total number of MediaWiki API calls",
	}, []string{"action", "status"})

	// APICallDuration measures API call latency distribution by action
	APICallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "api_call_duration_seconds",
		Help:      "API call latency distribution by action",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"action"})

	// RetriesTotal counts requests resent after a maxlag rejection
	RetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "maxlag_retries_total",
		Help:      "Requests resent after the wiki reported replication lag",
	})

	// ThrottleWaits counts calls delayed by the configured throttle
	ThrottleWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "throttle_waits_total",
		Help:      "API calls that waited for the request throttle",
	})

	// TransportErrors counts calls that failed before a response decoded
	TransportErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "transport_errors_total",
		Help:      "API calls that failed at the HTTP or decode layer",
	})

	// EditOperations counts write operations by type and status
	EditOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "edit_operations_total",
		Help:      "Edit operations by type and status",
	}, []string{"operation", "status"})
)

// RecordCall records a completed API call with its duration and status
func RecordCall(action string, duration float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	APICallsTotal.WithLabelValues(action, status).Inc()
	APICallDuration.WithLabelValues(action).Observe(duration)
}

// RecordEdit records a write operation
func RecordEdit(operation string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	EditOperations.WithLabelValues(operation, status).Inc()
}
