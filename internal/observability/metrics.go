// Package observability provides Prometheus metrics for the dashboard.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "planter"

// Backend call metrics.
var (
	// BackendRequestsTotal counts backend calls by operation and outcome
	// ("2xx", "4xx", "5xx" or "error" for transport failures).
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "backend_requests_total",
			Help:      "Total number of backend API calls",
		},
		[]string{"operation", "status"},
	)

	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Duration of backend API calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"operation"},
	)
)

// Auth metrics.
var (
	// AuthChecksTotal counts session checks by resolved state.
	AuthChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "auth_checks_total",
			Help:      "Total number of session status checks",
		},
		[]string{"state"},
	)

	// AuthCallbacksTotal counts OAuth callbacks by result ("success" or "failure").
	AuthCallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "auth_callbacks_total",
			Help:      "Total number of OAuth callback exchanges",
		},
		[]string{"result"},
	)

	// StateCorruptionsTotal counts stored sessions cleared because they were partial or corrupt.
	StateCorruptionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "session_state_corruptions_total",
			Help:      "Total number of stored sessions cleared as partial or corrupt",
		},
	)
)

var registry = newRegistry()

func newRegistry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		BackendRequestsTotal,
		BackendRequestDuration,
		AuthChecksTotal,
		AuthCallbacksTotal,
		StateCorruptionsTotal,
	)
	return r
}

// Handler serves the metrics registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveBackendCall records one backend call. statusCode is 0 for transport failures.
func ObserveBackendCall(operation string, statusCode int, started time.Time) {
	BackendRequestsTotal.WithLabelValues(operation, statusClass(statusCode)).Inc()
	BackendRequestDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func statusClass(code int) string {
	if code == 0 {
		return "error"
	}
	return strconv.Itoa(code/100) + "xx"
}
