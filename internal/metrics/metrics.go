// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neuroscan_http_requests_total",
		Help: "HTTP requests by method and status class.",
	}, []string{"method", "code"})

	RequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "neuroscan_http_requests_in_flight",
		Help: "HTTP requests currently being served.",
	})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "neuroscan_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	Analyses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neuroscan_analyses_total",
		Help: "Inference dispatches by request shape and outcome.",
	}, []string{"shape", "outcome"})

	RecordsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "neuroscan_records_persisted_total",
		Help: "Scan records written.",
	})

	PersistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neuroscan_persist_failures_total",
		Help: "Persist failures by kind (media, metadata).",
	}, []string{"kind"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "neuroscan_sessions_active",
		Help: "Scan sessions held in memory.",
	})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
