package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tracking event results.
const (
	ResultMatched   = "matched"
	ResultUnmatched = "unmatched"
	ResultFailed    = "failed"
)

// Metrics holds all application metrics
type Metrics struct {
	gatherer prometheus.Gatherer

	// Registrations counts register calls by status (created, invalid, failed).
	Registrations *prometheus.CounterVec

	// TrackingEvents counts open/click hits by result. Failed results are
	// tracking errors that were suppressed to keep the pixel/redirect intact.
	TrackingEvents *prometheus.CounterVec

	// RequestDuration observes handler latency by route pattern.
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all application metrics on reg. A nil reg
// uses a fresh private registry.
func NewMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Total number of contact registrations by status",
		}, []string{"status"}),
		TrackingEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracking_events_total",
			Help:      "Total number of open/click tracking hits by result",
		}, []string{"event", "result"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "route", "status"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
