// Package metric provides the prometheus instrumentation for WhastapWeb.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all gateway-level metrics. A nil *Metrics is valid and
// records nothing, so components can be constructed without instrumentation
// in tests.
type Metrics struct {
	// HTTP surface
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Session lifecycle
	SessionsActive prometheus.Gauge
	SessionStarts  *prometheus.CounterVec

	// Outbound messages
	MessagesSent *prometheus.CounterVec

	// Engine transport
	EngineConnected prometheus.Gauge
}

// NewMetrics creates a Metrics instance with all gateway metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "whastapweb",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "whastapweb",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),

		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "whastapweb",
				Subsystem: "sessions",
				Name:      "active",
				Help:      "Number of sessions currently known to the engine",
			},
		),

		SessionStarts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "whastapweb",
				Subsystem: "sessions",
				Name:      "starts_total",
				Help:      "Session start attempts by outcome (qr, connected, conflict, timeout, error)",
			},
			[]string{"outcome"},
		),

		MessagesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "whastapweb",
				Subsystem: "messages",
				Name:      "sent_total",
				Help:      "Outbound messages by kind and status",
			},
			[]string{"kind", "status"},
		),

		EngineConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "whastapweb",
				Subsystem: "engine",
				Name:      "connected",
				Help:      "Engine transport status (0=disconnected, 1=connected)",
			},
		),
	}
}

// RecordHTTPRequest increments the request counter and observes duration.
func (m *Metrics) RecordHTTPRequest(route, method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, status).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordSessionsActive updates the live session gauge.
func (m *Metrics) RecordSessionsActive(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}

// RecordSessionStart increments the start counter for one outcome.
func (m *Metrics) RecordSessionStart(outcome string) {
	if m == nil {
		return
	}
	m.SessionStarts.WithLabelValues(outcome).Inc()
}

// RecordMessageSent increments the outbound message counter.
func (m *Metrics) RecordMessageSent(kind, status string) {
	if m == nil {
		return
	}
	m.MessagesSent.WithLabelValues(kind, status).Inc()
}

// RecordEngineStatus updates the engine connectivity gauge.
func (m *Metrics) RecordEngineStatus(connected bool) {
	if m == nil {
		return
	}
	value := 0.0
	if connected {
		value = 1.0
	}
	m.EngineConnected.Set(value)
}
