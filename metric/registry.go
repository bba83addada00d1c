package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the prometheus registry and the gateway metrics registered
// in it.
type Registry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics
}

// NewRegistry creates a registry with all gateway metrics plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	prometheusRegistry := prometheus.NewRegistry()

	m := NewMetrics()
	prometheusRegistry.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.SessionsActive,
		m.SessionStarts,
		m.MessagesSent,
		m.EngineConnected,
	)

	prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Registry{
		prometheusRegistry: prometheusRegistry,
		Metrics:            m,
	}
}

// PrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// Handler returns the exposition handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(
		r.prometheusRegistry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	)
}
