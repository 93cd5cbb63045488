package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts RPC calls per method and outcome. Nil is valid.
type Metrics struct {
	calls *prometheus.CounterVec
}

// NewMetrics registers the collectors with registry, or the default
// registerer when nil.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	return &Metrics{
		calls: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "txflow_rpc_calls_total",
				Help: "RPC calls by method and status (success, error, failover)",
			},
			[]string{"method", "status"},
		),
	}
}

func (m *Metrics) record(method, status string) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(method, status).Inc()
}
