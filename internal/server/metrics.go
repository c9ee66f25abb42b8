package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's counters on a server-owned registry, so
// tests can create servers without fighting over the global registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal  *prometheus.CounterVec
	AuthFailures   *prometheus.CounterVec
	RateLimited    prometheus.Counter
	OriginDenied   prometheus.Counter
	PayloadRefused prometheus.Counter
	Interactions   *prometheus.CounterVec
	TreesRejected  *prometheus.CounterVec
}

// NewMetrics creates and registers the gateway counters.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatgate_requests_total",
			Help: "Requests by method and response status.",
		}, []string{"method", "status"}),
		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatgate_auth_failures_total",
			Help: "Authentication failures by reason.",
		}, []string{"reason"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatgate_rate_limited_total",
			Help: "Requests denied by the sliding-window rate limiter.",
		}),
		OriginDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatgate_origin_denied_total",
			Help: "Admin requests denied by the IP allow-list.",
		}),
		PayloadRefused: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatgate_payload_refused_total",
			Help: "Requests refused for exceeding the payload size limit.",
		}),
		Interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatgate_interactions_total",
			Help: "Interaction callbacks dispatched, by kind.",
		}, []string{"kind"}),
		TreesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatgate_component_trees_rejected_total",
			Help: "Component trees rejected by structural validation, by reason.",
		}, []string{"reason"}),
	}

	registry.MustRegister(
		m.RequestsTotal, m.AuthFailures, m.RateLimited, m.OriginDenied,
		m.PayloadRefused, m.Interactions, m.TreesRejected,
	)
	return m
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
