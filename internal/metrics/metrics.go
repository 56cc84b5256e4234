// Package metrics exposes Prometheus counters for item operations and the
// session state machine. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "homestock"

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry       *prometheus.Registry
	itemOperations *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	redirectClaims *prometheus.CounterVec
}

// New creates the collectors and registers them, plus Go runtime and process
// collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		itemOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_operations_total",
			Help:      "Item operations by operation and result.",
		}, []string{"op", "result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session phase transitions by target phase.",
		}, []string{"phase"}),
		redirectClaims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redirect_claims_total",
			Help:      "Redirect sign-in claim attempts by detection path and outcome.",
		}, []string{"path", "outcome"}),
	}

	m.registry.MustRegister(
		m.itemOperations,
		m.transitions,
		m.redirectClaims,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ItemOperation counts one item operation; err decides the result label.
func (m *Metrics) ItemOperation(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.itemOperations.WithLabelValues(op, result).Inc()
}

// SessionTransition counts a move into phase.
func (m *Metrics) SessionTransition(phase string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(phase).Inc()
}

// RedirectClaim counts a claim attempt from one detection path.
func (m *Metrics) RedirectClaim(path string, won bool) {
	if m == nil {
		return
	}
	outcome := "won"
	if !won {
		outcome = "skipped"
	}
	m.redirectClaims.WithLabelValues(path, outcome).Inc()
}
