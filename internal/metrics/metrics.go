// Package metrics exposes Prometheus counters for the sign-in flow.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "signin"

// Login attempt outcomes
const (
	OutcomeInvalid     = "invalid"
	OutcomeRejected    = "rejected"
	OutcomeUnavailable = "unavailable"
	OutcomeSuccess     = "success"
)

// Metrics holds the counters recorded by handlers.
type Metrics struct {
	registry        *prometheus.Registry
	PageRenders     *prometheus.CounterVec
	LoginAttempts   *prometheus.CounterVec
	SocialRedirects *prometheus.CounterVec
}

// New registers the sign-in collectors plus the Go and process collectors on
// a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PageRenders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_renders_total",
			Help:      "Login page renders by result.",
		}, []string{"result"}),
		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login form submissions by outcome.",
		}, []string{"outcome"}),
		SocialRedirects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "social_redirects_total",
			Help:      "Redirects to social-login providers.",
		}, []string{"provider"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
