// Package metrics exposes Prometheus collectors for the client.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "digibank"

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Metrics groups every collector the client records into.
type Metrics struct {
	registry *prometheus.Registry

	IdentityRequests     *prometheus.CounterVec
	IdentityDuration     *prometheus.HistogramVec
	SessionAuthenticated prometheus.Gauge
	SessionTransitions   *prometheus.CounterVec
	SubmissionsRejected  *prometheus.CounterVec
	BreakerTransitions   *prometheus.CounterVec
	HTTPRequests         *prometheus.CounterVec
	HTTPDuration         *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		IdentityRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_requests_total",
			Help:      "Identity service calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		IdentityDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "identity_request_duration_seconds",
			Help:      "Duration of identity service calls.",
			Buckets:   durationBuckets,
		}, []string{"operation"}),
		SessionAuthenticated: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_authenticated",
			Help:      "1 while the session is authenticated.",
		}),
		SessionTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session state changes by target state.",
		}, []string{"to"}),
		SubmissionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_rejected_total",
			Help:      "Form submissions rejected while another was in flight.",
		}, []string{"form"}),
		BreakerTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Circuit breaker state changes by service and state.",
		}, []string{"service", "state"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Handled view requests.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of handled view requests.",
			Buckets:   durationBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveIdentity records one identity call.
func (m *Metrics) ObserveIdentity(operation, outcome string, start time.Time) {
	m.IdentityRequests.WithLabelValues(operation, outcome).Inc()
	m.IdentityDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveSession records a session state change.
func (m *Metrics) ObserveSession(authenticated bool) {
	if authenticated {
		m.SessionAuthenticated.Set(1)
		m.SessionTransitions.WithLabelValues("authenticated").Inc()
		return
	}
	m.SessionAuthenticated.Set(0)
	m.SessionTransitions.WithLabelValues("anonymous").Inc()
}

// ObserveRejectedSubmission records a duplicate submission.
func (m *Metrics) ObserveRejectedSubmission(form string) {
	m.SubmissionsRejected.WithLabelValues(form).Inc()
}

// BreakerObserver returns an OnStateChange hook for the named service.
func (m *Metrics) BreakerObserver(service string) func(state string) {
	return func(state string) {
		m.BreakerTransitions.WithLabelValues(service, state).Inc()
	}
}

// ObserveHTTP records a handled view request.
func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
