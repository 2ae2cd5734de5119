// Package metrics exposes Prometheus metrics for provider calls, content
// version transitions and HTTP requests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/coursegen/internal/domain"
	"github.com/phrazzld/coursegen/internal/generation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coursegen"

// Metrics holds the application collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	generationRequests *prometheus.CounterVec
	generationErrors   *prometheus.CounterVec
	generationRetries  *prometheus.CounterVec
	generationTokens   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	transitions        *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

var _ generation.Observer = (*Metrics)(nil)

// New registers every collector, plus the Go and process collectors, on a
// fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_requests_total",
			Help:      "Provider generation calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		generationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_errors_total",
			Help:      "Failed provider generation calls by provider and error kind.",
		}, []string{"provider", "kind"}),
		generationRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_retries_total",
			Help:      "Provider call retries by provider and the error kind that caused them.",
		}, []string{"provider", "kind"}),
		generationTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_tokens_total",
			Help:      "Tokens consumed by successful generation calls.",
		}, []string{"provider"}),
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Wall-clock duration of generation calls including retries.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"provider", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "version_transitions_total",
			Help:      "Content version lifecycle operations by kind.",
		}, []string{"transition"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.generationRequests,
		m.generationErrors,
		m.generationRetries,
		m.generationTokens,
		m.generationDuration,
		m.transitions,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry returns the registry holding the application collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSuccess implements generation.Observer.
func (m *Metrics) ObserveSuccess(provider domain.ProviderName, latency time.Duration, tokens int) {
	p := string(provider)
	m.generationRequests.WithLabelValues(p, "success").Inc()
	m.generationDuration.WithLabelValues(p, "success").Observe(latency.Seconds())
	if tokens > 0 {
		m.generationTokens.WithLabelValues(p).Add(float64(tokens))
	}
}

// ObserveFailure implements generation.Observer.
func (m *Metrics) ObserveFailure(provider domain.ProviderName, latency time.Duration, kind generation.ErrorKind) {
	p := string(provider)
	m.generationRequests.WithLabelValues(p, "failure").Inc()
	m.generationErrors.WithLabelValues(p, string(kind)).Inc()
	m.generationDuration.WithLabelValues(p, "failure").Observe(latency.Seconds())
}

// ObserveRetry implements generation.Observer.
func (m *Metrics) ObserveRetry(provider domain.ProviderName, kind generation.ErrorKind) {
	m.generationRetries.WithLabelValues(string(provider), string(kind)).Inc()
}

// RecordTransition counts one version lifecycle operation, such as
// "publish" or "compare".
func (m *Metrics) RecordTransition(transition string) {
	m.transitions.WithLabelValues(transition).Inc()
}

// Middleware records request counts and latency labelled by the matched chi
// route pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
