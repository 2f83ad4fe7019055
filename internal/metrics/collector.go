// Package metrics exposes Prometheus metrics for the HTTP and gRPC servers,
// validation failures, rate limiting and the translation proxy.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/palabeo/palabeo/internal/validation"
)

const namespace = "palabeo"

// Translation outcomes.
const (
	TranslationHit   = "cache_hit"
	TranslationMiss  = "cache_miss"
	TranslationError = "error"
)

// Collector owns a private registry and every metric recorded on it.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	grpcRequests       *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	rateLimited        prometheus.Counter
	translations       *prometheus.CounterVec
}

// NewCollector creates a collector with Go runtime and process metrics
// already registered.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &Collector{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		grpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "gRPC requests by full method and status code.",
		}, []string{"method", "code"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Validation errors returned to clients, by error code.",
		}, []string{"code"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		translations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_total",
			Help:      "Translation lookups by result.",
		}, []string{"result"}),
	}

	registry.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.grpcRequests,
		c.validationFailures,
		c.rateLimited,
		c.translations,
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveHTTPRequest records one served request. route is the matched route
// pattern, not the raw path.
func (c *Collector) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveGRPCRequest records one unary call.
func (c *Collector) ObserveGRPCRequest(method, code string) {
	if c == nil {
		return
	}
	c.grpcRequests.WithLabelValues(method, code).Inc()
}

// ValidationFailed counts each error code in errs.
func (c *Collector) ValidationFailed(errs validation.Errors) {
	if c == nil {
		return
	}
	for _, e := range errs {
		c.validationFailures.WithLabelValues(e.Code).Inc()
	}
}

// RateLimited counts one rejected request.
func (c *Collector) RateLimited() {
	if c == nil {
		return
	}
	c.rateLimited.Inc()
}

// Translation counts one lookup with the given result.
func (c *Collector) Translation(result string) {
	if c == nil {
		return
	}
	c.translations.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
