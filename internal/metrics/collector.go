// Package metrics exposes Prometheus metrics for the vectorize pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vectorize"

// Collector records upload, generation and HTTP metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	uploadsTotal        *prometheus.CounterVec
	generationsTotal    *prometheus.CounterVec
	generationDuration  prometheus.Histogram
	supersededTotal     prometheus.Counter
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimitedTotal    prometheus.Counter
}

// NewCollector creates a collector with process and Go runtime collectors
// registered alongside the pipeline metrics.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &Collector{registry: reg}

	c.uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Total number of image uploads by validation result",
		},
		[]string{"result"},
	)

	c.generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Total number of generation attempts by outcome kind",
		},
		[]string{"kind"},
	)

	c.generationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Gemini generation latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	c.supersededTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_superseded_total",
			Help:      "Generation results dropped because the session moved on",
		},
	)

	c.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	c.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	c.rateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		},
	)

	reg.MustRegister(
		c.uploadsTotal,
		c.generationsTotal,
		c.generationDuration,
		c.supersededTotal,
		c.httpRequestsTotal,
		c.httpRequestDuration,
		c.rateLimitedTotal,
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveUpload(result string) {
	c.uploadsTotal.WithLabelValues(result).Inc()
}

func (c *Collector) ObserveGeneration(kind string, elapsed time.Duration) {
	c.generationsTotal.WithLabelValues(kind).Inc()
	c.generationDuration.Observe(elapsed.Seconds())
}

func (c *Collector) ObserveSuperseded() {
	c.supersededTotal.Inc()
}

// ObserveHTTPRequest records one served request. route is the matched route
// pattern, not the raw path.
func (c *Collector) ObserveHTTPRequest(method, route, status string, elapsed time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveRateLimited() {
	c.rateLimitedTotal.Inc()
}
