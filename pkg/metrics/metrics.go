package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Metrics holds the Prometheus collectors exported by the service.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	AccessDecisions  *prometheus.CounterVec
	BufferedWrites   *prometheus.CounterVec
	BufferDrainItems *prometheus.CounterVec
}

// New registers every collector on a private registry.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"code", "method", "operation"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Histogram of latencies for HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "operation"},
		),
		AccessDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "access_decisions_total",
				Help:      "Authorization decisions by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		BufferedWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "buffered_writes_total",
				Help:      "Writes parked in the offline buffer, by entity.",
			},
			[]string{"entity"},
		),
		BufferDrainItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "buffer_drain_items_total",
				Help:      "Buffered items handled by the drain loop, by result.",
			},
			[]string{"result"},
		),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.RequestsTotal,
		m.RequestDuration,
		m.AccessDecisions,
		m.BufferedWrites,
		m.BufferDrainItems,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveDecision counts one authorization outcome.
func (m *Metrics) ObserveDecision(operation, outcome string) {
	if m == nil {
		return
	}
	m.AccessDecisions.WithLabelValues(operation, outcome).Inc()
}

// ObserveBuffered counts one write parked in the offline buffer.
func (m *Metrics) ObserveBuffered(entity string) {
	if m == nil {
		return
	}
	m.BufferedWrites.WithLabelValues(entity).Inc()
}

// ObserveDrain counts one buffered item handled by the drain loop.
func (m *Metrics) ObserveDrain(result string) {
	if m == nil {
		return
	}
	m.BufferDrainItems.WithLabelValues(result).Inc()
}

// Instrument wraps next and records request count and latency under operation.
func (m *Metrics) Instrument(operation string, next fasthttp.RequestHandler) fasthttp.RequestHandler {
	if m == nil {
		return next
	}
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		method := string(ctx.Method())
		m.RequestsTotal.WithLabelValues(strconv.Itoa(ctx.Response.StatusCode()), method, operation).Inc()
		m.RequestDuration.WithLabelValues(method, operation).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
