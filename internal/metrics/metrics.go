// Package metrics exposes the oracle's Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "xrc"

// Metrics holds every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	cyclesCharged    prometheus.Counter
	outbound         *prometheus.CounterVec
	outboundDuration *prometheus.HistogramVec
	forexRuns        *prometheus.CounterVec
}

// New creates the metrics and registers them, including the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "GetExchangeRate calls by outcome.",
		}, []string{"outcome"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "GetExchangeRate latency by pair class.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"pair"}),
		cyclesCharged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_charged_total",
			Help:      "Cycles accepted from callers.",
		}),
		outbound: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbound",
			Name:      "requests_total",
			Help:      "Outbound HTTP requests by source and status.",
		}, []string{"source", "status"}),
		outboundDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbound",
			Name:      "request_duration_seconds",
			Help:      "Outbound HTTP latency by source.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		forexRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forex",
			Name:      "source_fetches_total",
			Help:      "Forex source fetches by source and result.",
		}, []string{"source", "result"}),
	}
}

// ObserveRequest records a finished GetExchangeRate call.
func (m *Metrics) ObserveRequest(outcome, pair string, elapsed time.Duration, cycles uint64) {
	m.requests.WithLabelValues(outcome).Inc()
	m.requestDuration.WithLabelValues(pair).Observe(elapsed.Seconds())
	if cycles > 0 {
		m.cyclesCharged.Add(float64(cycles))
	}
}

// ObserveOutbound implements transport.Recorder.
func (m *Metrics) ObserveOutbound(source, status string, elapsed time.Duration) {
	m.outbound.WithLabelValues(source, status).Inc()
	m.outboundDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveForexFetch records one forex source fetch.
func (m *Metrics) ObserveForexFetch(source string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.forexRuns.WithLabelValues(source, result).Inc()
}

// Gauges are sampled on scrape.
type Gauges struct {
	CacheSize        func() float64
	OutboundInFlight func() float64
	FetchesInFlight  func() float64
	StoreBytes       func() float64
	StoreDays        func() float64
	RequestLogSize   func() float64
}

// RegisterGauges registers scrape-time gauges; nil functions are skipped.
func (m *Metrics) RegisterGauges(g Gauges) {
	f := promauto.With(m.registry)
	add := func(name, help string, fn func() float64) {
		if fn == nil {
			return
		}
		f.NewGaugeFunc(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, fn)
	}
	add("cache_entries", "Entries in the rate cache.", g.CacheSize)
	add("outbound_reserved", "Outbound exchange requests currently reserved.", g.OutboundInFlight)
	add("fetches_in_flight", "Distinct crypto symbol fetches currently running.", g.FetchesInFlight)
	add("forex_store_bytes", "Approximate bytes held by the forex store.", g.StoreBytes)
	add("forex_store_days", "Days held by the forex store.", g.StoreDays)
	add("request_log_entries", "Entries in the request log.", g.RequestLogSize)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
