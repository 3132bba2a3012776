package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spektr-org/cncwatch/engine"
)

// Metrics holds the Prometheus collectors of one server, registered on a
// private registry so several servers (and tests) can coexist.
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	LatencyHistogram *prometheus.HistogramVec
	RateLimitHits    prometheus.Counter
	PipelineDuration *prometheus.HistogramVec
	DatasetRecords   prometheus.Gauge
	DatasetReloads   *prometheus.CounterVec
	registry         *prometheus.Registry
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cncwatch_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		LatencyHistogram: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cncwatch_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RateLimitHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cncwatch_rate_limit_hits_total",
				Help: "Requests rejected by the rate limiter",
			},
		),
		PipelineDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cncwatch_pipeline_duration_seconds",
				Help:    "Time spent filtering and aggregating one request",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"section"},
		),
		DatasetRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cncwatch_dataset_records",
				Help: "Records in the currently loaded dataset",
			},
		),
		DatasetReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cncwatch_dataset_loads_total",
				Help: "Dataset load attempts by result",
			},
			[]string{"result"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.RequestCounter,
		m.LatencyHistogram,
		m.RateLimitHits,
		m.PipelineDuration,
		m.DatasetRecords,
		m.DatasetReloads,
	)
	return m
}

// IncrementRequest counts one finished request.
func (m *Metrics) IncrementRequest(method, route string, status int) {
	m.RequestCounter.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// RecordLatency records request latency.
func (m *Metrics) RecordLatency(method, route string, seconds float64) {
	m.LatencyHistogram.WithLabelValues(method, route).Observe(seconds)
}

// IncrementRateLimitHit counts one rejected request.
func (m *Metrics) IncrementRateLimitHit() {
	m.RateLimitHits.Inc()
}

// ObservePipeline records how long one section took to compute.
func (m *Metrics) ObservePipeline(section string, d time.Duration) {
	m.PipelineDuration.WithLabelValues(section).Observe(d.Seconds())
}

// ObserveLoad matches helpers.ReloadHook: it counts the attempt and tracks
// the size of the dataset now being served.
func (m *Metrics) ObserveLoad(ds *engine.Dataset, err error, _ time.Duration) {
	if err != nil {
		m.DatasetReloads.WithLabelValues("failure").Inc()
		return
	}
	m.DatasetReloads.WithLabelValues("success").Inc()
	m.DatasetRecords.Set(float64(ds.Len()))
}

// Registry exposes the private registry, e.g. for testutil.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns the Prometheus metrics handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
