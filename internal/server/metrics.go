package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	truncated *prometheus.CounterVec
	omitted   *prometheus.CounterVec
	cache     *prometheus.CounterVec
	llmErrors *prometheus.CounterVec
}

// newMetrics registers on a private registry so several servers can live
// in one process.
func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devsentinel",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "devsentinel",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"route"}),
		truncated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devsentinel",
			Subsystem: "analysis",
			Name:      "truncated_total",
			Help:      "Analyses stopped early by the traversal budget",
		}, []string{"language"}),
		omitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devsentinel",
			Subsystem: "analysis",
			Name:      "omitted_functions_total",
			Help:      "Functions left out of complexity reports after a failure",
		}, []string{"language"}),
		cache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devsentinel",
			Subsystem: "analysis",
			Name:      "cache_lookups_total",
			Help:      "Analysis cache lookups by result (hit, miss)",
		}, []string{"result"}),
		llmErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devsentinel",
			Subsystem: "llm",
			Name:      "errors_total",
			Help:      "Failed LLM calls by task",
		}, []string{"task"}),
	}
}
