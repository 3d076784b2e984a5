// Package metrics holds the pipeline's Prometheus collectors on a private
// registry. A nil *Metrics records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OK      = "ok"
	Failed  = "failed"
	Skipped = "skipped"
	Reused  = "reused"
)

type Metrics struct {
	registry      *prometheus.Registry
	modelCalls    *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	indexBuilds   *prometheus.CounterVec
	persists      *prometheus.CounterVec
	flowDurations *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		modelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "briefing_model_calls_total",
			Help: "Generative model invocations by outcome.",
		}, []string{"outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "briefing_fallbacks_total",
			Help: "Results produced by the extractive fallback, by task.",
		}, []string{"task"}),
		indexBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "briefing_index_builds_total",
			Help: "Vector index builds by outcome.",
		}, []string{"outcome"}),
		persists: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "briefing_persist_total",
			Help: "Index persistence attempts by outcome.",
		}, []string{"outcome"}),
		flowDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "briefing_flow_duration_seconds",
			Help:    "Wall time of each orchestrated flow.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"task"}),
	}
	m.registry.MustRegister(
		m.modelCalls, m.fallbacks, m.indexBuilds, m.persists, m.flowDurations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ModelCall(outcome string) {
	if m == nil {
		return
	}
	m.modelCalls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Fallback(task string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(task).Inc()
}

func (m *Metrics) IndexBuild(outcome string) {
	if m == nil {
		return
	}
	m.indexBuilds.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Persist(outcome string) {
	if m == nil {
		return
	}
	m.persists.WithLabelValues(outcome).Inc()
}

// ObserveFlow records the time elapsed since start for task.
func (m *Metrics) ObserveFlow(task string, start time.Time) {
	if m == nil {
		return
	}
	m.flowDurations.WithLabelValues(task).Observe(time.Since(start).Seconds())
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
