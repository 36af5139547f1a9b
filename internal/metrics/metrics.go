// Package metrics exposes Prometheus collectors for evaluation runs and report requests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quest_eval"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	examples       *prometheus.CounterVec
	llmCalls       *prometheus.CounterVec
	cacheRequests  *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	activeWorkers  prometheus.Gauge
	recomputations prometheus.Counter
}

// MustNewMetrics constructs and registers the collectors with reg.
// Registration errors panic, mirroring the promauto helpers.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		examples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "examples_evaluated_total",
			Help:      "Examples evaluated, by heuristic verdict (or \"errored\").",
		}, []string{"verdict"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "LLM analyses issued, by analysis type and outcome.",
		}, []string{"analysis", "outcome"}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_cache_requests_total",
			Help:      "Aggregate report requests, by cache result.",
		}, []string{"result"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each per-example pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		activeWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_workers",
			Help:      "Examples currently being evaluated.",
		}),
		recomputations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_recomputations_total",
			Help:      "Aggregate reports recomputed from evaluation records.",
		}),
	}

	reg.MustRegister(m.examples, m.llmCalls, m.cacheRequests, m.stageDuration, m.activeWorkers, m.recomputations)
	return m
}

// ObserveExample counts one finished example.
func (m *Metrics) ObserveExample(verdict string) {
	if m == nil {
		return
	}
	m.examples.WithLabelValues(verdict).Inc()
}

// ObserveLLMCall counts one analysis. outcome is "ok" or "degraded".
func (m *Metrics) ObserveLLMCall(analysis string, degraded bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if degraded {
		outcome = "degraded"
	}
	m.llmCalls.WithLabelValues(analysis, outcome).Inc()
}

// ObserveCache counts a report request: "hit", "miss", "stale" or "refresh".
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(result).Inc()
}

// ObserveRecompute counts one report recomputation.
func (m *Metrics) ObserveRecompute() {
	if m == nil {
		return
	}
	m.recomputations.Inc()
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// WorkerStarted and WorkerDone track in-flight examples.
func (m *Metrics) WorkerStarted() {
	if m == nil {
		return
	}
	m.activeWorkers.Inc()
}

func (m *Metrics) WorkerDone() {
	if m == nil {
		return
	}
	m.activeWorkers.Dec()
}

// WriteTextfile writes the registry's metrics in the node_exporter textfile format.
func WriteTextfile(path string, gatherer prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, gatherer)
}
