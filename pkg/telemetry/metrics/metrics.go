// Package metrics exposes the engine's own operational metrics in
// Prometheus exposition format: execution outcomes, deletion counts,
// sweep timing, and scheduler behavior.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the engine's Prometheus metrics. All record methods
// are nil-safe so components can run without instrumentation in tests.
type Collector struct {
	registry *prometheus.Registry

	executionsTotal      *prometheus.CounterVec
	seriesDeletionsTotal prometheus.Counter
	metricFailuresTotal  prometheus.Counter
	sweepsTotal          prometheus.Counter
	skippedTicksTotal    prometheus.Counter
	sweepDuration        prometheus.Histogram
	sweepRunning         prometheus.Gauge
	enabledPolicies      prometheus.Gauge
}

// NewCollector creates and registers the engine metrics. If registry is
// nil a fresh registry is used.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		executionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reaper",
			Name:      "policy_executions_total",
			Help:      "Policy execution attempts by outcome.",
		}, []string{"outcome"}),
		seriesDeletionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reaper",
			Name:      "series_deletions_accepted_total",
			Help:      "Series deletion requests acknowledged by the remote store.",
		}),
		metricFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reaper",
			Name:      "metric_deletion_failures_total",
			Help:      "Per-metric deletion failures within batches.",
		}),
		sweepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reaper",
			Name:      "sweeps_total",
			Help:      "Completed full sweeps over enabled policies.",
		}),
		skippedTicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reaper",
			Name:      "scheduler_skipped_ticks_total",
			Help:      "Scheduler ticks skipped because a sweep was still running.",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reaper",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of full sweeps.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
		sweepRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "reaper",
			Name:      "sweep_running",
			Help:      "1 while a sweep is in progress.",
		}),
		enabledPolicies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "reaper",
			Name:      "enabled_policies",
			Help:      "Number of enabled policies at the last sweep.",
		}),
	}

	registry.MustRegister(
		c.executionsTotal,
		c.seriesDeletionsTotal,
		c.metricFailuresTotal,
		c.sweepsTotal,
		c.skippedTicksTotal,
		c.sweepDuration,
		c.sweepRunning,
		c.enabledPolicies,
	)

	return c
}

// Handler returns the Prometheus exposition handler for this registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordExecution counts one completed execution attempt.
func (c *Collector) RecordExecution(succeeded bool) {
	if c == nil {
		return
	}
	outcome := "success"
	if !succeeded {
		outcome = "failure"
	}
	c.executionsTotal.WithLabelValues(outcome).Inc()
}

// RecordBatch counts deletion outcomes from one batch.
func (c *Collector) RecordBatch(accepted, failed int) {
	if c == nil {
		return
	}
	c.seriesDeletionsTotal.Add(float64(accepted))
	c.metricFailuresTotal.Add(float64(failed))
}

// RecordSweep records one completed sweep.
func (c *Collector) RecordSweep(seconds float64, enabledPolicies int) {
	if c == nil {
		return
	}
	c.sweepsTotal.Inc()
	c.sweepDuration.Observe(seconds)
	c.enabledPolicies.Set(float64(enabledPolicies))
}

// RecordSkippedTick counts a coalesced scheduler tick.
func (c *Collector) RecordSkippedTick() {
	if c == nil {
		return
	}
	c.skippedTicksTotal.Inc()
}

// SetSweepRunning flips the in-progress gauge.
func (c *Collector) SetSweepRunning(running bool) {
	if c == nil {
		return
	}
	if running {
		c.sweepRunning.Set(1)
	} else {
		c.sweepRunning.Set(0)
	}
}
