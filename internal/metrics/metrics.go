// Package metrics exposes run diagnostics as Prometheus metrics written to a
// node-exporter textfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"co2-mcs/internal/model"
)

// Run is the outcome of one engine run as seen by the metrics layer.
type Run struct {
	Mode               string
	Draws              int
	Skipped            int
	DegenerateSamples  int
	RejectionExhausted int
	Duration           time.Duration
	Totals             []model.Summary
}

// Metrics holds a private registry so repeated runs in one process never collide.
type Metrics struct {
	registry           *prometheus.Registry
	drawsTotal         *prometheus.CounterVec
	skippedTotal       *prometheus.CounterVec
	degenerateTotal    *prometheus.CounterVec
	rejectionExhausted *prometheus.CounterVec
	runDuration        *prometheus.HistogramVec
	scenarioTotal      *prometheus.GaugeVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		drawsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "co2mcs_draws_total",
			Help: "Total (scenario, draw) pairs simulated, by run mode.",
		}, []string{"mode"}),
		skippedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "co2mcs_scenarios_skipped_total",
			Help: "Scenarios skipped because their rows could not be simulated.",
		}, []string{"mode"}),
		degenerateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "co2mcs_degenerate_samples_total",
			Help: "Triangular samples resolved to zero because the range was degenerate or undefined.",
		}, []string{"mode"}),
		rejectionExhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "co2mcs_rejection_exhausted_total",
			Help: "Truncated-normal samples clamped after exhausting rejection attempts.",
		}, []string{"mode"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "co2mcs_run_duration_seconds",
			Help:    "Wall-clock duration of engine runs.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"mode"}),
		scenarioTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "co2mcs_scenario_total_kgco2",
			Help: "Scenario-level total emissions percentiles of the latest run.",
		}, []string{"mode", "scenario", "quantile"}),
	}

	m.registry.MustRegister(
		m.drawsTotal,
		m.skippedTotal,
		m.degenerateTotal,
		m.rejectionExhausted,
		m.runDuration,
		m.scenarioTotal,
	)
	return m
}

// Observe records one run.
func (m *Metrics) Observe(r Run) {
	m.drawsTotal.WithLabelValues(r.Mode).Add(float64(r.Draws))
	m.skippedTotal.WithLabelValues(r.Mode).Add(float64(r.Skipped))
	m.degenerateTotal.WithLabelValues(r.Mode).Add(float64(r.DegenerateSamples))
	m.rejectionExhausted.WithLabelValues(r.Mode).Add(float64(r.RejectionExhausted))
	m.runDuration.WithLabelValues(r.Mode).Observe(r.Duration.Seconds())
	for _, s := range r.Totals {
		m.scenarioTotal.WithLabelValues(r.Mode, s.Scenario, "0.5").Set(s.Median)
		m.scenarioTotal.WithLabelValues(r.Mode, s.Scenario, "0.05").Set(s.P5)
		m.scenarioTotal.WithLabelValues(r.Mode, s.Scenario, "0.95").Set(s.P95)
	}
}

// WriteTextfile writes the registry in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
