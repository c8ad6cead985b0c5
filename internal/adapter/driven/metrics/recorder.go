// Package metrics exposes cleanup measurements as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ericfisherdev/vaultcleaner/internal/domain/model"
	"github.com/ericfisherdev/vaultcleaner/internal/domain/port/driven"
)

const namespace = "vaultcleaner"

// Compile-time interface satisfaction check.
var _ driven.MetricsRecorder = (*Recorder)(nil)

// Recorder implements driven.MetricsRecorder on a private registry.
type Recorder struct {
	registry      *prometheus.Registry
	vaults        *prometheus.CounterVec
	deletedPoints *prometheus.CounterVec
	vaultDuration *prometheus.HistogramVec
	runDuration   *prometheus.HistogramVec
	runs          *prometheus.CounterVec
}

// NewRecorder creates a Recorder with every collector registered, including
// the Go runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		vaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "vaults_total",
				Help:      "Vaults processed, by trigger and terminal status.",
			}, []string{"trigger", "status"},
		),
		deletedPoints: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recovery_points_deleted_total",
				Help:      "Recovery points deleted, by trigger.",
			}, []string{"trigger"},
		),
		vaultDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "vault_duration_seconds",
				Help:      "Time spent emptying one vault.",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
			}, []string{"trigger", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall-clock duration of a cleanup run.",
				Buckets:   []float64{0.5, 1, 5, 15, 60, 300, 900, 1800},
			}, []string{"trigger"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Cleanup runs completed, by trigger.",
			}, []string{"trigger"},
		),
	}

	r.registry.MustRegister(
		r.vaults,
		r.deletedPoints,
		r.vaultDuration,
		r.runDuration,
		r.runs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// ObserveOutcome records one vault's terminal outcome.
func (r *Recorder) ObserveOutcome(trigger model.Trigger, outcome model.Outcome) {
	t, s := string(trigger), string(outcome.Status)
	r.vaults.WithLabelValues(t, s).Inc()
	if outcome.Deleted > 0 {
		r.deletedPoints.WithLabelValues(t).Add(float64(outcome.Deleted))
	}
	// Skipped vaults never start a task, so they carry no duration.
	if outcome.Status != model.OutcomeSkipped {
		r.vaultDuration.WithLabelValues(t, s).Observe(outcome.Duration.Seconds())
	}
}

// ObserveRun records a completed run.
func (r *Recorder) ObserveRun(trigger model.Trigger, duration time.Duration) {
	r.runs.WithLabelValues(string(trigger)).Inc()
	r.runDuration.WithLabelValues(string(trigger)).Observe(duration.Seconds())
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
