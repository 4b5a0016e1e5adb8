// Package metrics counts installer operations for Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/glorpus-work/extpack/pkg/fsutil"
)

// Namespace prefixes every metric name.
const Namespace = "extpack"

// Outcomes of an operation.
const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Metrics defines the counters the installer records.
type Metrics interface {
	IncOperation(op, outcome string)
	ObserveDuration(op string, seconds float64)
	IncValidationIssue(code string)
	IncBackup()
	IncSwept(kind string)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncOperation(string, string)     {}
func (Noop) ObserveDuration(string, float64) {}
func (Noop) IncValidationIssue(string)       {}
func (Noop) IncBackup()                      {}
func (Noop) IncSwept(string)                 {}

// Prom implements Metrics on its own Prometheus registry, so that a short-lived CLI
// run can dump exactly its own counters to a textfile.
type Prom struct {
	registry         *prometheus.Registry
	operations       *prometheus.CounterVec
	durations        *prometheus.HistogramVec
	validationIssues *prometheus.CounterVec
	backups          prometheus.Counter
	swept            *prometheus.CounterVec
}

// NewProm creates and registers the installer metrics.
func NewProm() *Prom {
	p := &Prom{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Installer operations by kind and outcome",
		}, []string{"operation", "outcome"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Installer operation duration by kind",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		validationIssues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "validation_issues_total",
			Help:      "Validation issues by code",
		}, []string{"code"}),
		backups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "module_backups_total",
			Help:      "Modules renamed aside instead of being overwritten or deleted",
		}),
		swept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "swept_total",
			Help:      "Paths removed by the startup sweep by kind",
		}, []string{"kind"}),
	}
	p.registry.MustRegister(p.operations, p.durations, p.validationIssues, p.backups, p.swept)
	return p
}

// Registry exposes the underlying registry.
func (p *Prom) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Prom) IncOperation(op, outcome string) {
	p.operations.WithLabelValues(op, outcome).Inc()
}

func (p *Prom) ObserveDuration(op string, seconds float64) {
	p.durations.WithLabelValues(op).Observe(seconds)
}

func (p *Prom) IncValidationIssue(code string) {
	p.validationIssues.WithLabelValues(code).Inc()
}

func (p *Prom) IncBackup() {
	p.backups.Inc()
}

func (p *Prom) IncSwept(kind string) {
	p.swept.WithLabelValues(kind).Inc()
}

// WriteTextfile writes the current values in the text exposition format for the
// node exporter textfile collector.
func (p *Prom) WriteTextfile(path string) error {
	if err := fsutil.EnsureFileDir(path); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, p.registry)
}
