// Package metrics defines the Prometheus instruments of the query engine.
//
// Instruments are registered on an injected prometheus.Registerer so that
// tests and embedders control their lifetime. All operations are safe for
// concurrent use.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tal"

// Run outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the engine's instruments.
type Metrics struct {
	// RunsTotal counts query runs by outcome (ok, error).
	RunsTotal *prometheus.CounterVec

	// RunDurationSeconds measures whole runs.
	RunDurationSeconds prometheus.Histogram

	// EntitiesRebuilt counts entity histories reconstructed.
	EntitiesRebuilt prometheus.Counter

	// ResolverRounds counts fixed-point rounds.
	ResolverRounds prometheus.Counter

	// SnapshotsPerRun observes the number of aligned instants per run.
	SnapshotsPerRun prometheus.Histogram

	// UpstreamFailures counts failed backend calls by phase.
	UpstreamFailures *prometheus.CounterVec

	// MalformedUpdates counts update statements skipped during mining.
	MalformedUpdates prometheus.Counter

	// OmittedInstants counts instants dropped because execution failed.
	OmittedInstants prometheus.Counter
}

// New creates the instruments and registers them on reg. A nil reg leaves
// them unregistered, which suits tests that only read values back.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Query runs by outcome.",
		}, []string{"outcome"}),
		RunDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of query runs in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		EntitiesRebuilt: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_rebuilt_total",
			Help:      "Entity histories reconstructed.",
		}),
		ResolverRounds: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_rounds_total",
			Help:      "Binding resolver fixed-point rounds.",
		}),
		SnapshotsPerRun: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshots_per_run",
			Help:      "Aligned instants per query run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		UpstreamFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_failures_total",
			Help:      "Failed backend calls by phase.",
		}, []string{"phase"}),
		MalformedUpdates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_updates_total",
			Help:      "Update statements skipped because they could not be parsed.",
		}),
		OmittedInstants: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "omitted_instants_total",
			Help:      "Instants omitted from results after an execution failure.",
		}),
	}
}

// ObserveRun records one finished run.
func (m *Metrics) ObserveRun(d time.Duration, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.RunDurationSeconds.Observe(d.Seconds())
}
