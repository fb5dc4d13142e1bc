// Package metrics exposes Prometheus counters for dispatch outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	DispatchTotal  *prometheus.CounterVec
	DetectTotal    prometheus.Counter
	RotationsTotal *prometheus.CounterVec
	TickDuration   prometheus.Histogram
}

// New creates and registers the collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "syndicate",
			Name:      "dispatch_results_total",
			Help:      "Dispatch results by platform and outcome.",
		}, []string{"platform", "outcome"}),
		DetectTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "syndicate",
			Name:      "detect_runs_total",
			Help:      "Detection ticks executed.",
		}),
		RotationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "syndicate",
			Name:      "credential_rotations_total",
			Help:      "Credential rotation attempts by result.",
		}, []string{"result"}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "syndicate",
			Name:      "tick_duration_seconds",
			Help:      "Duration of detection+dispatch ticks.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.DispatchTotal, m.DetectTotal, m.RotationsTotal, m.TickDuration)
	return m
}

// NewNop creates collectors registered on a throwaway registry, for
// tests and callers that do not scrape.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
