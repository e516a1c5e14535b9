// Package metrics exports copy-on-write simulation events as Prometheus
// metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kolkov/cowsim/internal/cow/simulator"
)

var (
	simulatorPrometheusMetrics sync.Once

	simulatorEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cowsim",
			Subsystem: "simulator",
			Name:      "events_total",
			Help:      "Number of copy-on-write simulator events, by outcome",
		},
		[]string{"name", "outcome"},
	)
	simulatorStaleViews = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cowsim",
			Subsystem: "simulator",
			Name:      "stale_views_total",
			Help:      "Number of accesses through a view whose shadow generation was advanced by another owner",
		},
		[]string{"name"},
	)
	simulatorGeneration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cowsim",
			Subsystem: "simulator",
			Name:      "generation",
			Help:      "Shadow storage generation observed after a divergent access",
			Buckets:   prometheus.ExponentialBuckets(1.0, 2.0, 12),
		},
		[]string{"name"},
	)
)

// Observer forwards simulator events to Prometheus. It implements
// simulator.Observer.
type Observer struct {
	installed prometheus.Counter
	reused    prometheus.Counter
	forked    prometheus.Counter
	bumped    prometheus.Counter
	ignored   prometheus.Counter

	staleViews prometheus.Counter
	generation prometheus.Observer
}

var _ simulator.Observer = (*Observer)(nil)

// NewObserver creates an observer whose series carry the label name=name.
// The metrics are registered with the default registerer on first use.
func NewObserver(name string) *Observer {
	simulatorPrometheusMetrics.Do(func() {
		prometheus.MustRegister(simulatorEvents)
		prometheus.MustRegister(simulatorStaleViews)
		prometheus.MustRegister(simulatorGeneration)
	})

	events := simulatorEvents.MustCurryWith(map[string]string{"name": name})
	return &Observer{
		installed: events.WithLabelValues(simulator.Installed.String()),
		reused:    events.WithLabelValues(simulator.Reused.String()),
		forked:    events.WithLabelValues(simulator.Forked.String()),
		bumped:    events.WithLabelValues(simulator.Bumped.String()),
		ignored:   events.WithLabelValues(simulator.Ignored.String()),

		staleViews: simulatorStaleViews.WithLabelValues(name),
		generation: simulatorGeneration.WithLabelValues(name),
	}
}

// Observe records e.
func (o *Observer) Observe(e simulator.Event) {
	switch e.Outcome {
	case simulator.Installed:
		o.installed.Inc()
	case simulator.Reused:
		o.reused.Inc()
	case simulator.Forked:
		o.forked.Inc()
	case simulator.Bumped:
		o.bumped.Inc()
	case simulator.Ignored:
		o.ignored.Inc()
	}
	if e.Stale {
		o.staleViews.Inc()
	}
	if e.Outcome.Divergent() {
		o.generation.Observe(float64(e.Generation))
	}
}
