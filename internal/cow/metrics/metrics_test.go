package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/cowsim/internal/cow/simulator"
)

func TestObserver_CountsOutcomes(t *testing.T) {
	const name = "counts_outcomes"
	o := NewObserver(name)

	o.Observe(simulator.Event{Outcome: simulator.Installed})
	o.Observe(simulator.Event{Outcome: simulator.Reused})
	o.Observe(simulator.Event{Outcome: simulator.Reused})
	o.Observe(simulator.Event{Outcome: simulator.Forked, Generation: 1})
	o.Observe(simulator.Event{Outcome: simulator.Bumped, Generation: 2, Stale: true})
	o.Observe(simulator.Event{Outcome: simulator.Ignored})

	for outcome, want := range map[string]float64{
		"installed": 1,
		"reused":    2,
		"forked":    1,
		"bumped":    1,
		"ignored":   1,
	} {
		got := testutil.ToFloat64(simulatorEvents.WithLabelValues(name, outcome))
		assert.Equal(t, want, got, outcome)
	}
	assert.Equal(t, float64(1), testutil.ToFloat64(simulatorStaleViews.WithLabelValues(name)))
}

func TestObserver_SeparateNames(t *testing.T) {
	a := NewObserver("separate_a")
	NewObserver("separate_b")

	a.Observe(simulator.Event{Outcome: simulator.Bumped})

	assert.Equal(t, float64(1), testutil.ToFloat64(simulatorEvents.WithLabelValues("separate_a", "bumped")))
	assert.Equal(t, float64(0), testutil.ToFloat64(simulatorEvents.WithLabelValues("separate_b", "bumped")))
}

func TestObserver_GenerationHistogram(t *testing.T) {
	const name = "generation_histogram"
	o := NewObserver(name)
	o.Observe(simulator.Event{Outcome: simulator.Bumped, Generation: 3})
	o.Observe(simulator.Event{Outcome: simulator.Forked, Generation: 5})
	o.Observe(simulator.Event{Outcome: simulator.Reused, Generation: 7})

	var m dto.Metric
	require.NoError(t, simulatorGeneration.WithLabelValues(name).(prometheus.Metric).Write(&m))
	assert.Equal(t, uint64(2), m.GetHistogram().GetSampleCount())
	assert.Equal(t, float64(8), m.GetHistogram().GetSampleSum())
}
