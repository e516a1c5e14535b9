package report

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/cowsim/internal/cow/simulator"
)

func forkEvent(parent, record uint64, op string) simulator.Event {
	return simulator.Event{
		Access:     simulator.Access{Kind: simulator.Write, Op: op, View: 3},
		Outcome:    simulator.Forked,
		Record:     record,
		Parent:     parent,
		Generation: 2,
		Views:      1,
	}
}

func bumpEvent(record uint64, op string) simulator.Event {
	return simulator.Event{
		Access:     simulator.Access{Kind: simulator.Write, Op: op},
		Outcome:    simulator.Bumped,
		Record:     record,
		Generation: 5,
		Views:      2,
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "forked:4:add_", Key(forkEvent(4, 9, "add_")))
	assert.Equal(t, "bumped:7:mul_", Key(bumpEvent(7, "mul_")))
}

func TestReport_FormatFork(t *testing.T) {
	r := &Report{Event: forkEvent(4, 9, "add_")}

	want := "==================\n" +
		"WARNING: SIMULATED COPY-ON-WRITE\n" +
		"write by op \"add_\" (view 3) forked shadow storage 4\n" +
		"  now shadow storage 9 at generation 2, 1 view(s)\n" +
		"==================\n"
	assert.Equal(t, want, r.String())
}

func TestReport_FormatStaleBump(t *testing.T) {
	e := bumpEvent(7, "mul_")
	e.Stale = true
	out := (&Report{Event: e}).String()

	assert.Contains(t, out, "write by op \"mul_\" bumped shadow storage 7\n")
	assert.Contains(t, out, "  generation 5, 2 view(s)\n")
	assert.Contains(t, out, "view was stale")
}

func TestRecorder_IgnoresNonDivergent(t *testing.T) {
	r := NewRecorder(Config{})
	r.Observe(simulator.Event{Outcome: simulator.Installed, Record: 1})
	r.Observe(simulator.Event{Outcome: simulator.Reused, Record: 1})
	r.Observe(simulator.Event{Outcome: simulator.Ignored})

	assert.Zero(t, r.Count())
	assert.Zero(t, r.Total())
}

func TestRecorder_Deduplicates(t *testing.T) {
	var out bytes.Buffer
	r := NewRecorder(Config{Output: &out})

	r.Observe(forkEvent(4, 9, "add_"))
	r.Observe(forkEvent(4, 10, "add_"))
	r.Observe(bumpEvent(9, "add_"))
	r.Observe(bumpEvent(9, "add_"))
	r.Observe(bumpEvent(9, "add_"))

	assert.Equal(t, 2, r.Count())
	assert.Equal(t, uint64(5), r.Total())

	reports := r.Reports()
	require.Len(t, reports, 2)
	assert.Equal(t, "forked:4:add_", reports[0].Key)
	assert.Equal(t, uint64(2), reports[0].Occurrences)
	assert.Equal(t, uint64(9), reports[0].Event.Record)
	assert.Equal(t, "bumped:9:add_", reports[1].Key)
	assert.Equal(t, uint64(3), reports[1].Occurrences)

	assert.Equal(t, 2, bytes.Count(out.Bytes(), []byte("WARNING: SIMULATED COPY-ON-WRITE")))
}

func TestRecorder_CapturesStacks(t *testing.T) {
	r := NewRecorder(Config{CaptureStacks: true})
	r.Observe(forkEvent(1, 2, "add_"))

	reports := r.Reports()
	require.Len(t, reports, 1)
	require.NotNil(t, reports[0].Stack)
	assert.NotEmpty(t, reports[0].Stack.Frames())
}

func TestRecorder_SampledStacks(t *testing.T) {
	r := NewRecorder(Config{CaptureStacks: true, SampleRate: 2})
	r.Observe(bumpEvent(1, "a"))
	r.Observe(bumpEvent(2, "a"))

	reports := r.Reports()
	require.Len(t, reports, 2)
	assert.Nil(t, reports[0].Stack)
	assert.NotNil(t, reports[1].Stack)
}

func TestRecorder_NoStacksByDefault(t *testing.T) {
	r := NewRecorder(Config{})
	r.Observe(bumpEvent(1, "a"))
	assert.Nil(t, r.Reports()[0].Stack)
}

func TestRecorder_Reset(t *testing.T) {
	r := NewRecorder(Config{})
	r.Observe(bumpEvent(1, "a"))
	r.Reset()

	assert.Zero(t, r.Count())
	assert.Zero(t, r.Total())
	assert.Empty(t, r.Reports())

	r.Observe(bumpEvent(1, "a"))
	assert.Equal(t, 1, r.Count())
}

func TestRecorder_Summary(t *testing.T) {
	r := NewRecorder(Config{})

	var clean bytes.Buffer
	r.Summary(&clean)
	assert.Contains(t, clean.String(), "No simulated copies.")

	r.Observe(bumpEvent(1, "a"))
	r.Observe(bumpEvent(1, "a"))
	r.Observe(forkEvent(1, 3, "b"))

	var dirty bytes.Buffer
	r.Summary(&dirty)
	assert.Contains(t, dirty.String(), "WARNING: 2 simulated copy site(s), 3 occurrence(s)")
}

func TestRecorder_ConcurrentObservers(t *testing.T) {
	r := NewRecorder(Config{})

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				r.Observe(bumpEvent(uint64(i%5), "op"))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, r.Count())
	assert.Equal(t, uint64(200), r.Total())
}
