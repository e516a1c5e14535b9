//go:build cowinstrument

package trace

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/cowsim/internal/cow/report"
	"github.com/kolkov/cowsim/internal/cow/simulator"
	"github.com/kolkov/cowsim/internal/storage"
)

func loadFixture(t *testing.T, name string) *Trace {
	t.Helper()
	tr, err := Load(filepath.Join("testdata", "traces", name+".yaml"))
	require.NoError(t, err)
	return tr
}

// TestReplay_Golden compares replay results against testdata/golden.
//
// To regenerate golden files, run:
//
//	go test -tags cowinstrument ./internal/trace -update
func TestReplay_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, name := range []string{"clone-write", "always-bump", "judged-release"} {
		t.Run(name, func(t *testing.T) {
			res, err := Replay(loadFixture(t, name), Options{})
			require.NoError(t, err)
			require.True(t, res.Passed(), "unexpected failures: %v", res.Err())

			data, err := res.JSON()
			require.NoError(t, err)
			g.Assert(t, name, data)
		})
	}
}

func TestReplay_PolicyOverride(t *testing.T) {
	res, err := Replay(loadFixture(t, "clone-write"), Options{Policy: "never"})
	require.NoError(t, err)

	assert.Equal(t, "never", res.Policy)
	assert.Zero(t, res.Stats.Forks)
	assert.Zero(t, res.Stats.Bumps)

	require.Len(t, res.Final, 2)
	assert.Equal(t, "r1", res.Final[0].Record)
	assert.Equal(t, "r1", res.Final[1].Record)
	assert.Equal(t, int64(2), res.Final[0].Views)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, ExpectationError{Storage: "b", Field: "generation", Want: "1", Got: "0"}, *res.Failures[0])
}

func TestReplay_BadPolicyOverride(t *testing.T) {
	_, err := Replay(loadFixture(t, "clone-write"), Options{Policy: "sometimes"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown policy")
}

func TestReplay_SharesWithAndAbsent(t *testing.T) {
	tr, err := Parse([]byte(`
version: v1
name: shares
storages:
  - {name: a, size: 2}
  - {name: c, size: 2}
steps:
  - {kind: clone, storage: a, as: b}
  - {kind: read, storage: b, op: get}
expect:
  - {storage: b, shares_with: a}
  - {storage: c, absent: true}
  - {storage: a, absent: true}
  - {storage: c, shares_with: a}
`))
	require.NoError(t, err)

	res, err := Replay(tr, Options{})
	require.NoError(t, err)

	require.Len(t, res.Failures, 2)
	assert.Equal(t, "a", res.Failures[0].Storage)
	assert.Equal(t, "record", res.Failures[0].Field)
	assert.Equal(t, "r1", res.Failures[0].Got)
	assert.Equal(t, "c", res.Failures[1].Storage)
	assert.Equal(t, "shares_with", res.Failures[1].Field)
	assert.Equal(t, "none", res.Failures[1].Got)
}

func TestReplay_OutOfRange(t *testing.T) {
	tr, err := Parse([]byte(`
version: v1
name: oob
storages: [{name: a, size: 2}]
steps:
  - {kind: write, storage: a, op: set_, data: xyz}
`))
	require.NoError(t, err)

	_, err = Replay(tr, Options{})
	require.ErrorIs(t, err, storage.ErrOutOfRange)
	assert.Contains(t, err.Error(), "steps[0] (write a)")
}

func TestReplay_Observers(t *testing.T) {
	var outcomes []simulator.Outcome
	rec := report.NewRecorder(report.Config{})

	res, err := Replay(loadFixture(t, "clone-write"), Options{
		Observers: []simulator.Observer{
			simulator.ObserverFunc(func(e simulator.Event) { outcomes = append(outcomes, e.Outcome) }),
			rec,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []simulator.Outcome{simulator.Installed, simulator.Forked, simulator.Bumped, simulator.Reused}, outcomes)
	assert.Len(t, res.SimEvents, 4)
	assert.Equal(t, 2, rec.Count())
}

func TestReplay_RecordsAreReplayLocal(t *testing.T) {
	first, err := Replay(loadFixture(t, "always-bump"), Options{})
	require.NoError(t, err)
	second, err := Replay(loadFixture(t, "always-bump"), Options{})
	require.NoError(t, err)

	assert.Equal(t, first.Events, second.Events)
	assert.NotEqual(t, first.SimEvents[0].Record, second.SimEvents[0].Record)
}

func TestResult_WriteText(t *testing.T) {
	res, err := Replay(loadFixture(t, "clone-write"), Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, res.WriteText(&buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "trace clone-write (policy shared-writes)\n"))
	assert.Contains(t, out, "  #2 write add_ on b: forked r2 from r1, generation 0, 1 view(s)\n")
	assert.Contains(t, out, "  b: r2 generation 1, 1 view(s)\n")
	assert.True(t, strings.HasSuffix(out, "PASS\n"))
}

func TestResult_WriteTextFailures(t *testing.T) {
	res, err := Replay(loadFixture(t, "clone-write"), Options{Policy: "never"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, res.WriteText(&buf))
	assert.Contains(t, buf.String(), `FAIL: storage "b": generation: want 1, got 0`)
}
