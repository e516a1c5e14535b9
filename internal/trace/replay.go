package trace

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/kolkov/cowsim/internal/cow/simulator"
	"github.com/kolkov/cowsim/internal/storage"
)

// Options configures Replay.
type Options struct {
	// Policy overrides the trace's policy when non-empty.
	Policy string

	// Observers receive every simulator event in addition to the result.
	Observers []simulator.Observer

	// Logger receives debug-level simulator tracing. Nil disables it.
	Logger *slog.Logger
}

// Result is the outcome of one replay.
type Result struct {
	Name   string `json:"name"`
	Policy string `json:"policy"`

	// Events are the simulator events in order, with record identities
	// replaced by per-replay labels (r1, r2, ...).
	Events []EventRecord `json:"events"`

	// Final is the shadow state of every storage after the last step, in
	// creation order.
	Final []StorageState `json:"final"`

	Stats simulator.Stats `json:"stats"`

	// Failures lists the expectations the final state did not meet.
	Failures []*ExpectationError `json:"failures,omitempty"`

	// SimEvents are the raw simulator events, for persistence.
	SimEvents []simulator.Event `json:"-"`
}

// EventRecord is a simulator event in replay terms.
type EventRecord struct {
	Seq        uint64 `json:"seq"`
	Storage    string `json:"storage"`
	Kind       string `json:"kind"`
	Op         string `json:"op"`
	Outcome    string `json:"outcome"`
	Record     string `json:"record,omitempty"`
	Parent     string `json:"parent,omitempty"`
	Generation uint64 `json:"generation"`
	Views      int64  `json:"views"`
	Stale      bool   `json:"stale,omitempty"`
}

// StorageState is the final shadow state of one storage.
type StorageState struct {
	Name       string `json:"name"`
	Record     string `json:"record,omitempty"`
	Generation uint64 `json:"generation"`
	Views      int64  `json:"views"`
	Released   bool   `json:"released,omitempty"`
}

// ExpectationError reports one expectation the final state did not meet.
type ExpectationError struct {
	Storage string `json:"storage"`
	Field   string `json:"field"`
	Want    string `json:"want"`
	Got     string `json:"got"`
}

func (e *ExpectationError) Error() string {
	return fmt.Sprintf("storage %q: %s: want %s, got %s", e.Storage, e.Field, e.Want, e.Got)
}

// Err joins the expectation failures, or returns nil if there are none.
func (r *Result) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Passed reports whether every expectation was met.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// replayer holds the state of one replay.
type replayer struct {
	trace *Trace
	sim   *simulator.Simulator

	order    []string
	storages map[string]storage.Storage
	views    map[string]uint64
	names    map[uint64]string
	released map[string]bool

	labels map[uint64]string
	result *Result
}

// Replay runs t against a fresh simulator. The returned error reports
// failures to run the trace (a bad policy override, an out-of-range access);
// unmet expectations are reported in Result.Failures.
func Replay(t *Trace, opts Options) (*Result, error) {
	policyName := t.PolicyName()
	if opts.Policy != "" {
		policyName = opts.Policy
	}
	policy, err := simulator.ParsePolicy(policyName)
	if err != nil {
		return nil, err
	}

	r := &replayer{
		trace:    t,
		storages: make(map[string]storage.Storage),
		views:    make(map[string]uint64),
		names:    make(map[uint64]string),
		released: make(map[string]bool),
		labels:   make(map[uint64]string),
		result: &Result{
			Name:   t.Name,
			Policy: policyName,
			Events: []EventRecord{},
		},
	}

	simOpts := []simulator.Option{simulator.WithObserver(simulator.ObserverFunc(r.record))}
	for _, o := range opts.Observers {
		simOpts = append(simOpts, simulator.WithObserver(o))
	}
	if opts.Logger != nil {
		simOpts = append(simOpts, simulator.WithLogger(opts.Logger.With("trace", t.Name)))
	}
	r.sim = simulator.New(policy, simOpts...)

	defer r.releaseAll()

	for _, decl := range t.Storages {
		r.add(decl.Name, storage.New(decl.Size))
	}
	for i, step := range t.Steps {
		if err := r.step(step); err != nil {
			return nil, fmt.Errorf("steps[%d] (%s %s): %w", i, step.Kind, step.Storage, err)
		}
	}

	r.result.Stats = r.sim.Stats()
	r.result.Final = r.finalState()
	r.result.Failures = r.check()
	return r.result, nil
}

func (r *replayer) add(name string, s storage.Storage) {
	r.order = append(r.order, name)
	r.storages[name] = s
	view := uint64(len(r.order))
	r.views[name] = view
	r.names[view] = name
}

func (r *replayer) step(step Step) error {
	s, ok := r.storages[step.Storage]
	if !ok {
		return fmt.Errorf("unknown storage %q", step.Storage)
	}

	switch step.Kind {
	case StepRead:
		r.begin(simulator.Read, step)
		length := step.Length
		if length == 0 {
			length = 1
		}
		_, err := s.ReadAt(r.sim, make([]byte, length), step.Offset)
		return err
	case StepWrite:
		r.begin(simulator.Write, step)
		_, err := s.WriteAt(r.sim, []byte(step.Data), step.Offset)
		return err
	case StepClone:
		r.add(step.As, s.LazyClone())
		return nil
	case StepRelease:
		s.Release()
		delete(r.storages, step.Storage)
		r.released[step.Storage] = true
		return nil
	default:
		return fmt.Errorf("unknown kind %q", step.Kind)
	}
}

func (r *replayer) begin(kind simulator.AccessKind, step Step) {
	a := simulator.Access{Kind: kind, Op: step.Op, View: r.views[step.Storage]}
	if step.Divergent != nil {
		r.sim.BeginJudged(a, *step.Divergent)
		return
	}
	r.sim.Begin(a)
}

func (r *replayer) record(e simulator.Event) {
	r.result.SimEvents = append(r.result.SimEvents, e)
	r.result.Events = append(r.result.Events, EventRecord{
		Seq:        e.Seq,
		Storage:    r.names[e.Access.View],
		Kind:       e.Access.Kind.String(),
		Op:         e.Access.Op,
		Outcome:    e.Outcome.String(),
		Record:     r.label(e.Record),
		Parent:     r.label(e.Parent),
		Generation: e.Generation,
		Views:      e.Views,
		Stale:      e.Stale,
	})
}

// label maps a process-wide record identity to a replay-local one, so that
// results do not depend on what else ran in the process.
func (r *replayer) label(id uint64) string {
	if id == 0 {
		return ""
	}
	if l, ok := r.labels[id]; ok {
		return l
	}
	l := "r" + strconv.Itoa(len(r.labels)+1)
	r.labels[id] = l
	return l
}

func (r *replayer) finalState() []StorageState {
	final := make([]StorageState, 0, len(r.order))
	for _, name := range r.order {
		if r.released[name] {
			final = append(final, StorageState{Name: name, Released: true})
			continue
		}
		st := StorageState{Name: name}
		if rec := r.storages[name].Impl().ShadowStorage(); rec != nil {
			st.Record = r.label(rec.ID())
			st.Generation = rec.Generation()
			st.Views = rec.Views()
		}
		final = append(final, st)
	}
	return final
}

func (r *replayer) check() []*ExpectationError {
	states := make(map[string]StorageState, len(r.result.Final))
	for _, st := range r.result.Final {
		states[st.Name] = st
	}

	var failures []*ExpectationError
	for _, e := range r.trace.Expect {
		st := states[e.Storage]
		if e.Absent && st.Record != "" {
			failures = append(failures, &ExpectationError{
				Storage: e.Storage, Field: "record", Want: "none", Got: st.Record,
			})
		}
		if e.Generation != nil {
			got := "none"
			if st.Record != "" {
				got = strconv.FormatUint(st.Generation, 10)
			}
			if want := strconv.FormatUint(*e.Generation, 10); got != want {
				failures = append(failures, &ExpectationError{
					Storage: e.Storage, Field: "generation", Want: want, Got: got,
				})
			}
		}
		if e.SharesWith != "" {
			other := states[e.SharesWith]
			if st.Record == "" || st.Record != other.Record {
				failures = append(failures, &ExpectationError{
					Storage: e.Storage,
					Field:   "shares_with",
					Want:    fmt.Sprintf("record of %q (%s)", e.SharesWith, orNone(other.Record)),
					Got:     orNone(st.Record),
				})
			}
		}
	}
	return failures
}

func (r *replayer) releaseAll() {
	for _, name := range r.order {
		if s, ok := r.storages[name]; ok {
			s.Release()
			delete(r.storages, name)
		}
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
