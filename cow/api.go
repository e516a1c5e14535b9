package cow

import (
	"log/slog"

	"github.com/kolkov/cowsim/internal/cow/report"
	"github.com/kolkov/cowsim/internal/cow/shadow"
	"github.com/kolkov/cowsim/internal/cow/simulator"
	"github.com/kolkov/cowsim/internal/storage"
)

type (
	// Storage is a handle to a reference-counted storage object.
	Storage = storage.Storage

	// ShadowStorage is the shared shadow storage record of a storage object.
	ShadowStorage = shadow.Shared

	// Simulator is the stateful copy-on-write detector for one session.
	Simulator = simulator.Simulator

	// Option configures a Simulator.
	Option = simulator.Option

	// Access describes one storage access.
	Access = simulator.Access

	// AccessKind is Read or Write.
	AccessKind = simulator.AccessKind

	// Policy decides whether an access is divergent.
	Policy = simulator.Policy

	// PolicyFunc adapts a function to Policy.
	PolicyFunc = simulator.PolicyFunc

	// Event is emitted to observers after every simulator operation.
	Event = simulator.Event

	// Outcome classifies a simulator event.
	Outcome = simulator.Outcome

	// Observer receives simulator events.
	Observer = simulator.Observer

	// Recorder collects divergence reports.
	Recorder = report.Recorder

	// ReportConfig configures a Recorder.
	ReportConfig = report.Config
)

// Access kinds.
const (
	Read  = simulator.Read
	Write = simulator.Write
)

// Event outcomes.
const (
	Installed = simulator.Installed
	Reused    = simulator.Reused
	Forked    = simulator.Forked
	Bumped    = simulator.Bumped
	Ignored   = simulator.Ignored
)

// Enabled reports whether shadow tracking is compiled in (cowinstrument
// build tag).
const Enabled = shadow.Enabled

// ErrOutOfRange is returned by ReadAt and WriteAt for accesses outside the
// buffer.
var ErrOutOfRange = storage.ErrOutOfRange

// NewStorage allocates a storage object of nbytes with no shadow record.
func NewStorage(nbytes int) Storage {
	return storage.New(nbytes)
}

// NewSimulator creates a simulator. A nil policy selects SharedWrites.
func NewSimulator(policy Policy, opts ...Option) *Simulator {
	return simulator.New(policy, opts...)
}

// WithObserver registers an observer that receives every simulator event.
func WithObserver(o Observer) Option {
	return simulator.WithObserver(o)
}

// WithLogger enables debug-level tracing of simulator state transitions.
func WithLogger(l *slog.Logger) Option {
	return simulator.WithLogger(l)
}

// SharedWrites returns the default policy: a write through a record shared by
// more than one storage object is divergent.
func SharedWrites() Policy {
	return simulator.SharedWrites()
}

// Fixed returns a policy that gives the same verdict for every access.
func Fixed(divergent bool) Policy {
	return simulator.Fixed(divergent)
}

// ParsePolicy resolves a policy by name: "shared-writes", "always" or "never".
func ParsePolicy(name string) (Policy, error) {
	return simulator.ParsePolicy(name)
}

// NewRecorder creates a divergence report recorder. Register it with
// WithObserver.
//
// Example:
//
//	rec := cow.NewRecorder(cow.ReportConfig{Output: os.Stderr, CaptureStacks: true})
//	sim := cow.NewSimulator(nil, cow.WithObserver(rec))
//	...
//	rec.Summary(os.Stderr)
func NewRecorder(cfg ReportConfig) *Recorder {
	return report.NewRecorder(cfg)
}
