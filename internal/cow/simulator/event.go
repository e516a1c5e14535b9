package simulator

import "fmt"

// Outcome classifies what a simulator operation did to the shadow state.
type Outcome uint8

const (
	// Installed means a fresh record at generation 0 was installed.
	Installed Outcome = iota + 1
	// Reused means the existing record was returned unchanged.
	Reused
	// Forked means a divergent access on a shared record installed a
	// private copy of the record in the accessing storage.
	Forked
	// Bumped means the record's generation was incremented.
	Bumped
	// Ignored means MaybeBump found no record to bump.
	Ignored
)

// String returns the lower-case name of the outcome.
func (o Outcome) String() string {
	switch o {
	case Installed:
		return "installed"
	case Reused:
		return "reused"
	case Forked:
		return "forked"
	case Bumped:
		return "bumped"
	case Ignored:
		return "ignored"
	default:
		return "unknown"
	}
}

// ParseOutcome parses the lower-case name of an outcome.
func ParseOutcome(s string) (Outcome, error) {
	for o := Installed; o <= Ignored; o++ {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}

// Divergent reports whether the outcome marks a point where a real
// copy-on-write system would have copied.
func (o Outcome) Divergent() bool {
	return o == Forked || o == Bumped
}

// Event is emitted to observers after every simulator operation.
type Event struct {
	// Seq is the 1-based position of the event within its session.
	Seq uint64

	// Access is the access being analyzed when the event occurred.
	Access Access

	// Outcome is what the operation did.
	Outcome Outcome

	// Record is the identity of the record installed in the storage after
	// the operation (0 when none).
	Record uint64

	// Parent is the identity of the record a fork was taken from
	// (0 unless Outcome is Forked).
	Parent uint64

	// Generation is the record's generation after the operation.
	Generation uint64

	// Views is the number of storage objects sharing Record after the
	// operation.
	Views int64

	// Stale is set when the session had observed this record before at an
	// older generation: another owner advanced it in the meantime.
	Stale bool
}

// Observer receives simulator events.
type Observer interface {
	Observe(e Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(e Event)

// Observe calls f.
func (f ObserverFunc) Observe(e Event) {
	f(e)
}

// Stats counts simulator operations for one session.
type Stats struct {
	Accesses  uint64 `json:"accesses"`  // Begin calls.
	Installs  uint64 `json:"installs"`  // Fresh records installed.
	Reuses    uint64 `json:"reuses"`    // Existing records returned unchanged.
	Forks     uint64 `json:"forks"`     // Private records forked from shared ones.
	Bumps     uint64 `json:"bumps"`     // Generation increments.
	Ignored   uint64 `json:"ignored"`   // MaybeBump calls without a record.
	Divergent uint64 `json:"divergent"` // Accesses judged divergent by the policy.
}
