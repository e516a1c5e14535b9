package simulator

import "fmt"

// AccessKind is the kind of storage access under analysis.
type AccessKind uint8

const (
	// Read indicates a read access.
	Read AccessKind = iota
	// Write indicates a write access.
	Write
)

// String returns the lower-case name of the access kind.
func (k AccessKind) String() string {
	switch k {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "unknown"
	}
}

// ParseAccessKind parses "read" or "write".
func ParseAccessKind(s string) (AccessKind, error) {
	switch s {
	case "read":
		return Read, nil
	case "write":
		return Write, nil
	default:
		return 0, fmt.Errorf("unknown access kind %q", s)
	}
}

// Access describes one storage access as seen by the caller.
type Access struct {
	// Kind is Read or Write.
	Kind AccessKind

	// Op names the operator that performed the access (for reports).
	Op string

	// View identifies the logical view (tensor, slice, handle) that performed
	// the access. Zero means unknown.
	View uint64
}

// Policy decides whether an access is divergent.
//
// views is the number of storage objects the access's shadow record is
// currently attached to (at least 1).
type Policy interface {
	Divergent(a Access, views int64) bool
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(a Access, views int64) bool

// Divergent calls f.
func (f PolicyFunc) Divergent(a Access, views int64) bool {
	return f(a, views)
}

// SharedWrites returns the policy that judges an access divergent when it is a
// write observed through a record shared by more than one storage object.
func SharedWrites() Policy {
	return PolicyFunc(func(a Access, views int64) bool {
		return a.Kind == Write && views > 1
	})
}

// Fixed returns a policy that always answers divergent.
func Fixed(divergent bool) Policy {
	return PolicyFunc(func(Access, int64) bool {
		return divergent
	})
}

// ParsePolicy resolves a policy by name: "shared-writes", "always" or "never".
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "", "shared-writes":
		return SharedWrites(), nil
	case "always":
		return Fixed(true), nil
	case "never":
		return Fixed(false), nil
	default:
		return nil, fmt.Errorf("unknown policy %q: must be one of shared-writes, always, never", name)
	}
}
