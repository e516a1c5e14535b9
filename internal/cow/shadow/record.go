package shadow

import (
	"sync/atomic"

	"github.com/kolkov/cowsim/internal/cow/generation"
	"github.com/kolkov/cowsim/internal/cow/invariant"
)

// Storage is the interface shared by both shadow storage record variants.
type Storage interface {
	// Generation returns the current generation.
	Generation() uint64

	// BumpGeneration increments the generation and returns the new value.
	// Fails with an invariant violation at math.MaxUint64.
	BumpGeneration() uint64
}

var (
	_ Storage = (*Shared)(nil)
	_ Storage = (*Exclusive)(nil)
)

// nextRecordID hands out record identities. Zero is never assigned.
var nextRecordID atomic.Uint64

// Shared is the reference-counted shadow storage record.
//
// A new record starts with one owning reference held by its creator. Every
// Retain must be paired with a Release; when the count reaches zero the record
// is dead and any further use is an invariant violation.
//
// Besides owning references, a record counts the carriers it is attached to
// (Views). Owning references also include transient handles returned to
// callers, so Views is the number that answers "how many storage objects
// currently share this record".
//
// Methods on a nil *Shared are safe where noted and model the "empty"
// shared reference.
type Shared struct {
	id    uint64
	refs  atomic.Int64
	views atomic.Int64
	cell  *generation.AtomicCell
}

// NewShared creates a record at the given initial generation with one owning
// reference.
func NewShared(initial uint64) *Shared {
	s := &Shared{
		id:   nextRecordID.Add(1),
		cell: generation.NewAtomicCell(initial),
	}
	s.refs.Store(1)
	return s
}

// ID returns the process-unique identity of the record. Returns 0 for nil.
func (s *Shared) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Generation returns the current generation.
func (s *Shared) Generation() uint64 {
	s.checkLive()
	return s.cell.Read()
}

// BumpGeneration increments the generation by one and returns the new value.
//
// Safe for concurrent use. Fails with an invariant violation if the record was
// released or the generation is already math.MaxUint64.
func (s *Shared) BumpGeneration() uint64 {
	s.checkLive()
	return s.cell.Bump()
}

// Retain adds an owning reference and returns s for chaining.
//
// Retain on nil returns nil. Retaining a dead record is an invariant
// violation: a record cannot be resurrected.
func (s *Shared) Retain() *Shared {
	if s == nil {
		return nil
	}
	for {
		n := s.refs.Load()
		invariant.Assertf(n > 0, "refs > 0", "retain of released shadow storage %d", s.id)
		if s.refs.CompareAndSwap(n, n+1) {
			return s
		}
	}
}

// Release drops an owning reference. Release on nil is a no-op.
func (s *Shared) Release() {
	if s == nil {
		return
	}
	n := s.refs.Add(-1)
	invariant.Assertf(n >= 0, "refs >= 0", "over-release of shadow storage %d", s.id)
}

// UseCount returns the number of owning references. Returns 0 for nil.
func (s *Shared) UseCount() int64 {
	if s == nil {
		return 0
	}
	return s.refs.Load()
}

// Views returns the number of carriers the record is attached to.
// Returns 0 for nil.
func (s *Shared) Views() int64 {
	if s == nil {
		return 0
	}
	return s.views.Load()
}

func (s *Shared) attach() {
	if s != nil {
		s.views.Add(1)
	}
}

func (s *Shared) detach() {
	if s != nil {
		n := s.views.Add(-1)
		invariant.Assertf(n >= 0, "views >= 0", "shadow storage %d detached twice", s.id)
	}
}

func (s *Shared) checkLive() {
	invariant.Assert(s != nil, "shadow storage != nil")
	invariant.Assertf(s.refs.Load() > 0, "refs > 0", "use of released shadow storage %d", s.id)
}

// Exclusive is the single-owner shadow storage record.
//
// It lives and dies with its container. The zero value is a record at
// generation 0.
//
// Thread Safety: NOT safe for concurrent BumpGeneration calls.
type Exclusive struct {
	cell generation.Cell
}

// NewExclusive creates an exclusive record at the given initial generation.
func NewExclusive(initial uint64) Exclusive {
	return Exclusive{cell: generation.NewCell(initial)}
}

// Generation returns the current generation.
func (e *Exclusive) Generation() uint64 {
	return e.cell.Read()
}

// BumpGeneration increments the generation by one and returns the new value.
func (e *Exclusive) BumpGeneration() uint64 {
	return e.cell.Bump()
}
