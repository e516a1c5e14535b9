// Package storage implements the reference-counted storage object that the
// copy-on-write simulator instruments.
//
// StorageImpl owns a byte buffer, an intrusive atomic reference count, and a
// shadow.Carrier. Storage is the value handle callers pass around; its zero
// value is the null handle. The two copy-on-write operations on Storage
// assert that the handle is valid and forward to the implementation, which
// hands its carrier to the simulator.
//
// Data flow for one instrumented access:
//
//	Storage.SimulateCopyOnWrite(sim)
//	  -> StorageImpl.SimulateCopyOnWrite(sim)
//	    -> sim.Simulate(&impl.carrier)
//
// The buffer itself is never copied: LazyClone produces a second storage over
// the same bytes that shares the first one's shadow record, which is exactly
// the situation where a real copy-on-write system would defer a copy.
package storage

import (
	"sync/atomic"

	"github.com/kolkov/cowsim/internal/cow/invariant"
	"github.com/kolkov/cowsim/internal/cow/shadow"
	"github.com/kolkov/cowsim/internal/cow/simulator"
)

// StorageImpl is the shared, reference-counted storage object.
//
// It starts with one reference. The last Release drops the carrier's shadow
// record and the buffer; any later use is an invariant violation.
type StorageImpl struct {
	refs    atomic.Int64
	data    []byte
	carrier shadow.Carrier
}

// NewStorageImpl allocates an nbytes buffer. It takes over the caller's owning
// reference to shadowStorage, which may be nil.
func NewStorageImpl(nbytes int, shadowStorage *shadow.Shared) *StorageImpl {
	invariant.Assertf(nbytes >= 0, "nbytes >= 0", "got %d", nbytes)
	return newStorageImpl(make([]byte, nbytes), shadowStorage)
}

func newStorageImpl(data []byte, shadowStorage *shadow.Shared) *StorageImpl {
	impl := &StorageImpl{
		data:    data,
		carrier: shadow.NewCarrier(shadowStorage),
	}
	impl.refs.Store(1)
	return impl
}

// Retain adds a reference and returns impl.
func (impl *StorageImpl) Retain() *StorageImpl {
	n := impl.refs.Add(1)
	invariant.Assert(n > 1, "storage refs > 0")
	return impl
}

// Release drops a reference. The last release tears the storage down.
func (impl *StorageImpl) Release() {
	n := impl.refs.Add(-1)
	invariant.Assert(n >= 0, "storage refs >= 0")
	if n == 0 {
		impl.carrier.Drop()
		impl.data = nil
	}
}

// UseCount returns the number of references.
func (impl *StorageImpl) UseCount() int64 {
	return impl.refs.Load()
}

// Nbytes returns the buffer size.
func (impl *StorageImpl) Nbytes() int {
	return len(impl.data)
}

// ShadowStorage returns the installed shadow record without retaining it.
func (impl *StorageImpl) ShadowStorage() *shadow.Shared {
	return impl.carrier.ShadowStorage()
}

// ShadowStorageRef returns an owning reference to the installed shadow record.
func (impl *StorageImpl) ShadowStorageRef() *shadow.Shared {
	return impl.carrier.ShadowStorageRef()
}

// SimulateCopyOnWrite hands the carrier to the simulator. See
// simulator.Simulator.Simulate.
func (impl *StorageImpl) SimulateCopyOnWrite(sim *simulator.Simulator) *shadow.Shared {
	impl.checkLive()
	return sim.Simulate(&impl.carrier)
}

// MaybeBumpCopyOnWriteGeneration hands the carrier to the simulator. See
// simulator.Simulator.MaybeBump.
func (impl *StorageImpl) MaybeBumpCopyOnWriteGeneration(sim *simulator.Simulator) {
	impl.checkLive()
	sim.MaybeBump(&impl.carrier)
}

func (impl *StorageImpl) checkLive() {
	invariant.Assert(impl.refs.Load() > 0, "storage refs > 0")
}

// Storage is a handle to a StorageImpl. The zero value is the null handle.
//
// Copying a Storage does not add a reference; use Share for that.
type Storage struct {
	impl *StorageImpl
}

// New allocates a storage of nbytes with no shadow record.
func New(nbytes int) Storage {
	return Storage{impl: NewStorageImpl(nbytes, nil)}
}

// Wrap returns a handle to impl, taking over one of its references.
func Wrap(impl *StorageImpl) Storage {
	return Storage{impl: impl}
}

// Defined reports whether the handle is non-null.
func (s Storage) Defined() bool {
	return s.impl != nil
}

// Impl returns the underlying implementation (nil for the null handle).
func (s Storage) Impl() *StorageImpl {
	return s.impl
}

// SimulateCopyOnWrite returns the shadow record representing this storage
// after the simulator's current access. The caller must Release the result.
//
// Fails with an invariant violation on the null handle.
func (s Storage) SimulateCopyOnWrite(sim *simulator.Simulator) *shadow.Shared {
	invariant.Assert(s.impl != nil, "storage_impl != nil")
	return s.impl.SimulateCopyOnWrite(sim)
}

// MaybeBumpCopyOnWriteGeneration bumps this storage's shadow generation if the
// simulator judges the current access divergent.
//
// Fails with an invariant violation on the null handle.
func (s Storage) MaybeBumpCopyOnWriteGeneration(sim *simulator.Simulator) {
	invariant.Assert(s.impl != nil, "storage_impl != nil")
	s.impl.MaybeBumpCopyOnWriteGeneration(sim)
}

// Share returns a second handle to the same storage object, adding a
// reference. Both handles see the same carrier.
func (s Storage) Share() Storage {
	invariant.Assert(s.impl != nil, "storage_impl != nil")
	return Storage{impl: s.impl.Retain()}
}

// LazyClone returns a new storage object over the same bytes whose shadow
// record is shared with s.
//
// When instrumentation is compiled in and s has no record yet, s acquires a
// fresh one at generation 0 first, so that both storages start out as the
// same logical view.
func (s Storage) LazyClone() Storage {
	invariant.Assert(s.impl != nil, "storage_impl != nil")
	s.impl.checkLive()

	if shadow.Enabled && s.impl.carrier.ShadowStorage() == nil {
		s.impl.carrier.Install(shadow.NewShared(0)).Release()
	}
	return Storage{impl: newStorageImpl(s.impl.data, s.impl.carrier.ShadowStorageRef())}
}

// Release drops this handle's reference. Release of the null handle is a
// no-op.
func (s Storage) Release() {
	if s.impl != nil {
		s.impl.Release()
	}
}

// UseCount returns the number of references to the storage object, or 0 for
// the null handle.
func (s Storage) UseCount() int64 {
	if s.impl == nil {
		return 0
	}
	return s.impl.UseCount()
}

// Nbytes returns the buffer size, or 0 for the null handle.
func (s Storage) Nbytes() int {
	if s.impl == nil {
		return 0
	}
	return s.impl.Nbytes()
}
