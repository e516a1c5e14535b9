package storage

import (
	"errors"
	"fmt"

	"github.com/kolkov/cowsim/internal/cow/invariant"
	"github.com/kolkov/cowsim/internal/cow/simulator"
)

// ErrOutOfRange is returned when an access falls outside the buffer.
var ErrOutOfRange = errors.New("storage access out of range")

// ReadAt copies len(p) bytes starting at off into p through the instrumented
// access path. The simulator must have been given the access with Begin.
func (s Storage) ReadAt(sim *simulator.Simulator, p []byte, off int64) (int, error) {
	return s.access(sim, p, off, func(buf []byte) int {
		return copy(p, buf)
	})
}

// WriteAt copies p into the buffer starting at off through the instrumented
// access path. The simulator must have been given the access with Begin.
//
// The bytes land in the buffer shared with every lazy clone: the simulator
// records where a copy would have been needed, it never makes one.
func (s Storage) WriteAt(sim *simulator.Simulator, p []byte, off int64) (int, error) {
	return s.access(sim, p, off, func(buf []byte) int {
		return copy(buf, p)
	})
}

// access runs the instrumented sequence around one buffer operation:
// simulate, operate, maybe bump, release the shadow handle. A rejected access
// never reaches the simulator.
func (s Storage) access(sim *simulator.Simulator, p []byte, off int64, op func(buf []byte) int) (int, error) {
	invariant.Assert(s.impl != nil, "storage_impl != nil")
	s.impl.checkLive()

	n := int64(s.impl.Nbytes())
	if off < 0 || off > n || int64(len(p)) > n-off {
		return 0, fmt.Errorf("%w: offset %d length %d size %d", ErrOutOfRange, off, len(p), n)
	}

	rec := s.SimulateCopyOnWrite(sim)
	defer rec.Release()

	copied := op(s.impl.data[off : off+int64(len(p))])

	s.MaybeBumpCopyOnWriteGeneration(sim)
	return copied, nil
}
