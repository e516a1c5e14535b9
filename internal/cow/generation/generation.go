// Copyright 2025 The cowsim Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package generation implements the 64-bit generation counter cell that backs
// every shadow storage record.
//
// A generation counts how many divergent accesses a shadow-tracked view of a
// storage buffer has observed. It starts at an initial value (usually 0) when
// the buffer first acquires shadow tracking and only ever moves forward, one
// step per divergent access.
//
// Two renditions are provided:
//   - Cell: a plain uint64. No concurrency control; the owner serializes
//     bumps. Used by the exclusive (value) shadow record.
//   - AtomicCell: compare-and-swap increment with the same overflow check.
//     Used by the shared shadow record, which several storage objects may
//     bump from different goroutines.
//
// Reaching math.MaxUint64 would take one divergent access per nanosecond for
// more than five centuries, so a bump at the maximum is a logic error and
// fails through the invariant package instead of wrapping around.
package generation

import (
	"math"
	"sync/atomic"

	"github.com/kolkov/cowsim/internal/cow/invariant"
)

// Max is the largest representable generation. Bumping a cell that already
// holds Max is a fatal invariant violation.
const Max uint64 = math.MaxUint64

// overflowCheck is the invariant reported when a bump would wrap around.
const overflowCheck = "generation != math.MaxUint64"

// Cell is a monotonically increasing generation counter.
//
// The zero Cell holds generation 0 and is ready to use.
//
// Thread Safety: NOT safe for concurrent Bump calls. Use AtomicCell when
// several goroutines may bump the same counter.
type Cell struct {
	generation uint64
}

// NewCell creates a cell holding the given initial generation.
func NewCell(initial uint64) Cell {
	return Cell{generation: initial}
}

// Read returns the current generation. It has no side effects.
//
//go:nosplit
func (c *Cell) Read() uint64 {
	return c.generation
}

// Bump increments the generation by one and returns the new value.
//
// Fails with an invariant violation if the cell already holds Max.
func (c *Cell) Bump() uint64 {
	invariant.Assert(c.generation != Max, overflowCheck)
	c.generation++
	return c.generation
}

// AtomicCell is a generation counter that is safe for concurrent use.
//
// Bump uses a compare-and-swap loop so that the overflow check and the
// increment happen as one step: two racing bumps never both observe the
// same predecessor, and no bump can wrap past Max.
//
// AtomicCell must not be copied after first use.
type AtomicCell struct {
	generation atomic.Uint64
}

// NewAtomicCell allocates a cell holding the given initial generation.
func NewAtomicCell(initial uint64) *AtomicCell {
	c := &AtomicCell{}
	c.generation.Store(initial)
	return c
}

// Read returns the current generation.
//
//go:nosplit
func (c *AtomicCell) Read() uint64 {
	return c.generation.Load()
}

// Bump atomically increments the generation by one and returns the new value.
//
// Fails with an invariant violation if the cell already holds Max.
func (c *AtomicCell) Bump() uint64 {
	for {
		current := c.generation.Load()
		invariant.Assert(current != Max, overflowCheck)
		if c.generation.CompareAndSwap(current, current+1) {
			return current + 1
		}
	}
}
