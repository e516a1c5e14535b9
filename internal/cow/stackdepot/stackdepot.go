// Copyright 2025 The cowsim Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stackdepot stores the access-site stacks attached to copy-on-write
// divergence reports.
//
// A Depot deduplicates stacks by a 64-bit FNV-1a hash of their program
// counters, so a report only has to carry the hash and identical access sites
// are stored once. Stacks are truncated to MaxFrames frames: the operator that
// performed the access and its immediate callers are what a reader needs.
//
// Usage:
//
//	d := stackdepot.New()
//	hash := d.Capture(1) // skip Capture's caller
//	...
//	fmt.Print(d.Lookup(hash).Format())
package stackdepot

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"runtime"
	"strings"
	"sync"
)

// MaxFrames is the maximum number of frames kept per stack.
const MaxFrames = 8

// Stack is a captured, fixed-size call stack.
type Stack struct {
	PC [MaxFrames]uintptr
	n  int
}

// Depot is a deduplicating stack store.
//
// Thread Safety: safe for concurrent use.
type Depot struct {
	stacks sync.Map // uint64 hash -> *Stack
}

// New creates an empty depot.
func New() *Depot {
	return &Depot{}
}

// Capture records the calling goroutine's stack and returns its hash.
//
// skip is the number of frames to omit above Capture's caller: 0 starts the
// stack at the function that called Capture.
//
// Returns 0 if no frames were available.
func (d *Depot) Capture(skip int) uint64 {
	var st Stack
	// +2 skips runtime.Callers and Capture itself.
	st.n = runtime.Callers(skip+2, st.PC[:])
	if st.n == 0 {
		return 0
	}

	hash := hashPCs(st.PC[:st.n])
	if hash == 0 {
		hash = 1
	}
	if _, ok := d.stacks.Load(hash); !ok {
		d.stacks.LoadOrStore(hash, &st)
	}
	return hash
}

// Lookup returns the stack stored under hash, or nil.
func (d *Depot) Lookup(hash uint64) *Stack {
	if hash == 0 {
		return nil
	}
	v, ok := d.stacks.Load(hash)
	if !ok {
		return nil
	}
	return v.(*Stack)
}

// Len returns the number of unique stacks stored. O(N).
func (d *Depot) Len() int {
	n := 0
	d.stacks.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Frames returns the program counters of the stack.
func (st *Stack) Frames() []uintptr {
	if st == nil {
		return nil
	}
	return st.PC[:st.n]
}

// Format renders the stack one frame per two lines:
//
//	  pkg.function()
//	      /path/to/file.go:42
//
// Runtime frames are omitted. A nil or empty stack renders as
// "  <unknown>\n".
func (st *Stack) Format() string {
	if st == nil || st.n == 0 {
		return "  <unknown>\n"
	}

	var buf strings.Builder
	frames := runtime.CallersFrames(st.PC[:st.n])
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") && frame.Function != "" {
			fmt.Fprintf(&buf, "  %s()\n", frame.Function)
			fmt.Fprintf(&buf, "      %s:%d\n", frame.File, frame.Line)
		}
		if !more {
			break
		}
	}

	if buf.Len() == 0 {
		return "  <runtime internal>\n"
	}
	return buf.String()
}

func hashPCs(pcs []uintptr) uint64 {
	h := fnv.New64a()
	var b [8]byte
	for _, pc := range pcs {
		binary.LittleEndian.PutUint64(b[:], uint64(pc))
		_, _ = h.Write(b[:])
	}
	return h.Sum64()
}
