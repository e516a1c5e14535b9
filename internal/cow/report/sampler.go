// Copyright 2025 The cowsim Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import "sync/atomic"

// Sampler selects which divergence reports get an access-site stack.
//
// Capturing a stack costs far more than the simulation itself, so busy
// workloads can ask for one stack in every Rate reports. Selection uses an
// atomic position counter with modulo selection: no RNG, deterministic within
// one run, safe for concurrent use.
//
// Rate 0 or 1 selects every report.
type Sampler struct {
	rate uint64
	pos  atomic.Uint64

	sampled atomic.Uint64
	skipped atomic.Uint64
}

// SamplerStats counts sampling decisions.
type SamplerStats struct {
	Sampled uint64
	Skipped uint64
}

// NewSampler creates a sampler selecting one in rate decisions.
func NewSampler(rate uint64) *Sampler {
	if rate == 0 {
		rate = 1
	}
	return &Sampler{rate: rate}
}

// ShouldSample reports whether the current decision is selected.
//
//go:nosplit
func (s *Sampler) ShouldSample() bool {
	if s.rate <= 1 {
		s.sampled.Add(1)
		return true
	}
	if s.pos.Add(1)%s.rate == 0 {
		s.sampled.Add(1)
		return true
	}
	s.skipped.Add(1)
	return false
}

// Rate returns the effective sampling rate (1 means every decision).
func (s *Sampler) Rate() uint64 {
	return s.rate
}

// Stats returns a snapshot of the sampling counters.
func (s *Sampler) Stats() SamplerStats {
	return SamplerStats{
		Sampled: s.sampled.Load(),
		Skipped: s.skipped.Load(),
	}
}
