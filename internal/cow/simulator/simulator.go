// Copyright 2025 The cowsim Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package simulator

import (
	"context"
	"log/slog"

	"github.com/kolkov/cowsim/internal/cow/invariant"
	"github.com/kolkov/cowsim/internal/cow/shadow"
)

// Simulator is the stateful copy-on-write detector for one session.
//
// It holds the access under analysis, the cached divergence verdict for that
// access, the last generation observed for every record it has touched, and
// per-session statistics.
type Simulator struct {
	policy    Policy
	observers []Observer
	logger    *slog.Logger

	// Current access and its verdict. judged is reset by Begin.
	access    Access
	judged    bool
	divergent bool

	// seen maps record identity to the generation this session last
	// observed for it. Used to flag stale views.
	seen map[uint64]uint64

	seq   uint64
	stats Stats
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithObserver registers an observer that receives every event.
func WithObserver(o Observer) Option {
	return func(s *Simulator) {
		s.observers = append(s.observers, o)
	}
}

// WithLogger sets a logger for debug-level tracing of state transitions.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) {
		s.logger = l
	}
}

// New creates a simulator using the given divergence policy. A nil policy
// selects SharedWrites.
func New(policy Policy, opts ...Option) *Simulator {
	if policy == nil {
		policy = SharedWrites()
	}
	s := &Simulator{
		policy: policy,
		seen:   make(map[uint64]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin starts the analysis of one access. The policy is consulted lazily,
// at most once, by the next Simulate or MaybeBump call.
func (s *Simulator) Begin(a Access) {
	s.access = a
	s.judged = false
	s.divergent = false
	s.stats.Accesses++
}

// BeginJudged starts the analysis of one access whose verdict the caller has
// already decided. The policy is not consulted for this access.
func (s *Simulator) BeginJudged(a Access, divergent bool) {
	s.Begin(a)
	s.judged = true
	s.divergent = divergent
	if divergent {
		s.stats.Divergent++
	}
}

// Access returns the access under analysis.
func (s *Simulator) Access() Access {
	return s.access
}

// Stats returns a copy of the session statistics.
func (s *Simulator) Stats() Stats {
	return s.stats
}

// Simulate produces the shadow storage record that represents the storage
// owning c after the current access, and returns an owning reference to it.
// The caller must Release the result.
//
// Returns nil when instrumentation is compiled out. Otherwise:
//   - no record installed: installs a fresh record at generation 0;
//   - divergent access on a record shared by several storages: installs a
//     fork carrying the current generation into c only;
//   - anything else: returns the installed record unchanged.
func (s *Simulator) Simulate(c *shadow.Carrier) *shadow.Shared {
	if !shadow.Enabled {
		return nil
	}
	invariant.Assert(c != nil, "carrier != nil")

	cur := c.ShadowStorage()
	if cur == nil {
		fresh := shadow.NewShared(0)
		c.Install(fresh).Release()
		s.stats.Installs++
		s.emit(Installed, fresh, 0, false)
		return fresh.Retain()
	}

	views := cur.Views()
	if s.judge(views) && views > 1 {
		fork := shadow.NewShared(cur.Generation())
		c.Install(fork).Release()
		s.stats.Forks++
		s.emit(Forked, fork, cur.ID(), false)
		return fork.Retain()
	}

	stale := s.isStale(cur)
	s.stats.Reuses++
	s.emit(Reused, cur, 0, stale)
	return cur.Retain()
}

// MaybeBump increments the generation of the record installed in c if the
// current access is judged divergent.
//
// No-op when instrumentation is compiled out, when c holds no record, or when
// the access is not divergent.
func (s *Simulator) MaybeBump(c *shadow.Carrier) {
	if !shadow.Enabled {
		return
	}
	invariant.Assert(c != nil, "carrier != nil")

	cur := c.ShadowStorage()
	if cur == nil {
		s.stats.Ignored++
		s.emit(Ignored, nil, 0, false)
		return
	}
	if !s.judge(cur.Views()) {
		return
	}

	stale := s.isStale(cur)
	cur.BumpGeneration()
	s.stats.Bumps++
	s.emit(Bumped, cur, 0, stale)
}

// judge returns the verdict for the current access, consulting the policy on
// first use.
func (s *Simulator) judge(views int64) bool {
	if !s.judged {
		s.divergent = s.policy.Divergent(s.access, views)
		s.judged = true
		if s.divergent {
			s.stats.Divergent++
		}
	}
	return s.divergent
}

// isStale reports whether this session saw rec before at an older generation.
func (s *Simulator) isStale(rec *shadow.Shared) bool {
	last, ok := s.seen[rec.ID()]
	return ok && last < rec.Generation()
}

func (s *Simulator) emit(outcome Outcome, rec *shadow.Shared, parent uint64, stale bool) {
	s.seq++
	e := Event{
		Seq:     s.seq,
		Access:  s.access,
		Outcome: outcome,
		Parent:  parent,
		Stale:   stale,
	}
	if rec != nil {
		e.Record = rec.ID()
		e.Generation = rec.Generation()
		e.Views = rec.Views()
		s.seen[e.Record] = e.Generation
	}

	if s.logger != nil && s.logger.Enabled(context.Background(), slog.LevelDebug) {
		s.logger.Debug("copy-on-write simulation",
			"outcome", outcome.String(),
			"op", e.Access.Op,
			"kind", e.Access.Kind.String(),
			"view", e.Access.View,
			"record", e.Record,
			"generation", e.Generation,
			"views", e.Views,
		)
	}

	for _, o := range s.observers {
		o.Observe(e)
	}
}
