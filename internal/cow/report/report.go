// Copyright 2025 The cowsim Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report turns copy-on-write simulation events into divergence
// reports.
//
// A divergence is a point where a real copy-on-write system would have copied
// the buffer: a fork of a shared shadow record, or a generation bump. The
// Recorder observes a simulator, keeps one Report per unique divergence site,
// optionally captures the access-site stack, and prints banner reports in the
// style of a race detector:
//
//	==================
//	WARNING: SIMULATED COPY-ON-WRITE
//	write by op "add_" (view 3) forked shadow storage 4
//	  now shadow storage 9 at generation 2, 1 view(s)
//	  pkg.caller()
//	      /path/to/file.go:42
//	==================
//
// Duplicate divergences (same outcome, record and op) are counted but not
// reported again.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/kolkov/cowsim/internal/cow/simulator"
	"github.com/kolkov/cowsim/internal/cow/stackdepot"
)

// Report describes one unique divergence site.
type Report struct {
	// Event is the simulator event that first hit this site.
	Event simulator.Event

	// Key identifies the site for deduplication.
	// Format: "{outcome}:{record}:{op}", where record is the parent record
	// for forks and the bumped record otherwise.
	Key string

	// Occurrences counts how many times the site was hit.
	Occurrences uint64

	// Stack is the access-site stack of the first occurrence, or nil when
	// stack capture was off or not sampled.
	Stack *stackdepot.Stack
}

// Key returns the deduplication key for a divergent event.
func Key(e simulator.Event) string {
	record := e.Record
	if e.Outcome == simulator.Forked {
		record = e.Parent
	}
	return fmt.Sprintf("%s:%d:%s", e.Outcome, record, e.Access.Op)
}

// Format writes the banner form of the report to w.
//
//nolint:errcheck // Best-effort diagnostic output.
func (r *Report) Format(w io.Writer) {
	e := r.Event
	fmt.Fprintf(w, "==================\n")
	fmt.Fprintf(w, "WARNING: SIMULATED COPY-ON-WRITE\n")

	subject := fmt.Sprintf("%s by op %q", e.Access.Kind, e.Access.Op)
	if e.Access.View != 0 {
		subject += fmt.Sprintf(" (view %d)", e.Access.View)
	}

	switch e.Outcome {
	case simulator.Forked:
		fmt.Fprintf(w, "%s forked shadow storage %d\n", subject, e.Parent)
		fmt.Fprintf(w, "  now shadow storage %d at generation %d, %d view(s)\n", e.Record, e.Generation, e.Views)
	default:
		fmt.Fprintf(w, "%s bumped shadow storage %d\n", subject, e.Record)
		fmt.Fprintf(w, "  generation %d, %d view(s)\n", e.Generation, e.Views)
	}
	if e.Stale {
		fmt.Fprintf(w, "  (view was stale: another owner advanced the generation first)\n")
	}

	if r.Stack != nil {
		fmt.Fprint(w, r.Stack.Format())
	}
	fmt.Fprintf(w, "==================\n")
}

// String returns the banner form of the report.
func (r *Report) String() string {
	var buf strings.Builder
	r.Format(&buf)
	return buf.String()
}
