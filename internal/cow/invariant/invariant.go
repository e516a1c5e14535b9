// Package invariant implements the fatal assertion channel of the copy-on-write
// simulator.
//
// Invariant checks guard against programming mistakes in collaborating
// components: using a null or released storage handle, bumping a generation
// counter past its 64-bit range, retaining a record whose last reference was
// already dropped. They are never user-input validation and are never
// returned through ordinary error results.
//
// A failed check panics with a *Violation. Left unrecovered, the panic
// terminates the process with the violation message and stack. Tests observe
// the failure path by recovering it (for example with testify's
// require.PanicsWithError).
//
// Ordinary recoverable errors (trace parsing, store I/O, out-of-range buffer
// access) use plain error returns and never go through this package.
package invariant

import "fmt"

// Violation describes a failed internal invariant.
//
// It implements error so callers that recover it can log or compare it, but it
// is only ever delivered through panic.
type Violation struct {
	// Check is the condition that was expected to hold, in source form
	// (for example "impl != nil").
	Check string

	// Detail is optional context supplied by the failing call site.
	Detail string
}

// Error returns the violation message.
//
// Format: "internal assert failed: <check>" optionally followed by
// ": <detail>".
func (v *Violation) Error() string {
	if v.Detail == "" {
		return "internal assert failed: " + v.Check
	}
	return "internal assert failed: " + v.Check + ": " + v.Detail
}

// Assert panics with a *Violation when cond is false.
//
// This is the hot-path form: it allocates only on failure.
func Assert(cond bool, check string) {
	if !cond {
		panic(&Violation{Check: check})
	}
}

// Assertf is like Assert but attaches a formatted detail message.
//
// The detail is only formatted when the check fails.
func Assertf(cond bool, check string, format string, args ...any) {
	if !cond {
		panic(&Violation{Check: check, Detail: fmt.Sprintf(format, args...)})
	}
}

// Fail unconditionally reports a violated invariant.
func Fail(check string) {
	panic(&Violation{Check: check})
}
