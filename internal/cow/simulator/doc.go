// Package simulator implements the copy-on-write simulator.
//
// The simulator decides, for one storage access at a time, whether the access
// is the point at which a real copy-on-write system would have had to copy the
// buffer, and records the outcome in the storage's shadow state. Nothing is
// ever copied; the simulator only maintains generation counters so that
// tooling can see where copies would have happened.
//
// # Session Model
//
// A Simulator is scoped to one simulation session (one access, or one batch
// of accesses being analyzed) and is passed in by the caller performing the
// access. The storage object never owns it. Per access:
//
//	sim.Begin(simulator.Access{Kind: simulator.Write, Op: "add_", View: 3})
//	rec := storage.SimulateCopyOnWrite(sim)        // before the access
//	// ... perform the real read or write ...
//	storage.MaybeBumpCopyOnWriteGeneration(sim)    // after the access
//	rec.Release()
//
// # Divergence Policy
//
// Whether an access is divergent is an external input, supplied as a Policy.
// The simulator evaluates it at most once per Begin and reuses the verdict for
// both operations. Built-in policies:
//   - SharedWrites: a write observed while the record is attached to more than
//     one storage object.
//   - Fixed: a constant verdict, for tests and for callers that decide
//     elsewhere.
//
// # State Machine
//
// Per storage object the shadow state is (has-record, generation):
//
//	no record   --first simulated access-->  record at generation 0
//	generation  --divergent access-------->  generation + 1 (fatal at max)
//	generation  --non-divergent access---->  unchanged
//
// A divergent access on a record shared with other storage objects first
// forks: this storage gets a private record carrying the current generation,
// and the others keep the original. The subsequent bump then only advances
// the diverged view.
//
// # Thread Safety
//
// A Simulator is NOT safe for concurrent use. Use one per goroutine. Observers
// attached to it may be shared if they are themselves safe for concurrent use.
package simulator
