// Package cow simulates copy-on-write for shared, reference-counted storage
// buffers.
//
// A framework that shares one buffer between several logical views (lazy
// clones, slices, aliases) has to decide, on every access, whether a real
// copy-on-write implementation would have copied the buffer at that point.
// This package answers that question without copying anything: every storage
// object carries an optional shadow storage record holding a generation
// counter, and a Simulator advances, forks and reuses those records as
// accesses happen.
//
// # Quick Start
//
//	sim := cow.NewSimulator(cow.SharedWrites())
//
//	a := cow.NewStorage(4)
//	defer a.Release()
//	b := a.LazyClone() // b shares a's bytes and shadow record
//	defer b.Release()
//
//	sim.Begin(cow.Access{Kind: cow.Write, Op: "add_"})
//	b.WriteAt(sim, []byte("zz"), 0) // a copy would have happened here
//
// # Build Configurations
//
// Shadow tracking is compiled in only with the cowinstrument build tag:
//
//	$ go test -tags cowinstrument ./...
//
// Without the tag, Enabled is false, storage objects carry no shadow state
// (the carrier is an empty struct), and every simulator operation is a no-op
// that the compiler folds away. Code using this package builds unchanged in
// both configurations.
//
// # API Overview
//
//   - Storage objects: [NewStorage], [Storage.LazyClone], [Storage.ReadAt],
//     [Storage.WriteAt]
//   - The two copy-on-write operations: [Storage.SimulateCopyOnWrite],
//     [Storage.MaybeBumpCopyOnWriteGeneration]
//   - Simulation: [NewSimulator], [SharedWrites], [Fixed], [PolicyFunc]
//   - Reporting: [NewRecorder], [WithObserver]
//   - Version information: [GetInfo], [Version]
//
// # Divergence
//
// Whether an access is divergent (would force a copy) is decided by a
// Policy. The default, SharedWrites, treats a write through a record shared
// by more than one storage object as divergent. Callers that know better can
// decide per access with Simulator.BeginJudged.
//
// A divergent access on a shared record forks it: the accessing storage gets
// a private record carrying the current generation, and the generation of the
// fork is then bumped. Other storages keep the original record and see no
// change, exactly as if their buffer had not been copied.
//
// # Thread Safety
//
// A Simulator belongs to one session and must not be used concurrently.
// Shared shadow records are safe to bump from several sessions at once.
// Storage objects follow the usual rule for reference-counted buffers:
// mutations of one storage object must be serialized by the caller.
package cow
