// Package shadow implements shadow storage records and the carrier that embeds
// them inside a real storage object.
//
// Shadow storage is auxiliary, instrumentation-only state associated with a
// storage buffer: a generation counter recording how many divergent accesses
// a shadow-tracked view of the buffer has observed. It never holds data and
// never influences what the real storage does.
//
// # Records
//
// A record wraps one generation cell and exposes the Storage interface:
//
//	Generation() uint64     // current generation
//	BumpGeneration() uint64 // +1, fatal at math.MaxUint64
//
// Two ownership variants implement it:
//   - *Shared: reference counted (Retain/Release) and attachable to several
//     carriers at once. Storage objects that are "the same logical view" of a
//     buffer share one *Shared; a diverged view gets its own.
//   - Exclusive: a plain value owned by its container, for value contexts
//     where aliasing is impossible.
//
// The variant is chosen at the call site; both behave identically.
//
// # Carrier
//
// Carrier is the embedding point inside the storage object. Its layout is
// selected at compile time by the cowinstrument build tag:
//
//	go build -tags cowinstrument ./...  // carrier holds an optional *Shared
//	go build ./...                      // carrier is an empty struct
//
// Without the tag, Carrier has size zero, every accessor reports "absent"
// (nil), and Enabled is the constant false, so instrumented call sites that
// test it compile away entirely.
//
// # Thread Safety
//
// Shared reference counts, view counts and generations are atomic. A Carrier
// is not: installing or dropping a record must be serialized per storage
// object by the caller, the same way writes to the storage itself are.
package shadow
