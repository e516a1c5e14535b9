//go:build cowinstrument

package cow_test

import (
	"fmt"
	"os"

	"github.com/kolkov/cowsim/cow"
)

// Example shows a write through a lazy clone: the clone gets a private
// shadow record and its generation advances, the original is untouched.
func Example() {
	sim := cow.NewSimulator(cow.SharedWrites())

	a := cow.NewStorage(4)
	defer a.Release()

	sim.Begin(cow.Access{Kind: cow.Write, Op: "fill_"})
	if _, err := a.WriteAt(sim, []byte("abcd"), 0); err != nil {
		panic(err)
	}

	b := a.LazyClone()
	defer b.Release()

	sim.Begin(cow.Access{Kind: cow.Write, Op: "add_"})
	if _, err := b.WriteAt(sim, []byte("zz"), 0); err != nil {
		panic(err)
	}

	fmt.Println("a generation:", a.Impl().ShadowStorage().Generation())
	fmt.Println("b generation:", b.Impl().ShadowStorage().Generation())
	fmt.Println("forks:", sim.Stats().Forks)

	// Output:
	// a generation: 0
	// b generation: 1
	// forks: 1
}

// Example_simulateCopyOnWrite drives the two storage operations directly.
func Example_simulateCopyOnWrite() {
	sim := cow.NewSimulator(cow.Fixed(true))

	s := cow.NewStorage(8)
	defer s.Release()

	sim.Begin(cow.Access{Kind: cow.Write, Op: "zero_"})
	rec := s.SimulateCopyOnWrite(sim)
	defer rec.Release()
	fmt.Println(rec.Generation())

	s.MaybeBumpCopyOnWriteGeneration(sim)
	fmt.Println(rec.Generation())

	// Output:
	// 0
	// 1
}

// Example_recorder prints a divergence report for a shared write.
func Example_recorder() {
	rec := cow.NewRecorder(cow.ReportConfig{})
	sim := cow.NewSimulator(nil, cow.WithObserver(rec))

	a := cow.NewStorage(2)
	defer a.Release()
	b := a.LazyClone()
	defer b.Release()

	sim.Begin(cow.Access{Kind: cow.Write, Op: "set_"})
	if _, err := b.WriteAt(sim, []byte("x"), 0); err != nil {
		panic(err)
	}

	rec.Summary(os.Stdout)

	// Output:
	// ==================
	// Copy-on-Write Simulation Report
	// ==================
	// WARNING: 2 simulated copy site(s), 2 occurrence(s)
	// ==================
}
