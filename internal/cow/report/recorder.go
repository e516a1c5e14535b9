package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/kolkov/cowsim/internal/cow/simulator"
	"github.com/kolkov/cowsim/internal/cow/stackdepot"
)

// Config configures a Recorder.
type Config struct {
	// Output receives a banner for every new divergence site. Nil disables
	// immediate output; reports stay available through Reports.
	Output io.Writer

	// CaptureStacks enables access-site stack capture.
	CaptureStacks bool

	// SampleRate captures a stack for one in SampleRate new sites.
	// 0 or 1 captures every site. Ignored without CaptureStacks.
	SampleRate uint64
}

// Recorder collects divergence reports. It implements simulator.Observer.
//
// Thread Safety: safe for concurrent use; one Recorder may observe several
// simulators running on different goroutines.
type Recorder struct {
	cfg     Config
	sampler *Sampler
	depot   *stackdepot.Depot

	mu      sync.Mutex
	sites   map[string]*Report
	reports []*Report
	total   uint64
}

var _ simulator.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder.
func NewRecorder(cfg Config) *Recorder {
	return &Recorder{
		cfg:     cfg,
		sampler: NewSampler(cfg.SampleRate),
		depot:   stackdepot.New(),
		sites:   make(map[string]*Report),
	}
}

// Observe records e if it is a divergence. Other outcomes are ignored.
func (r *Recorder) Observe(e simulator.Event) {
	if !e.Outcome.Divergent() {
		return
	}
	key := Key(e)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.total++
	if site, ok := r.sites[key]; ok {
		site.Occurrences++
		return
	}

	rep := &Report{Event: e, Key: key, Occurrences: 1}
	if r.cfg.CaptureStacks && r.sampler.ShouldSample() {
		// Skip Observe and the simulator's emit.
		rep.Stack = r.depot.Lookup(r.depot.Capture(2))
	}
	r.sites[key] = rep
	r.reports = append(r.reports, rep)

	if r.cfg.Output != nil {
		rep.Format(r.cfg.Output)
	}
}

// Reports returns the unique divergence sites in first-seen order.
func (r *Recorder) Reports() []*Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// Count returns the number of unique divergence sites.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}

// Total returns the number of divergences observed, duplicates included.
func (r *Recorder) Total() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Reset forgets all reports.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sites = make(map[string]*Report)
	r.reports = nil
	r.total = 0
}

// Summary writes the end-of-run summary to w.
//
//nolint:errcheck // Best-effort diagnostic output.
func (r *Recorder) Summary(w io.Writer) {
	count, total := r.Count(), r.Total()

	fmt.Fprintf(w, "==================\n")
	fmt.Fprintf(w, "Copy-on-Write Simulation Report\n")
	fmt.Fprintf(w, "==================\n")
	if count == 0 {
		fmt.Fprintf(w, "No simulated copies.\n")
	} else {
		fmt.Fprintf(w, "WARNING: %d simulated copy site(s), %d occurrence(s)\n", count, total)
	}
	fmt.Fprintf(w, "==================\n")
}
