package trace

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSON returns the indented JSON form of the result, newline-terminated.
func (r *Result) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteText writes a human-readable form of the result to w.
func (r *Result) WriteText(w io.Writer) error {
	p := &errWriter{w: w}

	p.printf("trace %s (policy %s)\n", r.Name, r.Policy)
	for _, e := range r.Events {
		p.printf("  #%d %s %s on %s: %s", e.Seq, e.Kind, e.Op, e.Storage, e.Outcome)
		if e.Record != "" {
			p.printf(" %s", e.Record)
		}
		if e.Parent != "" {
			p.printf(" from %s", e.Parent)
		}
		if e.Record != "" {
			p.printf(", generation %d, %d view(s)", e.Generation, e.Views)
		}
		if e.Stale {
			p.printf(", stale")
		}
		p.printf("\n")
	}

	p.printf("final:\n")
	for _, st := range r.Final {
		switch {
		case st.Released:
			p.printf("  %s: released\n", st.Name)
		case st.Record == "":
			p.printf("  %s: no shadow record\n", st.Name)
		default:
			p.printf("  %s: %s generation %d, %d view(s)\n", st.Name, st.Record, st.Generation, st.Views)
		}
	}

	if r.Passed() {
		p.printf("PASS\n")
	} else {
		for _, f := range r.Failures {
			p.printf("FAIL: %s\n", f.Error())
		}
	}
	return p.err
}

// errWriter keeps the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (p *errWriter) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
