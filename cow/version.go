package cow

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Version is the simulator release, without the leading "v".
const Version = "0.1.0"

// InstrumentTag is the build tag that compiles shadow tracking in.
const InstrumentTag = "cowinstrument"

// Info describes the running binary.
type Info struct {
	Version string

	// Instrumented reports whether the binary was built with InstrumentTag.
	// Without it every simulator operation is a no-op.
	Instrumented bool

	// Tags is the -tags value the binary was built with, if recorded.
	Tags string

	GoVersion string

	// Revision and Modified come from the VCS stamp, when the binary was
	// built inside a checkout.
	Revision string
	Modified bool
}

// GetInfo returns the version and build state of the running binary.
func GetInfo() Info {
	info := Info{Version: Version, Instrumented: Enabled}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "-tags":
			info.Tags = s.Value
		case "vcs.revision":
			info.Revision = s.Value
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// String formats info as a single line, e.g.
//
//	cowsim 0.1.0 (instrumented, go1.24.0, rev 3f2a9c1d0b7e+dirty)
func (info Info) String() string {
	parts := []string{"uninstrumented"}
	if info.Instrumented {
		parts[0] = "instrumented"
	}
	if info.GoVersion != "" {
		parts = append(parts, info.GoVersion)
	}
	if info.Revision != "" {
		rev := info.Revision
		if len(rev) > 12 {
			rev = rev[:12]
		}
		if info.Modified {
			rev += "+dirty"
		}
		parts = append(parts, "rev "+rev)
	}
	return fmt.Sprintf("cowsim %s (%s)", info.Version, strings.Join(parts, ", "))
}
