// Package trace loads and replays storage access traces.
//
// A trace is a YAML document describing a small program over reference-counted
// storages: which storages exist, the reads, writes, lazy clones and releases
// performed on them, and the shadow state expected at the end. Replaying a
// trace drives the copy-on-write simulator through the instrumented storage
// access path and collects every simulator event.
//
// Example trace:
//
//	version: v1.0.0
//	name: clone-write
//	description: writing through a lazy clone forks the shadow record
//	policy: shared-writes
//	storages:
//	  - name: a
//	    size: 4
//	steps:
//	  - {kind: write, storage: a, op: fill_, data: abcd}
//	  - {kind: clone, storage: a, as: b}
//	  - {kind: write, storage: b, op: add_, data: zz}
//	expect:
//	  - {storage: a, generation: 0}
//	  - {storage: b, generation: 1}
package trace

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/kolkov/cowsim/internal/cow/simulator"
)

// SupportedMajor is the trace format major version this package reads.
const SupportedMajor = "v1"

// MaxStorageSize bounds declared storage sizes and read lengths, in bytes.
const MaxStorageSize = 64 << 20

// Step kinds.
const (
	StepRead    = "read"
	StepWrite   = "write"
	StepClone   = "clone"
	StepRelease = "release"
)

// Trace is a parsed trace document.
type Trace struct {
	// Version is the trace format version (semantic version, major v1).
	Version string `yaml:"version"`

	// Name identifies the trace in results and stored sessions.
	Name string `yaml:"name"`

	Description string `yaml:"description,omitempty"`

	// Policy names the divergence policy: shared-writes (default), always
	// or never.
	Policy string `yaml:"policy,omitempty"`

	Storages []StorageDecl `yaml:"storages"`
	Steps    []Step        `yaml:"steps"`
	Expect   []Expectation `yaml:"expect,omitempty"`
}

// StorageDecl declares a storage that exists when the trace starts.
type StorageDecl struct {
	Name string `yaml:"name"`
	Size int    `yaml:"size"`
}

// Step is one operation of the trace.
type Step struct {
	// Kind is read, write, clone or release.
	Kind string `yaml:"kind"`

	// Storage names the storage the step operates on.
	Storage string `yaml:"storage"`

	// As names the storage created by a clone step.
	As string `yaml:"as,omitempty"`

	// Op names the operator performing a read or write.
	Op string `yaml:"op,omitempty"`

	// Offset is the byte offset of a read or write.
	Offset int64 `yaml:"offset,omitempty"`

	// Data holds the bytes written by a write step.
	Data string `yaml:"data,omitempty"`

	// Length is the number of bytes read by a read step (default 1).
	Length int `yaml:"length,omitempty"`

	// Divergent, when set, overrides the policy verdict for this access.
	Divergent *bool `yaml:"divergent,omitempty"`
}

// Expectation describes the shadow state one storage must end in.
type Expectation struct {
	Storage string `yaml:"storage"`

	// Generation is the expected generation of the storage's record.
	Generation *uint64 `yaml:"generation,omitempty"`

	// SharesWith names a storage that must share the same record.
	SharesWith string `yaml:"shares_with,omitempty"`

	// Absent requires that the storage has no record installed.
	Absent bool `yaml:"absent,omitempty"`
}

// Load reads and parses the trace file at path.
func Load(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace file: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse parses and validates a trace document. Unknown fields are rejected.
func Parse(data []byte) (*Trace, error) {
	var t Trace
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trace: %w", err)
	}
	return &t, nil
}

// Validate checks the trace for structural errors: version, names, step
// kinds, and references to storages that do not exist at that point of the
// trace (never declared, or already released).
func (t *Trace) Validate() error {
	if err := checkVersion(t.Version); err != nil {
		return err
	}
	if t.Name == "" {
		return errors.New("name is required")
	}
	if _, err := simulator.ParsePolicy(t.Policy); err != nil {
		return err
	}
	if len(t.Steps) == 0 {
		return errors.New("steps list is required and must be non-empty")
	}

	live := make(map[string]bool)
	declared := make(map[string]bool)
	for i, s := range t.Storages {
		if s.Name == "" {
			return fmt.Errorf("storages[%d]: name is required", i)
		}
		if declared[s.Name] {
			return fmt.Errorf("storages[%d]: duplicate storage %q", i, s.Name)
		}
		if s.Size < 0 {
			return fmt.Errorf("storages[%d]: size must be non-negative, got %d", i, s.Size)
		}
		if s.Size > MaxStorageSize {
			return fmt.Errorf("storages[%d]: size %d exceeds maximum %d", i, s.Size, MaxStorageSize)
		}
		declared[s.Name] = true
		live[s.Name] = true
	}

	for i, s := range t.Steps {
		if !live[s.Storage] {
			if declared[s.Storage] {
				return fmt.Errorf("steps[%d]: storage %q used after release", i, s.Storage)
			}
			return fmt.Errorf("steps[%d]: unknown storage %q", i, s.Storage)
		}
		switch s.Kind {
		case StepRead, StepWrite:
			if s.Op == "" {
				return fmt.Errorf("steps[%d]: op is required for %s", i, s.Kind)
			}
			if s.Kind == StepWrite && s.Data == "" {
				return fmt.Errorf("steps[%d]: data is required for write", i)
			}
			if s.Length < 0 {
				return fmt.Errorf("steps[%d]: length must be non-negative, got %d", i, s.Length)
			}
			if s.Length > MaxStorageSize {
				return fmt.Errorf("steps[%d]: length %d exceeds maximum %d", i, s.Length, MaxStorageSize)
			}
		case StepClone:
			if s.As == "" {
				return fmt.Errorf("steps[%d]: as is required for clone", i)
			}
			if declared[s.As] {
				return fmt.Errorf("steps[%d]: duplicate storage %q", i, s.As)
			}
			declared[s.As] = true
			live[s.As] = true
		case StepRelease:
			live[s.Storage] = false
		default:
			return fmt.Errorf("steps[%d]: unknown kind %q: must be one of read, write, clone, release", i, s.Kind)
		}
	}

	for i, e := range t.Expect {
		if !live[e.Storage] {
			return fmt.Errorf("expect[%d]: storage %q does not exist at the end of the trace", i, e.Storage)
		}
		if e.SharesWith != "" && !live[e.SharesWith] {
			return fmt.Errorf("expect[%d]: storage %q does not exist at the end of the trace", i, e.SharesWith)
		}
		if e.Absent && (e.Generation != nil || e.SharesWith != "") {
			return fmt.Errorf("expect[%d]: absent excludes generation and shares_with", i)
		}
	}
	return nil
}

// PolicyName returns the effective policy name.
func (t *Trace) PolicyName() string {
	if t.Policy == "" {
		return "shared-writes"
	}
	return t.Policy
}

func checkVersion(v string) error {
	if v == "" {
		return errors.New("version is required")
	}
	canonical := v
	if canonical[0] != 'v' {
		canonical = "v" + canonical
	}
	if !semver.IsValid(canonical) {
		return fmt.Errorf("version %q is not a valid semantic version", v)
	}
	if major := semver.Major(canonical); major != SupportedMajor {
		return fmt.Errorf("unsupported trace version %s: want %s.x", v, SupportedMajor)
	}
	return nil
}
