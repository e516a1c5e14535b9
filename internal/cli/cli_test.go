package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns its stdout, stderr and
// error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeTrace writes a trace document into a temporary directory and returns
// its path.
func writeTrace(t *testing.T, name, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

// plainTrace has no expectations, so it passes with and without shadow
// tracking compiled in.
const plainTrace = `
version: v1.0.0
name: plain
storages:
  - {name: a, size: 4}
steps:
  - {kind: write, storage: a, op: fill_, data: abcd}
  - {kind: clone, storage: a, as: b}
  - {kind: write, storage: b, op: add_, data: zz}
`

// fixture returns the path of a trace from the trace package's testdata.
func fixture(name string) string {
	return filepath.Join("..", "trace", "testdata", "traces", name+".yaml")
}
