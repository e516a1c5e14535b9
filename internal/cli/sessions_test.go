package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_Empty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cowsim.db")

	out, _, err := execute(t, "sessions", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No sessions found in database.\n", out)
}

func TestSessions_RequiresDB(t *testing.T) {
	_, _, err := execute(t, "sessions")
	assert.Error(t, err)
}

func TestSessions_TextAndEvents(t *testing.T) {
	path := writeTrace(t, "plain", plainTrace)
	db := filepath.Join(t.TempDir(), "cowsim.db")

	_, _, err := execute(t, "replay", "--db", db, "--format", "json", path)
	require.NoError(t, err)

	out, _, err := execute(t, "sessions", "--db", db)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "plain")

	id := strings.Fields(lines[1])[0]
	out, _, err = execute(t, "sessions", "--db", db, "--session", id, "--format", "json")
	require.NoError(t, err)

	var events []EventOutput
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	for i, e := range events {
		assert.Equal(t, uint64(i+1), e.Seq)
	}
}

func TestSessions_UnknownSession(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cowsim.db")

	out, _, err := execute(t, "sessions", "--db", db, "--session", "missing")
	require.NoError(t, err)
	assert.Equal(t, "No events found for session missing.\n", out)
}
