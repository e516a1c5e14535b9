package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/cowsim/cow"
)

func TestVersionCommand_Text(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cowsim "+cow.Version+" (")
	assert.Contains(t, out, "instrumentation: ")
}

func TestVersionCommand_JSON(t *testing.T) {
	out, _, err := execute(t, "version", "--format", "json")
	require.NoError(t, err)

	var got VersionOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, cow.Version, got.Version)
	assert.Equal(t, cow.Enabled, got.Instrumented)
	assert.NotEmpty(t, got.GoVersion)
}

func TestVersionCommand_RejectsArgs(t *testing.T) {
	_, _, err := execute(t, "version", "extra")
	assert.Error(t, err)
}
