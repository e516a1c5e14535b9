package simulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedWrites(t *testing.T) {
	tests := []struct {
		name  string
		kind  AccessKind
		views int64
		want  bool
	}{
		{name: "sole writer", kind: Write, views: 1, want: false},
		{name: "shared writer", kind: Write, views: 2, want: true},
		{name: "shared reader", kind: Read, views: 3, want: false},
		{name: "sole reader", kind: Read, views: 1, want: false},
	}

	p := SharedWrites()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Divergent(Access{Kind: tt.kind}, tt.views))
		})
	}
}

func TestFixed(t *testing.T) {
	assert.True(t, Fixed(true).Divergent(Access{Kind: Read}, 1))
	assert.False(t, Fixed(false).Divergent(Access{Kind: Write}, 10))
}

func TestParsePolicy(t *testing.T) {
	for _, name := range []string{"", "shared-writes", "always", "never"} {
		p, err := ParsePolicy(name)
		require.NoError(t, err, name)
		require.NotNil(t, p, name)
	}

	always, _ := ParsePolicy("always")
	assert.True(t, always.Divergent(Access{}, 1))

	_, err := ParsePolicy("sometimes")
	assert.EqualError(t, err, `unknown policy "sometimes": must be one of shared-writes, always, never`)
}

func TestParseAccessKind(t *testing.T) {
	k, err := ParseAccessKind("write")
	require.NoError(t, err)
	assert.Equal(t, Write, k)
	assert.Equal(t, "write", k.String())

	k, err = ParseAccessKind("read")
	require.NoError(t, err)
	assert.Equal(t, Read, k)

	_, err = ParseAccessKind("exec")
	assert.Error(t, err)
	assert.Equal(t, "unknown", AccessKind(9).String())
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "forked", Forked.String())
	assert.True(t, Forked.Divergent())
	assert.True(t, Bumped.Divergent())
	assert.False(t, Reused.Divergent())
	assert.False(t, Installed.Divergent())
	assert.Equal(t, "unknown", Outcome(0).String())
}

func TestParseOutcome(t *testing.T) {
	for o := Installed; o <= Ignored; o++ {
		got, err := ParseOutcome(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, got)
	}

	_, err := ParseOutcome("unknown")
	assert.EqualError(t, err, `unknown outcome "unknown"`)
}
