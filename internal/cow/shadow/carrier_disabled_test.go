//go:build !cowinstrument

package shadow

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_Disabled(t *testing.T) {
	assert.False(t, Enabled)
}

// TestCarrier_ZeroSize verifies that the compiled-out carrier occupies no
// space inside its container.
func TestCarrier_ZeroSize(t *testing.T) {
	assert.Equal(t, uintptr(0), unsafe.Sizeof(Carrier{}))

	type container struct {
		n       int64
		carrier Carrier
		m       int64
	}
	assert.Equal(t, uintptr(16), unsafe.Sizeof(container{}))
}

func TestCarrier_AlwaysAbsent(t *testing.T) {
	s := NewShared(0)
	c := NewCarrier(s)

	for i := 0; i < 5; i++ {
		assert.Nil(t, c.ShadowStorage())
		assert.Nil(t, c.ShadowStorageRef())
	}
	assert.Equal(t, int64(0), s.UseCount(), "supplied reference is discarded")
}

func TestCarrier_InstallDiscards(t *testing.T) {
	c := NewCarrier(nil)
	s := NewShared(0)

	assert.Nil(t, c.Install(s))
	assert.Nil(t, c.ShadowStorage())
	assert.Equal(t, int64(0), s.UseCount())
	assert.NotPanics(t, func() { c.Drop() })
}
