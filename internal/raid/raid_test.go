package raid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetOrCreateSharesHandle(t *testing.T) {
	reg := NewRegistry()

	a := reg.GetOrCreate("raid-1", "target")
	b := reg.GetOrCreate("raid-1", "target")
	assert.Same(t, a, b)
	assert.Equal(t, 1, reg.Len())
}

func TestReleaseDropsEntryAtZeroRefs(t *testing.T) {
	reg := NewRegistry()

	reg.GetOrCreate("raid-1", "target")
	reg.GetOrCreate("raid-1", "target")

	reg.Release("raid-1")
	assert.Equal(t, 1, reg.Len())

	reg.Release("raid-1")
	assert.Equal(t, 0, reg.Len())

	// A fresh request after full release gets a new handle.
	fresh := reg.GetOrCreate("raid-1", "target")
	assert.False(t, fresh.IsJoined())
}

func TestReleaseUnknownIsNoop(t *testing.T) {
	reg := NewRegistry()
	reg.Release("never-seen")
	assert.Equal(t, 0, reg.Len())
}

func TestTryJoinClaimsOnce(t *testing.T) {
	reg := NewRegistry()
	r := reg.GetOrCreate("raid-1", "target")

	assert.True(t, r.TryJoin())
	assert.False(t, r.TryJoin())
	assert.True(t, r.IsJoined())

	r.ResetJoin()
	assert.True(t, r.TryJoin())
}
