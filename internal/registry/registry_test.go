package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPutAndLookup(t *testing.T) {
	r := New()
	r.Put("streamer", "123")

	id, ok := r.IDForLogin("streamer")
	assert.True(t, ok)
	assert.Equal(t, "123", id)

	login, ok := r.LoginForID("123")
	assert.True(t, ok)
	assert.Equal(t, "streamer", login)
}

func TestLookupMissing(t *testing.T) {
	r := New()

	_, ok := r.IDForLogin("nobody")
	assert.False(t, ok)
	_, ok = r.LoginForID("0")
	assert.False(t, ok)
}

func TestPutOverwrite(t *testing.T) {
	r := New()
	r.Put("streamer", "123")
	r.Put("streamer", "456")

	id, _ := r.IDForLogin("streamer")
	assert.Equal(t, "456", id)

	// The stale reverse mapping must be gone.
	_, ok := r.LoginForID("123")
	assert.False(t, ok)

	login, _ := r.LoginForID("456")
	assert.Equal(t, "streamer", login)
}

func TestRemove(t *testing.T) {
	r := New()
	r.Put("streamer", "123")
	r.Remove("streamer")

	_, ok := r.IDForLogin("streamer")
	assert.False(t, ok)
	_, ok = r.LoginForID("123")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}
