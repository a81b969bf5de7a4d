package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNonceLengthAndCharset(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		n := newNonce()
		assert.Len(t, n, 15)
		for _, r := range n {
			isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
			assert.True(t, isAlnum, "nonce contains %q", r)
		}
		seen[n] = true
	}

	// 100 draws from a 62^15 space colliding down to a handful would mean
	// the generator is broken.
	assert.Greater(t, len(seen), 90)
}
