package pubsub

import (
	"math/rand/v2"

	"github.com/mwalkiewicz/twitch-pointwatch/internal/constants"
)

const nonceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// newNonce generates a random alphanumeric correlation token for outbound
// LISTEN/UNLISTEN requests.
func newNonce() string {
	b := make([]byte, constants.NonceLength)
	for i := range b {
		b[i] = nonceAlphabet[rand.IntN(len(nonceAlphabet))]
	}
	return string(b)
}
