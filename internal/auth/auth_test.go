package auth

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwalkiewicz/twitch-pointwatch/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.Setup(logger.Config{Level: slog.LevelError})
	require.NoError(t, err)
	return log
}

func TestGetAuthHeaders(t *testing.T) {
	p := NewTokenProvider("tok-abc", "42", testLogger(t))

	headers := p.GetAuthHeaders()
	assert.Equal(t, "OAuth tok-abc", headers["Authorization"])
	assert.NotEmpty(t, headers["Client-Id"])
	assert.NotEmpty(t, headers["User-Agent"])
}

func TestGetAuthHeadersWithoutToken(t *testing.T) {
	p := NewTokenProvider("", "42", testLogger(t))
	_, ok := p.GetAuthHeaders()["Authorization"]
	assert.False(t, ok)
}

func TestSignOutFiresCallbackOnce(t *testing.T) {
	p := NewTokenProvider("tok", "42", testLogger(t))

	fired := 0
	p.OnSignOut(func() { fired++ })

	p.SignOut()
	p.SignOut()

	assert.Equal(t, 1, fired)
	assert.Empty(t, p.AuthToken())
}

func TestSetUserID(t *testing.T) {
	p := NewTokenProvider("tok", "", testLogger(t))
	assert.Empty(t, p.UserID())

	p.SetUserID("99")
	assert.Equal(t, "99", p.UserID())
}
