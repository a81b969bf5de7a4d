// Package auth holds the token-based authentication collaborator. The
// login/credential exchange is external; this package only carries the
// resulting opaque token and reacts to sign-out.
package auth

import (
	"fmt"
	"sync"

	"github.com/mwalkiewicz/twitch-pointwatch/internal/constants"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/logger"
)

// TokenProvider is a Provider backed by an externally supplied OAuth token.
type TokenProvider struct {
	mu     sync.RWMutex
	token  string
	userID string
	log    *logger.Logger

	// onSignOut, if set, runs once when the token is invalidated.
	onSignOut func()
	signedOut bool
}

// NewTokenProvider creates a TokenProvider from a token and user id.
func NewTokenProvider(token, userID string, log *logger.Logger) *TokenProvider {
	return &TokenProvider{
		token:  token,
		userID: userID,
		log:    log,
	}
}

// OnSignOut registers a callback invoked the first time SignOut runs.
func (p *TokenProvider) OnSignOut(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onSignOut = fn
}

// AuthToken implements Provider.
func (p *TokenProvider) AuthToken() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token
}

// UserID implements Provider.
func (p *TokenProvider) UserID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.userID
}

// SetUserID records the resolved user id when the config only carried a login.
func (p *TokenProvider) SetUserID(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userID = id
}

// GetAuthHeaders implements Provider.
func (p *TokenProvider) GetAuthHeaders() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	headers := map[string]string{
		"Client-Id":  constants.ClientID,
		"User-Agent": constants.DefaultUserAgent,
	}
	if p.token != "" {
		headers["Authorization"] = fmt.Sprintf("OAuth %s", p.token)
	}
	return headers
}

// SignOut implements Provider. Idempotent: the callback fires once.
func (p *TokenProvider) SignOut() {
	p.mu.Lock()
	alreadyOut := p.signedOut
	p.signedOut = true
	p.token = ""
	fn := p.onSignOut
	p.mu.Unlock()

	if alreadyOut {
		return
	}
	p.log.Warn("Auth token invalidated, signing out")
	if fn != nil {
		fn()
	}
}
