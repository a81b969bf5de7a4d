// Package registry maintains the bidirectional login ↔ channel-id mapping
// shared by topic addressing, the PubSub dispatch path, and the online
// status tracker. Entries never expire: a tracked channel's identity is
// stable for the lifetime of the process.
package registry

import "sync"

// Registry is a bidirectional identity cache. The zero value is not usable;
// call New.
type Registry struct {
	mu        sync.RWMutex
	idByLogin map[string]string
	loginByID map[string]string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		idByLogin: make(map[string]string),
		loginByID: make(map[string]string),
	}
}

// Put records a login ↔ channel-id pair, replacing any previous mapping for
// either key.
func (r *Registry) Put(login, channelID string) {
	if login == "" || channelID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if oldID, ok := r.idByLogin[login]; ok && oldID != channelID {
		delete(r.loginByID, oldID)
	}
	if oldLogin, ok := r.loginByID[channelID]; ok && oldLogin != login {
		delete(r.idByLogin, oldLogin)
	}
	r.idByLogin[login] = channelID
	r.loginByID[channelID] = login
}

// IDForLogin resolves a login to its channel id.
func (r *Registry) IDForLogin(login string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByLogin[login]
	return id, ok
}

// LoginForID resolves a channel id back to its login.
func (r *Registry) LoginForID(channelID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	login, ok := r.loginByID[channelID]
	return login, ok
}

// Remove drops the mapping for a login, if present.
func (r *Registry) Remove(login string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.idByLogin[login]; ok {
		delete(r.loginByID, id)
		delete(r.idByLogin, login)
	}
}

// Len returns the number of tracked identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.idByLogin)
}
