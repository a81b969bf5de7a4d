// Package raid tracks active raids through an explicit registry. Handles
// are shared and reference counted: requesting the same raid id twice
// returns the same *Raid, and the entry is dropped once every holder has
// released it.
package raid

import (
	"sync"
	"sync/atomic"
)

// Raid is one announced raid on a watched channel.
type Raid struct {
	ID          string
	TargetLogin string

	// joined flips once a JoinRaid call is underway, so repeated
	// raid_update messages do not re-join.
	joined atomic.Bool
}

// TryJoin claims the join. The first caller gets true and owns the join
// call; everyone after gets false.
func (r *Raid) TryJoin() bool {
	return r.joined.CompareAndSwap(false, true)
}

// ResetJoin releases a failed join claim so a later update can retry.
func (r *Raid) ResetJoin() {
	r.joined.Store(false)
}

// IsJoined reports whether the raid has been joined.
func (r *Raid) IsJoined() bool {
	return r.joined.Load()
}

// Registry is the raid handle factory.
type Registry struct {
	mu    sync.Mutex
	raids map[string]*entry
}

type entry struct {
	raid *Raid
	refs int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{raids: make(map[string]*entry)}
}

// GetOrCreate returns the shared handle for a raid id, creating it on first
// request. Each call takes a reference that must be paired with Release.
func (r *Registry) GetOrCreate(id, targetLogin string) *Raid {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.raids[id]; ok {
		e.refs++
		return e.raid
	}

	e := &entry{
		raid: &Raid{ID: id, TargetLogin: targetLogin},
		refs: 1,
	}
	r.raids[id] = e
	return e.raid
}

// Release drops one reference to a raid id, removing the entry when the
// last holder lets go. Releasing an unknown id is a no-op.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.raids[id]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(r.raids, id)
	}
}

// Len returns the number of active raids.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.raids)
}
