package ws

import "sync"

// Registry maps a user id to their single live channel.
//
// Every mutation happens under the write lock, so a concurrent Register and
// Unregister for the same user cannot leave a stale or duplicate entry.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Channel
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]Channel)}
}

// Register installs ch as the user's session and returns the channel it
// superseded, if any. The caller owns closing the returned channel.
func (r *Registry) Register(userID string, ch Channel) Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.sessions[userID]
	r.sessions[userID] = ch
	if prev == ch {
		return nil
	}
	return prev
}

// Unregister removes the user's session only if it is still ch. It reports
// whether an entry was removed, which is true at most once per registration.
func (r *Registry) Unregister(userID string, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.sessions[userID]
	if !ok || cur != ch {
		return false
	}
	delete(r.sessions, userID)
	return true
}

// Lookup returns the user's live channel.
func (r *Registry) Lookup(userID string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.sessions[userID]
	return ch, ok
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns the registered channels at this instant.
func (r *Registry) Snapshot() []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Channel, 0, len(r.sessions))
	for _, ch := range r.sessions {
		out = append(out, ch)
	}
	return out
}
