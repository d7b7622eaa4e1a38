package presence

import "sync"

// Handle is the live-connection endpoint stored for an online user. Deliver
// must not block; it reports false when the payload could not be queued.
type Handle interface {
	Deliver(payload []byte) bool
	Close()
}

// Registry maps online user ids to their live connection. It is owned by the
// server process and injected into everything that needs presence lookups.
// One handle per user: a reconnect displaces the previous connection.
type Registry struct {
	mu    sync.RWMutex
	conns map[int64]Handle
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[int64]Handle),
	}
}

// Register stores h as the connection for userID and returns the handle it
// displaced, if any, so the caller can shut the old connection down.
func (r *Registry) Register(userID int64, h Handle) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.conns[userID]
	r.conns[userID] = h
	return prev
}

// Unregister removes userID's entry only while h is still the registered
// handle. A late disconnect from a displaced connection must not evict the
// connection that replaced it.
func (r *Registry) Unregister(userID int64, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.conns[userID]; ok && cur == h {
		delete(r.conns, userID)
	}
}

func (r *Registry) Lookup(userID int64) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.conns[userID]
	return h, ok
}

func (r *Registry) Online() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Clear drops every entry and closes the handles. Called at shutdown.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, h := range r.conns {
		h.Close()
		delete(r.conns, id)
	}
}
