package presence

import (
	"log"
	"sync"
)

// Conn is a live connection handle. Handles are compared by session id, never
// by pointer, so a late unregister from a replaced connection cannot evict a
// newer one.
type Conn interface {
	SessionID() string
	TrySend(payload []byte) bool
	CloseWithReason(code int, reason string)
}

// Registry is the process-wide map from user id to the one active connection.
// It is rebuilt empty on every restart; reconnect requires re-authenticating.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// Register inserts or overwrites the mapping for userID. Last-connected-wins:
// a replaced connection is closed. Re-registering the same handle is a no-op.
func (r *Registry) Register(userID string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.conns[userID]; ok && old.SessionID() != c.SessionID() {
		log.Printf("presence: replacing connection user=%s old_sid=%s new_sid=%s",
			userID, old.SessionID(), c.SessionID())
		old.CloseWithReason(4000, "session_replaced")
	}

	r.conns[userID] = c
}

// Resolve returns the active connection for userID, if any.
func (r *Registry) Resolve(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[userID]
	return c, ok
}

// Unregister removes the entry whose stored handle is c. An entry overwritten
// by a newer login is left alone; only the session id decides.
func (r *Registry) Unregister(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, cur := range r.conns {
		if cur.SessionID() == c.SessionID() {
			delete(r.conns, userID)
			return
		}
	}
}

// Online reports the number of registered users.
func (r *Registry) Online() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CloseAll closes every registered connection. Used during shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.conns {
		c.CloseWithReason(1001, "server closing")
	}
}
