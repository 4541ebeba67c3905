package presence

import (
	"sync/atomic"
	"testing"
)

type fakeConn struct {
	id     string
	closed atomic.Bool
}

func (f *fakeConn) SessionID() string         { return f.id }
func (f *fakeConn) TrySend(p []byte) bool     { return !f.closed.Load() }
func (f *fakeConn) CloseWithReason(int, string) { f.closed.Store(true) }

func TestRegistry_ConnectionReplacement(t *testing.T) {
	r := NewRegistry()

	c1 := &fakeConn{id: "s1"}
	r.Register("user1", c1)

	if c, ok := r.Resolve("user1"); !ok || c.SessionID() != "s1" {
		t.Fatalf("expected s1, got %v", c)
	}

	// Second login for the same user wins and closes the first connection.
	c2 := &fakeConn{id: "s2"}
	r.Register("user1", c2)

	if !c1.closed.Load() {
		t.Error("old connection s1 should have been closed")
	}
	if c, ok := r.Resolve("user1"); !ok || c.SessionID() != "s2" {
		t.Errorf("expected s2 after replacement, got %v", c)
	}

	// A late disconnect of the stale handle must not evict the new entry.
	r.Unregister(c1)
	if c, ok := r.Resolve("user1"); !ok || c.SessionID() != "s2" {
		t.Errorf("s2 should survive late Unregister(s1), got %v", c)
	}

	r.Unregister(c2)
	if _, ok := r.Resolve("user1"); ok {
		t.Error("expected user1 absent after Unregister(s2)")
	}
}

func TestRegistry_RegisterIdempotent(t *testing.T) {
	r := NewRegistry()

	c := &fakeConn{id: "s1"}
	r.Register("user1", c)
	r.Register("user1", c)

	if c.closed.Load() {
		t.Error("re-registering the same handle must not close it")
	}
	if got, ok := r.Resolve("user1"); !ok || got.SessionID() != "s1" {
		t.Errorf("expected s1, got %v", got)
	}
	if r.Online() != 1 {
		t.Errorf("expected 1 online, got %d", r.Online())
	}
}

func TestRegistry_ResolveAbsent(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Resolve("nobody"); ok {
		t.Error("expected absent")
	}
}

func TestRegistry_CloseAll(t *testing.T) {
	r := NewRegistry()
	c1 := &fakeConn{id: "s1"}
	c2 := &fakeConn{id: "s2"}
	r.Register("a", c1)
	r.Register("b", c2)

	r.CloseAll()
	if !c1.closed.Load() || !c2.closed.Load() {
		t.Error("CloseAll should close every registered connection")
	}
}
