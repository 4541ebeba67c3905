package websocket

import (
	"testing"
)

func TestSessionTrySend(t *testing.T) {
	s := NewSession("s1", nil)

	if !s.TrySend([]byte("hello")) {
		t.Fatal("TrySend should accept while open")
	}
	if len(s.SendQueue) != 1 {
		t.Errorf("expected 1 queued frame, got %d", len(s.SendQueue))
	}
}

func TestSessionTrySendAfterClose(t *testing.T) {
	s := NewSession("s1", nil)
	s.Close()

	if s.TrySend([]byte("hello")) {
		t.Error("TrySend should refuse after close")
	}

	select {
	case <-s.Done():
	default:
		t.Error("done channel should be closed")
	}
}

func TestSessionCloseIdempotent(t *testing.T) {
	s := NewSession("s1", nil)
	s.Close()
	s.Close() // must not panic on double close
	s.CloseWithReason(4000, "session_replaced")
}

func TestSessionBackpressureOverflow(t *testing.T) {
	s := NewSession("s1", nil)

	for i := 0; i < SendQueueSize; i++ {
		if !s.TrySend([]byte("x")) {
			t.Fatalf("queue should accept frame %d", i)
		}
	}

	// Queue full with no writer draining: the connection is dropped.
	if s.TrySend([]byte("overflow")) {
		t.Error("overflow TrySend should fail")
	}
	select {
	case <-s.Done():
	default:
		t.Error("session should be closed after overflow")
	}
}
