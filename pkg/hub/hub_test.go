package hub

import (
	"testing"
	"time"
)

func TestHub_BroadcastReachesClient(t *testing.T) {
	h := New("test", nil)
	go h.Run()
	defer h.Stop()

	client := &Client{hub: h, send: make(chan []byte, 64)}
	h.register <- client

	deadline := time.Now().Add(time.Second)
	for h.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if h.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", h.ClientCount())
	}

	if err := h.BroadcastJSON(map[string]string{"state": "idle"}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}

	select {
	case msg := <-client.send:
		if string(msg) != `{"state":"idle"}` {
			t.Errorf("message = %s", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("broadcast did not reach the client")
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	h := New("test", nil)
	go h.Run()
	defer h.Stop()

	client := &Client{hub: h, send: make(chan []byte, 64)}
	h.register <- client
	h.unregister <- client

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("send channel delivered a message, want closed")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed after unregister")
	}

	if h.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after unregister, want 0", h.ClientCount())
	}
}

func TestHub_RegisterWithoutRunDoesNotBlock(t *testing.T) {
	// The hub's loop was never started; registration must fail fast
	// instead of hanging the websocket handler.
	h := New("test", nil)

	if c := NewClient(h, nil); c != nil {
		t.Error("NewClient on an idle hub = non-nil, want nil")
	}
}

func TestHub_RegisterAfterStop(t *testing.T) {
	h := New("test", nil)
	go h.Run()
	h.Stop()

	deadline := time.Now().Add(time.Second)
	for h.isRunning() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if c := NewClient(h, nil); c != nil {
		t.Error("NewClient after Stop = non-nil, want nil")
	}

	// Stop is idempotent.
	h.Stop()
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	h := New("test", nil)
	go h.Run()
	defer h.Stop()

	// Unbuffered send channel with no reader: the first broadcast
	// cannot be queued.
	client := &Client{hub: h, send: make(chan []byte)}
	h.register <- client

	deadline := time.Now().Add(time.Second)
	for h.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	h.Broadcast([]byte("update"))

	for h.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if h.ClientCount() != 0 {
		t.Error("slow client was not dropped")
	}
}
