package sse

import (
	"testing"
	"time"
)

func TestBroadcastDeliversToAllClients(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	alice := NewClient("1")
	bob := NewClient("2")
	hub.Register(alice)
	hub.Register(bob)

	event := NewEvent(EventPaymentDetected, map[string]string{"url": "https://pay.example"})
	hub.Broadcast(event)

	for _, client := range []*Client{alice, bob} {
		select {
		case got := <-client.Ch:
			if got.Type != EventPaymentDetected {
				t.Fatalf("unexpected event type %q", got.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("client %s did not receive the event", client.UserID)
		}
	}
}

func TestSendToUserTargetsOneClient(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	alice := NewClient("1")
	bob := NewClient("2")
	hub.Register(alice)
	hub.Register(bob)

	hub.SendToUser("1", NewEvent(EventSessionEnded, map[string]int64{"session_id": 9}))

	select {
	case <-alice.Ch:
	case <-time.After(time.Second):
		t.Fatal("targeted client did not receive the event")
	}

	select {
	case <-bob.Ch:
		t.Fatal("event leaked to another user")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReconnectDisplacesPreviousClient(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	old := NewClient("1")
	hub.Register(old)

	replacement := NewClient("1")
	hub.Register(replacement)

	select {
	case <-old.Done:
	case <-time.After(time.Second):
		t.Fatal("displaced client was not closed")
	}

	if hub.ConnectedCount() != 1 {
		t.Fatalf("expected 1 connected client, got %d", hub.ConnectedCount())
	}
}

func TestSinceReplaysMissedEvents(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	first := NewEvent(EventSessionStarted, nil)
	second := NewEvent(EventPaymentDetected, nil)
	hub.Broadcast(first)
	hub.Broadcast(second)

	replay := hub.Since(first.ID)
	if len(replay) != 1 {
		t.Fatalf("expected 1 replayed event, got %d", len(replay))
	}
	if replay[0].ID != second.ID {
		t.Fatalf("expected event %s, got %s", second.ID, replay[0].ID)
	}

	all := hub.Since("")
	if len(all) < 2 {
		t.Fatalf("expected full replay, got %d events", len(all))
	}
}

func TestSlowClientDisconnectedAfterRepeatedOverflow(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	slow := NewClient("1")
	hub.Register(slow)

	// Fill the buffer, then overflow past the backpressure limit without a
	// reader on the other end.
	for i := 0; i < cap(slow.Ch)+backpressureFullLimit; i++ {
		hub.Broadcast(NewEvent(EventPaymentDetected, nil))
	}

	select {
	case <-slow.Done:
	case <-time.After(time.Second):
		t.Fatal("slow client was not disconnected")
	}
	if hub.ConnectedCount() != 0 {
		t.Fatalf("expected 0 connected clients, got %d", hub.ConnectedCount())
	}
}

func TestRingBufferEvictsOldest(t *testing.T) {
	rb := NewRingBuffer(3)

	events := make([]Event, 4)
	for i := range events {
		events[i] = NewEvent(EventHeartbeat, nil)
		rb.Push(events[i])
	}

	replay := rb.Since("")
	if len(replay) != 3 {
		t.Fatalf("expected capacity-bound replay of 3, got %d", len(replay))
	}
	if replay[0].ID != events[1].ID {
		t.Fatalf("oldest event not evicted: got %s, want %s", replay[0].ID, events[1].ID)
	}
}
