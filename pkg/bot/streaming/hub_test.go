package streaming

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func newTestClient(h *Hub, buffer int) *Client {
	c := &Client{
		hub:    h,
		outbox: make(chan []byte, buffer),
		topics: make(map[EventType]bool, len(allEventTypes)),
	}
	for _, t := range allEventTypes {
		c.topics[t] = true
	}
	h.attach(c)
	return c
}

func TestFanOutRespectsSubscriptions(t *testing.T) {
	h := NewHub()
	subscribed := newTestClient(h, 4)
	quiet := newTestClient(h, 4)
	quiet.setTopics([]string{string(EventTypePlan)}, false)

	h.fanOut(Event{Type: EventTypePlan, Timestamp: time.Now(), Data: "plan"})

	select {
	case payload := <-subscribed.outbox:
		var ev Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			t.Fatalf("payload is not an event: %v", err)
		}
		if ev.Type != EventTypePlan {
			t.Errorf("event type = %s, want %s", ev.Type, EventTypePlan)
		}
	default:
		t.Fatal("subscribed client received nothing")
	}

	select {
	case <-quiet.outbox:
		t.Error("unsubscribed client received a plan event")
	default:
	}
}

func TestFanOutDropsStalledClients(t *testing.T) {
	h := NewHub()
	stalled := newTestClient(h, 1)
	stalled.outbox <- []byte("{}") // buffer already full

	h.fanOut(Event{Type: EventTypeStatus, Timestamp: time.Now()})

	if got := h.ClientCount(); got != 0 {
		t.Errorf("ClientCount() = %d, want 0 after dropping the stalled client", got)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancellation")
	}

	if _, ok := <-c.outbox; ok {
		t.Error("client outbox still open after shutdown")
	}
	if h.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after shutdown, want 0", h.ClientCount())
	}
}
