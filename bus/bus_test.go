// bus/bus_test.go
package bus

import (
	"testing"
	"time"
)

func recvOne(t *testing.T, sub *Subscription) *Message {
	t.Helper()
	select {
	case m := <-sub.Channel():
		return m
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
		return nil
	}
}

func TestBasicPubSub(t *testing.T) {
	b := New(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(Topic{"config", "pulse"})
	conn.Publish(conn.NewMessage(Topic{"config", "pulse"}, "hello", false))

	if got := recvOne(t, sub); got.Payload.(string) != "hello" {
		t.Errorf("expected payload 'hello', got %v", got.Payload)
	}
}

func TestRetainedMessage(t *testing.T) {
	b := New(2)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(Topic{"pulse", "channel", "ir0", "info"}, "persist", true))
	sub := conn.Subscribe(Topic{"pulse", "channel", "ir0", "info"})

	if got := recvOne(t, sub); got.Payload.(string) != "persist" {
		t.Errorf("expected retained payload 'persist', got %v", got.Payload)
	}
}

func TestRetainedClear(t *testing.T) {
	b := New(2)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(Topic{"pulse", "state"}, "up", true))
	conn.Publish(conn.NewMessage(Topic{"pulse", "state"}, nil, true))

	sub := conn.Subscribe(Topic{"pulse", "state"})
	select {
	case m := <-sub.Channel():
		t.Fatalf("expected no retained replay after clear, got %v", m.Payload)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestWildcardSingleLevel(t *testing.T) {
	b := New(8)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(Topic{"pulse", "channel", Wildcard, "burst"})

	conn.Publish(conn.NewMessage(Topic{"pulse", "channel", "ir0", "burst"}, 1, false))
	conn.Publish(conn.NewMessage(Topic{"pulse", "channel", "rf1", "burst"}, 2, false))
	conn.Publish(conn.NewMessage(Topic{"pulse", "channel", "ir0", "state"}, 3, false))

	got := []int{recvOne(t, sub).Payload.(int), recvOne(t, sub).Payload.(int)}
	if got[0] != 1 || got[1] != 2 {
		t.Fatalf("wildcard delivery mismatch: %v", got)
	}
	select {
	case m := <-sub.Channel():
		t.Fatalf("unexpected extra message: %v", m.Payload)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestWildcardRetainedReplay(t *testing.T) {
	b := New(8)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(Topic{"pulse", "channel", "ir0", "info"}, "a", true))
	conn.Publish(conn.NewMessage(Topic{"pulse", "channel", "rf1", "info"}, "b", true))

	sub := conn.Subscribe(Topic{"pulse", "channel", Wildcard, "info"})
	seen := map[string]bool{}
	seen[recvOne(t, sub).Payload.(string)] = true
	seen[recvOne(t, sub).Payload.(string)] = true
	if !seen["a"] || !seen["b"] {
		t.Fatalf("retained replay through wildcard incomplete: %v", seen)
	}
}

func TestFullQueueDropsOldest(t *testing.T) {
	b := New(1)
	conn := b.NewConnection("test")
	sub := conn.Subscribe(Topic{"t"})

	conn.Publish(conn.NewMessage(Topic{"t"}, 1, false))
	conn.Publish(conn.NewMessage(Topic{"t"}, 2, false))

	if got := recvOne(t, sub); got.Payload.(int) != 2 {
		t.Fatalf("expected newest message to survive, got %v", got.Payload)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New(4)
	conn := b.NewConnection("test")
	sub := conn.Subscribe(Topic{"t"})
	sub.Unsubscribe()

	conn.Publish(conn.NewMessage(Topic{"t"}, 1, false))
	select {
	case m := <-sub.Channel():
		t.Fatalf("received after unsubscribe: %v", m.Payload)
	case <-time.After(20 * time.Millisecond):
	}
}
