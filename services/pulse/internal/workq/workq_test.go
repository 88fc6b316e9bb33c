package workq

import (
	"context"
	"testing"
	"time"
)

func TestRunsInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(8)
	w.Start(ctx)

	out := make(chan int, 3)
	for i := 1; i <= 3; i++ {
		i := i
		if !w.Schedule(func() { out <- i }) {
			t.Fatalf("schedule %d rejected", i)
		}
	}
	for want := 1; want <= 3; want++ {
		select {
		case got := <-out:
			if got != want {
				t.Fatalf("order broken: got %d want %d", got, want)
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for deferred work")
		}
	}
}

func TestFullQueueDropsAndCounts(t *testing.T) {
	// Not started: nothing drains the queue.
	w := New(2)
	block := func() {}
	if !w.Schedule(block) || !w.Schedule(block) {
		t.Fatal("queue should accept up to its depth")
	}
	if w.Schedule(block) {
		t.Fatal("overfull queue must reject")
	}
	if w.Drops() != 1 {
		t.Fatalf("drops = %d, want 1", w.Drops())
	}
}

func TestStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := New(2)
	w.Start(ctx)
	cancel()
	select {
	case <-w.Stopped():
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}
