package mailbox

import (
	"testing"
	"time"
)

func TestOfferTake(t *testing.T) {
	m := New(8)
	if m.Ready() {
		t.Fatal("fresh mailbox should be empty")
	}
	if !m.Offer([]int32{-100, 200, -150}) {
		t.Fatal("offer into empty slot failed")
	}
	if !m.Ready() {
		t.Fatal("slot should be occupied")
	}
	got, ok := m.Take(nil)
	if !ok || len(got) != 3 || got[0] != -100 || got[1] != 200 || got[2] != -150 {
		t.Fatalf("take returned %v %v", got, ok)
	}
	if _, ok := m.Take(nil); ok {
		t.Fatal("second take must report empty")
	}
}

func TestBackpressureDropsSecondBurst(t *testing.T) {
	m := New(8)
	if !m.Offer([]int32{1, 2}) {
		t.Fatal("first offer failed")
	}
	if m.Offer([]int32{3, 4}) {
		t.Fatal("second offer must be dropped while undrained")
	}
	got, ok := m.Take(nil)
	if !ok || got[0] != 1 || got[1] != 2 {
		t.Fatalf("first burst lost: %v %v", got, ok)
	}
	if _, ok := m.Take(nil); ok {
		t.Fatal("dropped burst reappeared")
	}
}

func TestOversizeBurstRejected(t *testing.T) {
	m := New(2)
	if m.Offer([]int32{1, 2, 3}) {
		t.Fatal("oversize burst must be rejected")
	}
	if m.Ready() {
		t.Fatal("rejected burst must not mark the slot occupied")
	}
}

func TestClear(t *testing.T) {
	m := New(4)
	m.Offer([]int32{5})
	m.Clear()
	if m.Ready() {
		t.Fatal("clear did not empty the slot")
	}
}

// One producer, one consumer, no locks: every burst read must be internally
// consistent (all elements equal to its sequence number).
func TestSPSCHandoffConsistency(t *testing.T) {
	m := New(16)
	done := make(chan struct{})
	const rounds = 1000

	go func() {
		defer close(done)
		burst := make([]int32, 16)
		for seq := int32(1); seq <= rounds; seq++ {
			for i := range burst {
				burst[i] = seq
			}
			for !m.Offer(burst) {
				time.Sleep(time.Microsecond)
			}
		}
	}()

	seen := int32(0)
	deadline := time.Now().Add(5 * time.Second)
	for seen < rounds {
		if time.Now().After(deadline) {
			t.Fatalf("stalled after %d bursts", seen)
		}
		got, ok := m.Take(nil)
		if !ok {
			continue
		}
		if len(got) != 16 {
			t.Fatalf("torn burst length %d", len(got))
		}
		for i, v := range got {
			if v != got[0] {
				t.Fatalf("torn burst at %d: %d != %d", i, v, got[0])
			}
		}
		if got[0] != seen+1 {
			t.Fatalf("burst out of order: got %d after %d", got[0], seen)
		}
		seen = got[0]
	}
	<-done
}
