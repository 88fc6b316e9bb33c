// services/pulse/internal/mailbox/mailbox.go

// Package mailbox provides the single-slot handoff between a channel's
// interrupt-side producer and its ordinary-context consumer: a one-slot
// SPSC channel with an atomic occupied flag.
//
// Discipline: the producer writes the payload and only then sets the flag;
// the consumer checks the flag before reading and clears it only after the
// read is finished. The flag's store/load ordering gives the required
// happens-before edge, so no lock is needed.
package mailbox

import "sync/atomic"

type Mailbox struct {
	buf      []int32
	n        int
	occupied atomic.Bool
}

// New sizes the slot for bursts of up to maxPulses pulses. The buffer is
// allocated once, here; the producer path never allocates.
func New(maxPulses int) *Mailbox {
	return &Mailbox{buf: make([]int32, maxPulses)}
}

// Offer commits one decoded burst. Producer side only. Returns false and
// leaves the slot untouched when the previous burst has not been drained
// (backpressure drop) or when the burst does not fit.
func (m *Mailbox) Offer(pulses []int32) bool {
	if m.occupied.Load() {
		return false
	}
	if len(pulses) > len(m.buf) {
		return false
	}
	m.n = copy(m.buf, pulses)
	m.occupied.Store(true)
	return true
}

// Take drains the slot, appending the burst to dst. Consumer side only.
// Reading is destructive: each burst can be taken exactly once.
func (m *Mailbox) Take(dst []int32) ([]int32, bool) {
	if !m.occupied.Load() {
		return dst, false
	}
	dst = append(dst, m.buf[:m.n]...)
	m.occupied.Store(false)
	return dst, true
}

// Ready reports whether an uncommitted burst is waiting. This is the
// readiness predicate for external multiplexed waiting.
func (m *Mailbox) Ready() bool { return m.occupied.Load() }

// Clear discards any pending burst. Consumer side only.
func (m *Mailbox) Clear() { m.occupied.Store(false) }

// Cap returns the largest burst the slot can hold.
func (m *Mailbox) Cap() int { return len(m.buf) }
