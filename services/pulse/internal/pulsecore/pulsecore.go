// services/pulse/internal/pulsecore/pulsecore.go
package pulsecore

import (
	"time"

	"pulsecode-go/types"
)

// Hardware limits shared by both channel directions.
const (
	// PulseMax is the largest duration one symbol half can carry (15 bits).
	PulseMax = 32767

	// SourceFreqHz is the peripheral reference clock.
	SourceFreqHz = 80_000_000

	// MinCaptureSymbols is the smallest legal capture buffer.
	MinCaptureSymbols = 64

	// MaxRangeMinNs is the largest hardware acceptance minimum: the
	// min-width gate is an 8-bit tick register clocked at SourceFreqHz,
	// 255 ticks / 80 MHz = 3187 ns.
	MaxRangeMinNs = 255 * 1_000_000_000 / SourceFreqHz
)

// Symbol is the peripheral's native unit: two timed pulses packed into one
// 32-bit word. Bit layout: duration0[14:0] level0[15] duration1[30:16]
// level1[31].
type Symbol uint32

// MakeSymbol packs two pulses. Durations are truncated to 15 bits; keeping
// them within PulseMax is the caller's contract.
func MakeSymbol(d0 uint16, l0 bool, d1 uint16, l1 bool) Symbol {
	s := Symbol(d0 & PulseMax)
	if l0 {
		s |= 1 << 15
	}
	s |= Symbol(d1&PulseMax) << 16
	if l1 {
		s |= 1 << 31
	}
	return s
}

func (s Symbol) Duration0() uint16 { return uint16(s & PulseMax) }
func (s Symbol) Level0() bool      { return s&(1<<15) != 0 }
func (s Symbol) Duration1() uint16 { return uint16((s >> 16) & PulseMax) }
func (s Symbol) Level1() bool      { return s&(1<<31) != 0 }

// HasSentinel reports whether the second half is the unpaired-pulse marker
// (duration 0, level low). A real trailing zero-duration low pulse is
// indistinguishable from the marker; see the codec package.
func (s Symbol) HasSentinel() bool { return s.Duration1() == 0 && !s.Level1() }

// -----------------------------------------------------------------------------
// Engine contracts. A TxEngine/RxEngine pair wraps one hardware channel on
// one pin; providers live in internal/platform.
// -----------------------------------------------------------------------------

// TxEngineConfig fixes a transmit channel's hardware parameters.
type TxEngineConfig struct {
	Pin          int
	MemSymbols   int
	ResolutionHz uint32
	IdleLevel    bool
	Carrier      *types.Carrier
}

// RxEngineConfig fixes a receive channel's hardware parameters, including
// the hardware-level acceptance window: pulses narrower than MinNs are
// never delivered to software, and a quiet line longer than MaxNs ends a
// burst.
type RxEngineConfig struct {
	Pin          int
	MemSymbols   int
	ResolutionHz uint32
	MinNs        uint32
	MaxNs        uint32
}

// TxFire carries the per-transmission hardware parameters.
type TxFire struct {
	// Loop of -1 repeats the buffer until the channel is disabled;
	// 0 is single shot.
	Loop int
	// EOTLevel is held on the line once transmission drains.
	EOTLevel bool
}

// TxEngine is the transmit side of one hardware channel. Engines are
// constructed disabled; Enable is run through the channel's Enabler so the
// interrupt handler lands on the designated execution context.
type TxEngine interface {
	// Enable makes the channel operational. Called exactly once, via an
	// Enabler.
	Enable() error
	// ResetEncoder clears any stateful hardware encoder before a new
	// symbol buffer is queued.
	ResetEncoder() error
	// Transmit queues the symbol buffer. It must not block for the
	// duration of the signal.
	Transmit(symbols []Symbol, fire TxFire) error
	// WaitDone blocks until the channel is idle, up to timeout.
	// A negative timeout waits forever. Returns true once idle.
	WaitDone(timeout time.Duration) bool
	// Close disables the channel, then releases it. Idempotent.
	Close() error
}

// CaptureDone is invoked by an RxEngine when a burst completes. It runs in
// interrupt context: implementations must not allocate or block, and must
// bound their work by the capture buffer capacity. n is the number of
// symbols written into the buffer passed to Receive.
type CaptureDone func(n int)

// RxEngine is the receive side of one hardware channel. The hardware-level
// acceptance window (min/max pulse width) is fixed at engine construction.
type RxEngine interface {
	// Enable makes the channel operational. Called exactly once, via an
	// Enabler.
	Enable() error
	// Receive arms a capture into buf. The engine writes symbols directly
	// into buf and fires the CaptureDone callback registered at
	// construction. Safe to call from the callback itself (re-arm).
	Receive(buf []Symbol) error
	// Stop disarms a pending capture, if any.
	Stop() error
	// Close disables the channel (no further callbacks fire), then
	// releases it. Idempotent.
	Close() error
}

// -----------------------------------------------------------------------------
// External collaborators.
// -----------------------------------------------------------------------------

// Enabler runs a channel's enable step on the execution context designated
// for its interrupt handler. Which core or thread that is stays the
// enabler's concern.
type Enabler interface {
	Enable(enable func() error) error
}

// EnablerFunc adapts a function to the Enabler interface.
type EnablerFunc func(enable func() error) error

func (f EnablerFunc) Enable(enable func() error) error { return f(enable) }

// DirectEnabler enables in the calling context; suitable wherever interrupt
// affinity does not matter (host, single-core targets).
var DirectEnabler Enabler = EnablerFunc(func(enable func() error) error { return enable() })

// Scheduler runs consumer-visible work outside interrupt context.
// Schedule must be callable from interrupt context: non-blocking, and
// returning false when the queue is full (the work is then dropped).
type Scheduler interface {
	Schedule(fn func()) bool
}
