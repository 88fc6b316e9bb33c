// services/pulse/internal/platform/platform_host.go
//go:build !tinygo

package platform

import (
	"sync"
	"time"

	"pulsecode-go/services/pulse/internal/pulsecore"
	"pulsecode-go/x/timex"
)

// Host builds get simulated engines: transmissions take real wall time
// proportional to their tick content, and captures are injected by test or
// loopback code. The hardware min-width gate is a property of the real
// peripheral; the simulator delivers what it is given.

// NewTxEngine returns the default transmit engine for this platform.
func NewTxEngine(cfg pulsecore.TxEngineConfig) (pulsecore.TxEngine, error) {
	return NewSimTx(cfg, nil), nil
}

// NewRxEngine returns the default receive engine for this platform.
func NewRxEngine(cfg pulsecore.RxEngineConfig, done pulsecore.CaptureDone) (pulsecore.RxEngine, error) {
	return NewSimRx(cfg, done), nil
}

// DefaultEnabler: interrupt affinity is meaningless on the host.
func DefaultEnabler() pulsecore.Enabler { return pulsecore.DirectEnabler }

// -----------------------------------------------------------------------------
// Simulated TX
// -----------------------------------------------------------------------------

// SimTx models the transmit side: Transmit returns immediately and the
// channel stays busy for the signal's real duration. A sink, when set,
// receives the symbol buffer once it has fully drained (loopback wiring).
type SimTx struct {
	mu      sync.Mutex
	cfg     pulsecore.TxEngineConfig
	sink    func([]pulsecore.Symbol)
	done    chan struct{} // closed when idle
	enabled bool
	closed  bool
	resets  int
}

func NewSimTx(cfg pulsecore.TxEngineConfig, sink func([]pulsecore.Symbol)) *SimTx {
	if cfg.ResolutionHz == 0 {
		cfg.ResolutionHz = 1_000_000
	}
	done := make(chan struct{})
	close(done) // born idle
	return &SimTx{cfg: cfg, sink: sink, done: done}
}

// SetSink wires loopback delivery after construction.
func (t *SimTx) SetSink(sink func([]pulsecore.Symbol)) {
	t.mu.Lock()
	t.sink = sink
	t.mu.Unlock()
}

func (t *SimTx) Enable() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errEngineClosed
	}
	t.enabled = true
	return nil
}

func (t *SimTx) ResetEncoder() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errEngineClosed
	}
	t.resets++
	return nil
}

// EncoderResets reports how many times the encoder was reset (test hook).
func (t *SimTx) EncoderResets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resets
}

func (t *SimTx) Transmit(symbols []pulsecore.Symbol, fire pulsecore.TxFire) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errEngineClosed
	}
	if !t.enabled {
		return errNotEnabled
	}

	buf := append([]pulsecore.Symbol(nil), symbols...)
	d := t.signalDuration(buf)
	ch := make(chan struct{})
	t.done = ch
	sink := t.sink

	go func() {
		time.Sleep(d)
		if sink != nil {
			sink(buf)
		}
		if fire.Loop < 0 {
			// Looping holds the channel busy until it is closed;
			// Close unblocks waiters.
			return
		}
		close(ch)
	}()
	return nil
}

func (t *SimTx) signalDuration(symbols []pulsecore.Symbol) time.Duration {
	var ticks uint64
	for _, s := range symbols {
		ticks += uint64(s.Duration0()) + uint64(s.Duration1())
	}
	return timex.DurationOfTicks(ticks, t.cfg.ResolutionHz)
}

func (t *SimTx) WaitDone(timeout time.Duration) bool {
	t.mu.Lock()
	ch := t.done
	t.mu.Unlock()

	if timeout < 0 {
		<-ch
		return true
	}
	if timeout == 0 {
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}
	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (t *SimTx) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	select {
	case <-t.done:
	default:
		close(t.done) // break a pending or looping transmission
	}
	return nil
}

// -----------------------------------------------------------------------------
// Simulated RX
// -----------------------------------------------------------------------------

// SimRx models the receive side: Inject plays the role of the hardware
// completing a capture into the armed buffer and firing the done callback.
type SimRx struct {
	mu      sync.Mutex
	cfg     pulsecore.RxEngineConfig
	done    pulsecore.CaptureDone
	armed   []pulsecore.Symbol // nil when disarmed
	enabled bool
	closed  bool
	missed  uint32 // bursts that arrived while disarmed
}

func NewSimRx(cfg pulsecore.RxEngineConfig, done pulsecore.CaptureDone) *SimRx {
	if cfg.ResolutionHz == 0 {
		cfg.ResolutionHz = 1_000_000
	}
	return &SimRx{cfg: cfg, done: done}
}

func (r *SimRx) Enable() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errEngineClosed
	}
	r.enabled = true
	return nil
}

func (r *SimRx) Receive(buf []pulsecore.Symbol) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errEngineClosed
	}
	if !r.enabled {
		return errNotEnabled
	}
	r.armed = buf
	return nil
}

func (r *SimRx) Stop() error {
	r.mu.Lock()
	r.armed = nil
	r.mu.Unlock()
	return nil
}

func (r *SimRx) Close() error {
	r.mu.Lock()
	r.closed = true
	r.armed = nil
	r.mu.Unlock()
	return nil
}

// Inject simulates one completed hardware capture. Returns false when the
// channel was not armed (the burst is lost, as on real hardware). The done
// callback runs on the caller's goroutine, standing in for the interrupt.
func (r *SimRx) Inject(symbols []pulsecore.Symbol) bool {
	r.mu.Lock()
	if r.closed || r.armed == nil {
		r.missed++
		r.mu.Unlock()
		return false
	}
	buf := r.armed
	r.armed = nil
	n := copy(buf, symbols)
	cb := r.done
	r.mu.Unlock()

	// Outside the lock: the callback may re-arm via Receive.
	cb(n)
	return true
}

// Missed reports bursts that arrived while the channel was disarmed.
func (r *SimRx) Missed() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.missed
}
