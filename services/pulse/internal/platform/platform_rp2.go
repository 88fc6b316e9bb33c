// services/pulse/internal/platform/platform_rp2.go
//go:build rp2040 || rp2350

package platform

import (
	"errors"
	"machine"
	"sync/atomic"
	"time"

	"pulsecode-go/services/pulse/internal/pulsecore"
	"pulsecode-go/x/timex"
)

// The RP2 family has no dedicated pulse peripheral, so both directions are
// bit-banged: transmit keys the line (or a PWM carrier) with timed sleeps,
// receive timestamps pin edges from the interrupt handler. Timing fidelity
// is whatever the scheduler gives us; good enough for IR-class signals.

var errBadPin = errors.New("pin out of range")

// NewTxEngine returns the default transmit engine for this platform.
func NewTxEngine(cfg pulsecore.TxEngineConfig) (pulsecore.TxEngine, error) {
	if cfg.Pin < 0 || cfg.Pin > 28 {
		return nil, errBadPin
	}
	if cfg.ResolutionHz == 0 {
		cfg.ResolutionHz = 1_000_000
	}
	return &rp2Tx{cfg: cfg, pin: machine.Pin(cfg.Pin)}, nil
}

// NewRxEngine returns the default receive engine for this platform.
func NewRxEngine(cfg pulsecore.RxEngineConfig, done pulsecore.CaptureDone) (pulsecore.RxEngine, error) {
	if cfg.Pin < 0 || cfg.Pin > 28 {
		return nil, errBadPin
	}
	if cfg.ResolutionHz == 0 {
		cfg.ResolutionHz = 1_000_000
	}
	return &rp2Rx{cfg: cfg, pin: machine.Pin(cfg.Pin), done: done}, nil
}

// DefaultEnabler: pin interrupts land on the core that registered them.
func DefaultEnabler() pulsecore.Enabler { return pulsecore.DirectEnabler }

// ---- PWM plumbing for the carrier ----

// Local interface to avoid depending on an unexported concrete type in machine.
type pwmCtrl interface {
	Configure(cfg machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// Select the controller for a pin's slice (RP2: slice = (pin >> 1) & 7).
func pwmGroupForPin(pin machine.Pin) pwmCtrl {
	switch (pin >> 1) & 7 {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}

// -----------------------------------------------------------------------------
// Transmit: timed level keying, optionally through a PWM carrier
// -----------------------------------------------------------------------------

type rp2Tx struct {
	cfg  pulsecore.TxEngineConfig
	pin  machine.Pin
	pwm  pwmCtrl
	ch   uint8
	duty uint32

	busy   atomic.Bool
	closed atomic.Bool
	idleCh chan struct{}
}

func (t *rp2Tx) Enable() error {
	if c := t.cfg.Carrier; c != nil {
		t.pin.Configure(machine.PinConfig{Mode: machine.PinPWM})
		grp := pwmGroupForPin(t.pin)
		if err := grp.Configure(machine.PWMConfig{Period: timex.PeriodFromHz(c.FreqHz)}); err != nil {
			return err
		}
		ch, err := grp.Channel(t.pin)
		if err != nil {
			return err
		}
		t.pwm = grp
		t.ch = ch
		t.duty = grp.Top() * uint32(c.DutyPercent) / 100
		grp.Set(ch, 0)
	} else {
		t.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
		t.pin.Set(t.cfg.IdleLevel)
	}
	done := make(chan struct{})
	close(done)
	t.idleCh = done
	return nil
}

// No stateful encoder in the bit-bang path.
func (t *rp2Tx) ResetEncoder() error { return nil }

func (t *rp2Tx) setLevel(level bool) {
	if c := t.cfg.Carrier; c != nil {
		if level == c.ActiveLevel {
			t.pwm.Set(t.ch, t.duty)
		} else {
			t.pwm.Set(t.ch, 0)
		}
		return
	}
	t.pin.Set(level)
}

func (t *rp2Tx) Transmit(symbols []pulsecore.Symbol, fire pulsecore.TxFire) error {
	if t.closed.Load() {
		return errEngineClosed
	}
	if !t.busy.CompareAndSwap(false, true) {
		return errors.New("transmission in flight")
	}
	ch := make(chan struct{})
	t.idleCh = ch

	go func() {
		defer func() {
			t.setLevel(fire.EOTLevel)
			t.busy.Store(false)
			close(ch)
		}()
		for {
			for _, s := range symbols {
				t.emit(s.Duration0(), s.Level0())
				if s.Duration1() != 0 || s.Level1() {
					t.emit(s.Duration1(), s.Level1())
				}
			}
			if fire.Loop >= 0 || t.closed.Load() {
				return
			}
		}
	}()
	return nil
}

func (t *rp2Tx) emit(ticks uint16, level bool) {
	if ticks == 0 {
		return
	}
	t.setLevel(level)
	time.Sleep(timex.DurationOfTicks(uint64(ticks), t.cfg.ResolutionHz))
}

func (t *rp2Tx) WaitDone(timeout time.Duration) bool {
	ch := t.idleCh
	if ch == nil {
		return true
	}
	if timeout < 0 {
		<-ch
		return true
	}
	if timeout == 0 {
		return !t.busy.Load()
	}
	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (t *rp2Tx) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	// A looping transmission observes the flag at the next wrap.
	return nil
}

// -----------------------------------------------------------------------------
// Receive: edge timestamping from the pin interrupt
// -----------------------------------------------------------------------------

type rp2Rx struct {
	cfg  pulsecore.RxEngineConfig
	pin  machine.Pin
	done pulsecore.CaptureDone

	buf      []pulsecore.Symbol
	nPulses  int
	lastEdge time.Time
	inBurst  bool

	armed  atomic.Bool
	closed atomic.Bool
}

func (r *rp2Rx) Enable() error {
	r.pin.Configure(machine.PinConfig{Mode: machine.PinInput})
	return r.pin.SetInterrupt(machine.PinRising|machine.PinFalling, r.onEdge)
}

func (r *rp2Rx) Receive(buf []pulsecore.Symbol) error {
	if r.closed.Load() {
		return errEngineClosed
	}
	r.buf = buf
	r.nPulses = 0
	r.inBurst = false
	r.armed.Store(true)
	return nil
}

func (r *rp2Rx) Stop() error {
	r.armed.Store(false)
	return nil
}

func (r *rp2Rx) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.armed.Store(false)
	return r.pin.SetInterrupt(machine.PinRising|machine.PinFalling, nil)
}

// onEdge runs in interrupt context: fixed work, no allocation.
func (r *rp2Rx) onEdge(pin machine.Pin) {
	now := time.Now()
	if !r.armed.Load() {
		r.lastEdge = now
		return
	}
	width := now.Sub(r.lastEdge)
	r.lastEdge = now
	ns := uint64(width.Nanoseconds())

	// The level that just ended is the opposite of the line's new state.
	level := !pin.Get()

	if ns >= uint64(r.cfg.MaxNs) {
		// Quiet gap: what came before (if anything) was a whole burst.
		r.finish()
		r.inBurst = true
		return
	}
	if !r.inBurst {
		return
	}
	if ns < uint64(r.cfg.MinNs) {
		return // below the acceptance window: glitch, never delivered
	}

	ticks := ns / timex.PeriodFromHz(r.cfg.ResolutionHz)
	if ticks > pulsecore.PulseMax {
		ticks = pulsecore.PulseMax
	}
	r.record(uint16(ticks), level)
}

func (r *rp2Rx) record(d uint16, level bool) {
	i := r.nPulses / 2
	if i >= len(r.buf) {
		r.finish() // buffer full: deliver what we have
		return
	}
	if r.nPulses%2 == 0 {
		r.buf[i] = pulsecore.MakeSymbol(d, level, 0, false)
	} else {
		s := r.buf[i]
		r.buf[i] = pulsecore.MakeSymbol(s.Duration0(), s.Level0(), d, level)
	}
	r.nPulses++
}

func (r *rp2Rx) finish() {
	if r.nPulses == 0 {
		return
	}
	n := (r.nPulses + 1) / 2
	r.nPulses = 0
	r.inBurst = false
	r.armed.Store(false) // consumer re-arms via Receive
	if r.done != nil {
		r.done(n)
	}
}
