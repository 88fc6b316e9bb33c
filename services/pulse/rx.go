// services/pulse/rx.go
package pulse

import (
	"context"
	"fmt"
	"sync/atomic"

	"pulsecode-go/errcode"
	"pulsecode-go/services/pulse/internal/codec"
	"pulsecode-go/services/pulse/internal/mailbox"
	"pulsecode-go/services/pulse/internal/platform"
	"pulsecode-go/services/pulse/internal/pulsecore"
	"pulsecode-go/services/pulse/internal/workq"
	"pulsecode-go/types"
	"pulsecode-go/x/mathx"
)

// RxChannel owns one receive channel on one pin.
//
// Lifecycle: Idle → Armed (ReadPulses) → Armed (continuous re-arm) or Idle
// (single-shot) → released (Deinit). The engine's capture-done callback is
// the one code path that runs in interrupt context; it does a bounded copy
// and hands decode, filtering and the mailbox commit to the deferred-work
// scheduler.
type RxChannel struct {
	engine pulsecore.RxEngine
	sched  pulsecore.Scheduler
	mbox   *mailbox.Mailbox

	pin          int
	resolutionHz uint32
	minNs, maxNs uint32
	filter       types.SoftFilter

	capture    []pulsecore.Symbol // hardware writes here
	shadow     []pulsecore.Symbol // interrupt-side copy awaiting decode
	shadowN    int
	shadowSess uint32  // session the shadow copy belongs to
	scratch    []int32 // deferred decode target, preallocated

	pending    atomic.Bool   // shadow handed to deferred work, not yet done
	session    atomic.Uint32 // bumped on every arm; stale captures never commit
	continuous atomic.Bool
	live       atomic.Bool
	released   atomic.Bool

	onData func() // fires in deferred context after each commit
	cancel context.CancelFunc
}

// NewRx validates cfg, allocates a hardware channel with the given
// acceptance window and enables it. On any engine failure the channel is
// left unconstructed; nothing is retained.
func NewRx(cfg types.RxChannelConfig) (*RxChannel, error) {
	return newRx(cfg, platform.NewRxEngine, platform.DefaultEnabler(), nil)
}

// newRx wires explicit collaborators; sched==nil makes the channel own a
// deferred worker.
func newRx(
	cfg types.RxChannelConfig,
	newEngine func(pulsecore.RxEngineConfig, pulsecore.CaptureDone) (pulsecore.RxEngine, error),
	enabler pulsecore.Enabler,
	sched pulsecore.Scheduler,
) (*RxChannel, error) {
	if err := validateCommon("rx_new", cfg.NumSymbols); err != nil {
		return nil, err
	}
	if cfg.MinNs == 0 {
		return nil, errcode.Invalid("rx_new", "minNs must be >0")
	}
	if cfg.MinNs > pulsecore.MaxRangeMinNs {
		return nil, errcode.Invalid("rx_new", "minNs exceeds the 8-bit tick register")
	}
	if cfg.MaxNs <= cfg.MinNs {
		return nil, errcode.Invalid("rx_new", "maxNs must be greater than minNs")
	}
	if err := validateFilter(cfg.Filter); err != nil {
		return nil, err
	}
	if cfg.ResolutionHz == 0 {
		cfg.ResolutionHz = 1_000_000
	}

	c := &RxChannel{
		pin:          cfg.Pin,
		resolutionHz: cfg.ResolutionHz,
		minNs:        cfg.MinNs,
		maxNs:        cfg.MaxNs,
		filter:       cfg.Filter,
		mbox:         mailbox.New(cfg.NumSymbols * 2),
		capture:      make([]pulsecore.Symbol, cfg.NumSymbols),
		shadow:       make([]pulsecore.Symbol, cfg.NumSymbols),
		scratch:      make([]int32, 0, cfg.NumSymbols*2),
	}
	c.live.Store(true)

	if sched == nil {
		sched = c.ownWorker()
	}
	c.sched = sched

	eng, err := newEngine(pulsecore.RxEngineConfig{
		Pin:          cfg.Pin,
		MemSymbols:   cfg.NumSymbols,
		ResolutionHz: cfg.ResolutionHz,
		MinNs:        cfg.MinNs,
		MaxNs:        cfg.MaxNs,
	}, c.onCaptureDone)
	if err != nil {
		c.teardownWorker()
		return nil, errcode.HW("rx_new", err)
	}
	if err := enabler.Enable(eng.Enable); err != nil {
		eng.Close()
		c.teardownWorker()
		return nil, errcode.HW("rx_enable", err)
	}
	c.engine = eng
	return c, nil
}

// validateFilter checks the acceptance window's internal consistency.
// MaxLen==0 and MaxValue==0 mean "unbounded" (the zero value filters
// nothing), so min>max is only an error on an axis whose max is set.
func validateFilter(f types.SoftFilter) error {
	if f.MinLen < 0 || f.MaxLen < 0 || f.MinValue < 0 || f.MaxValue < 0 {
		return errcode.Invalid("rx_new", "filter bounds must be >=0")
	}
	if f.MaxLen != 0 && f.MinLen > f.MaxLen {
		return errcode.Invalid("rx_new", "filter minLen exceeds maxLen")
	}
	if f.MaxValue != 0 && f.MinValue > f.MaxValue {
		return errcode.Invalid("rx_new", "filter minValue exceeds maxValue")
	}
	return nil
}

// SetOnData registers a hook invoked in deferred context each time a burst
// is committed to the mailbox. Set it before arming.
func (c *RxChannel) SetOnData(fn func()) { c.onData = fn }

// ReadPulses discards any undrained burst and arms continuous capture:
// the channel re-arms itself after every burst until StopReadPulses.
func (c *RxChannel) ReadPulses() error { return c.arm(true) }

// ReadPulsesOnce arms a single-shot capture: the channel returns to idle
// after one burst.
func (c *RxChannel) ReadPulsesOnce() error { return c.arm(false) }

func (c *RxChannel) arm(continuous bool) error {
	if c.released.Load() {
		return errcode.ChannelReleased
	}
	// Opening a new session invalidates any capture still in flight from
	// the previous one, drained or not.
	c.session.Add(1)
	c.mbox.Clear()
	c.continuous.Store(continuous)
	return errcode.HW("read_pulses", c.engine.Receive(c.capture))
}

// onCaptureDone is the interrupt-side callback: bounded copy, no
// allocation, no blocking. Decode and filtering happen in deferred work.
func (c *RxChannel) onCaptureDone(n int) {
	if !c.live.Load() {
		return
	}
	// Backpressure: drop the new capture when the consumer has not
	// drained the previous one, or its decode is still pending.
	if !c.mbox.Ready() && c.pending.CompareAndSwap(false, true) {
		n = mathx.Clamp(n, 0, len(c.shadow))
		c.shadowSess = c.session.Load()
		c.shadowN = copy(c.shadow, c.capture[:n])
		if !c.sched.Schedule(c.finishCapture) {
			c.pending.Store(false)
		}
	}
	// Re-arm regardless of the drop/commit outcome to keep the dead
	// window between bursts minimal.
	if c.continuous.Load() {
		_ = c.engine.Receive(c.capture)
	}
}

// finishCapture runs in deferred context: decode, filter atomically over
// the whole burst, commit all-or-nothing. A burst captured before the
// current session opened is discarded here, not committed into it.
func (c *RxChannel) finishCapture() {
	if c.live.Load() && c.shadowSess == c.session.Load() {
		c.scratch = codec.Decode(c.scratch[:0], c.shadow[:c.shadowN])
		if c.accept(c.scratch) && c.mbox.Offer(c.scratch) && c.onData != nil {
			c.onData()
		}
	}
	c.pending.Store(false)
}

func (c *RxChannel) accept(pulses []int32) bool {
	f := c.filter
	if len(pulses) < f.MinLen {
		return false
	}
	if f.MaxLen != 0 && len(pulses) > f.MaxLen {
		return false
	}
	for _, p := range pulses {
		v := mathx.Abs(p)
		if v < f.MinValue {
			return false
		}
		if f.MaxValue != 0 && v > f.MaxValue {
			return false
		}
	}
	return true
}

// GetData drains the mailbox. ok is false when no burst is waiting — a
// normal outcome, not an error. Reading is destructive.
func (c *RxChannel) GetData() (pulses []int32, ok bool) {
	return c.mbox.Take(nil)
}

// IsReady reports whether GetData would return a burst; usable by an
// external multiplexed-wait facility instead of polling GetData.
func (c *RxChannel) IsReady() bool { return c.mbox.Ready() }

// StopReadPulses clears continuous capture and disarms the hardware,
// returning the flag's prior value.
func (c *RxChannel) StopReadPulses() bool {
	prev := c.continuous.Swap(false)
	if !c.released.Load() {
		_ = c.engine.Stop()
	}
	return prev
}

func (c *RxChannel) String() string {
	if c.released.Load() {
		return "RxChannel(released)"
	}
	return fmt.Sprintf("RxChannel(pin=%d, resolution=%d, window=[%dns,%dns])",
		c.pin, c.resolutionHz, c.minNs, c.maxNs)
}

// Deinit releases the channel. Idempotent. The hardware is disabled before
// anything else is dropped, so a pending interrupt can never observe freed
// state; queued deferred work bails out on the liveness flag.
func (c *RxChannel) Deinit() {
	if !c.released.CompareAndSwap(false, true) {
		return
	}
	c.live.Store(false)
	c.continuous.Store(false)
	c.engine.Close()
	c.teardownWorker()
}

func (c *RxChannel) ownWorker() pulsecore.Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	w := workq.New(8)
	w.Start(ctx)
	return w
}

func (c *RxChannel) teardownWorker() {
	if c.cancel != nil {
		c.cancel()
	}
}
