// services/pulse/tx.go
package pulse

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"pulsecode-go/errcode"
	"pulsecode-go/services/pulse/internal/codec"
	"pulsecode-go/services/pulse/internal/platform"
	"pulsecode-go/services/pulse/internal/pulsecore"
	"pulsecode-go/types"
	"pulsecode-go/x/mathx"
)

// TxChannel owns one transmit channel on one pin. At most one transmission
// is outstanding per channel: Transmit waits for any prior signal to drain
// fully before touching the encode buffer, so in-flight signals never tear.
type TxChannel struct {
	engine pulsecore.TxEngine

	pin       int
	clockDiv  uint8
	idleLevel bool
	carrier   bool

	mu    sync.Mutex // serialises Transmit against itself
	items []pulsecore.Symbol

	loop     atomic.Bool
	released atomic.Bool
}

// NewTx validates cfg, allocates a hardware channel and enables it. On any
// engine failure the channel is left unconstructed; nothing is retained.
func NewTx(cfg types.TxChannelConfig) (*TxChannel, error) {
	return newTx(cfg, platform.NewTxEngine, platform.DefaultEnabler())
}

func newTx(
	cfg types.TxChannelConfig,
	newEngine func(pulsecore.TxEngineConfig) (pulsecore.TxEngine, error),
	enabler pulsecore.Enabler,
) (*TxChannel, error) {
	if err := validateCommon("tx_new", cfg.NumSymbols); err != nil {
		return nil, err
	}
	if cfg.ClockDiv == 0 {
		return nil, errcode.Invalid("tx_new", "clockDiv must be between 1 and 255")
	}
	if c := cfg.Carrier; c != nil {
		if c.FreqHz == 0 {
			return nil, errcode.Invalid("tx_new", "carrier frequency must be >0")
		}
		if !mathx.Between(c.DutyPercent, 0, 100) {
			return nil, errcode.Invalid("tx_new", "carrier duty must be 0..100")
		}
	}

	eng, err := newEngine(pulsecore.TxEngineConfig{
		Pin:          cfg.Pin,
		MemSymbols:   cfg.NumSymbols,
		ResolutionHz: pulsecore.SourceFreqHz / uint32(cfg.ClockDiv),
		IdleLevel:    cfg.IdleLevel,
		Carrier:      cfg.Carrier,
	})
	if err != nil {
		return nil, errcode.HW("tx_new", err)
	}
	if err := enabler.Enable(eng.Enable); err != nil {
		eng.Close()
		return nil, errcode.HW("tx_enable", err)
	}

	return &TxChannel{
		engine:    eng,
		pin:       cfg.Pin,
		clockDiv:  cfg.ClockDiv,
		idleLevel: cfg.IdleLevel,
		carrier:   cfg.Carrier != nil,
	}, nil
}

// Transmit encodes plan and issues it. It blocks until any previous
// transmission has drained, then returns as soon as the new one is queued;
// use WaitDone to observe completion. The encode buffer is reused across
// calls and only ever grows.
func (c *TxChannel) Transmit(plan types.TransmitPlan) error {
	if c.released.Load() {
		return errcode.ChannelReleased
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.engine.WaitDone(-1)

	items, err := codec.Encode(c.items[:0], plan)
	if err != nil {
		return err
	}
	c.items = items

	if err := c.engine.ResetEncoder(); err != nil {
		return errcode.HW("transmit", err)
	}
	fire := pulsecore.TxFire{EOTLevel: c.idleLevel}
	if c.loop.Load() {
		fire.Loop = -1
	}
	return errcode.HW("transmit", c.engine.Transmit(c.items, fire))
}

// WaitDone reports whether the channel reached idle within timeout.
// A zero timeout is an immediate check. Timing out is a normal outcome,
// not an error.
func (c *TxChannel) WaitDone(timeout time.Duration) bool {
	if c.released.Load() {
		return true
	}
	return c.engine.WaitDone(timeout)
}

// SetLoop selects whether subsequent transmissions repeat until superseded.
func (c *TxChannel) SetLoop(enabled bool) { c.loop.Store(enabled) }

// SourceFreq returns the peripheral reference clock in Hz.
func (c *TxChannel) SourceFreq() uint32 { return pulsecore.SourceFreqHz }

// ClockDiv returns the configured clock divider.
func (c *TxChannel) ClockDiv() uint8 { return c.clockDiv }

func (c *TxChannel) String() string {
	if c.released.Load() {
		return "TxChannel(released)"
	}
	return fmt.Sprintf("TxChannel(pin=%d, source_freq=%d, clock_div=%d, idle_level=%t)",
		c.pin, uint32(pulsecore.SourceFreqHz), c.clockDiv, c.idleLevel)
}

// Deinit releases the channel. Idempotent: repeat calls are no-ops.
func (c *TxChannel) Deinit() {
	if !c.released.CompareAndSwap(false, true) {
		return
	}
	c.engine.Close()
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

func validateCommon(op string, numSymbols int) error {
	if numSymbols < pulsecore.MinCaptureSymbols || numSymbols%2 == 1 {
		return errcode.Invalid(op, "numSymbols must be even and at least 64")
	}
	return nil
}
