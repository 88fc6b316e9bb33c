// services/pulse/tx_test.go
package pulse

import (
	"strings"
	"testing"
	"time"

	"pulsecode-go/errcode"
	"pulsecode-go/services/pulse/internal/platform"
	"pulsecode-go/services/pulse/internal/pulsecore"
	"pulsecode-go/types"
)

// 80 MHz / 80 = 1 MHz resolution: one tick per microsecond.
func validTxCfg() types.TxChannelConfig {
	return types.TxChannelConfig{Pin: 4, NumSymbols: 64, ClockDiv: 80}
}

func newTestTx(t *testing.T, cfg types.TxChannelConfig) (*TxChannel, *platform.SimTx) {
	t.Helper()
	var sim *platform.SimTx
	ch, err := newTx(cfg, func(ec pulsecore.TxEngineConfig) (pulsecore.TxEngine, error) {
		sim = platform.NewSimTx(ec, nil)
		return sim, nil
	}, pulsecore.DirectEnabler)
	if err != nil {
		t.Fatalf("newTx: %v", err)
	}
	t.Cleanup(ch.Deinit)
	return ch, sim
}

func TestNewTxValidation(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*types.TxChannelConfig)
	}{
		{"odd capacity", func(c *types.TxChannelConfig) { c.NumSymbols = 63 }},
		{"tiny capacity", func(c *types.TxChannelConfig) { c.NumSymbols = 10 }},
		{"zero clock div", func(c *types.TxChannelConfig) { c.ClockDiv = 0 }},
		{"zero carrier freq", func(c *types.TxChannelConfig) {
			c.Carrier = &types.Carrier{FreqHz: 0, DutyPercent: 50}
		}},
		{"duty over 100", func(c *types.TxChannelConfig) {
			c.Carrier = &types.Carrier{FreqHz: 38000, DutyPercent: 101}
		}},
	}
	for _, tc := range cases {
		cfg := validTxCfg()
		tc.mut(&cfg)
		if _, err := NewTx(cfg); errcode.Of(err) != errcode.InvalidParams {
			t.Errorf("%s: want invalid_params, got %v", tc.name, err)
		}
	}

	ch, err := NewTx(validTxCfg())
	if err != nil {
		t.Fatalf("capacity 64 must be accepted: %v", err)
	}
	ch.Deinit()
}

func TestWaitDoneObservesDraining(t *testing.T) {
	ch, _ := newTestTx(t, validTxCfg())

	// 5000 ticks at 1 MHz = 5 ms on the wire.
	if err := ch.Transmit(types.TransmitPlan{Durations: []int32{2500, 2500}}); err != nil {
		t.Fatalf("transmit: %v", err)
	}
	if ch.WaitDone(0) {
		t.Fatal("WaitDone(0) must report busy while the signal is in flight")
	}
	if !ch.WaitDone(time.Second) {
		t.Fatal("transmission never drained")
	}
	if !ch.WaitDone(0) {
		t.Fatal("WaitDone(0) must report idle after draining")
	}
}

func TestTransmitSerializesAgainstItself(t *testing.T) {
	ch, sim := newTestTx(t, validTxCfg())

	start := time.Now()
	if err := ch.Transmit(types.TransmitPlan{Durations: []int32{2000}}); err != nil {
		t.Fatalf("first transmit: %v", err)
	}
	// Must not touch the encode buffer until the 2 ms signal drains.
	if err := ch.Transmit(types.TransmitPlan{Durations: []int32{10}}); err != nil {
		t.Fatalf("second transmit: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 2*time.Millisecond {
		t.Fatalf("second transmit returned after %v, before the first drained", elapsed)
	}
	if sim.EncoderResets() != 2 {
		t.Fatalf("encoder resets = %d, want one per transmission", sim.EncoderResets())
	}
}

func TestTransmitRejectsBadPlans(t *testing.T) {
	ch, _ := newTestTx(t, validTxCfg())

	if err := ch.Transmit(types.TransmitPlan{}); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("empty plan: got %v", err)
	}
	err := ch.Transmit(types.TransmitPlan{Durations: []int32{1, 2}, Levels: []bool{true}})
	if errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("length mismatch: got %v", err)
	}
}

func TestDeinitIdempotent(t *testing.T) {
	ch, _ := newTestTx(t, validTxCfg())
	ch.Deinit()
	ch.Deinit() // must not panic or error

	if err := ch.Transmit(types.TransmitPlan{Durations: []int32{1}}); errcode.Of(err) != errcode.ChannelReleased {
		t.Fatalf("transmit on released channel: got %v", err)
	}
	if !ch.WaitDone(0) {
		t.Fatal("released channel must report idle")
	}
}

func TestTxAccessors(t *testing.T) {
	ch, _ := newTestTx(t, validTxCfg())
	if ch.SourceFreq() != 80_000_000 {
		t.Fatalf("source freq = %d", ch.SourceFreq())
	}
	if ch.ClockDiv() != 80 {
		t.Fatalf("clock div = %d", ch.ClockDiv())
	}
	if !strings.Contains(ch.String(), "pin=4") {
		t.Fatalf("String() = %q", ch.String())
	}
}
