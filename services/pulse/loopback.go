// services/pulse/loopback.go
//go:build !tinygo

package pulse

import (
	"pulsecode-go/services/pulse/internal/platform"
	"pulsecode-go/services/pulse/internal/pulsecore"
	"pulsecode-go/types"
)

// NewLoopback builds a transmit/receive pair whose simulated engines are
// wired back-to-back: whatever the TX channel sends arrives at the RX
// channel once it has drained, rescaled between the two channels' clock
// resolutions. Host-only; used by the demo and by integration tests.
func NewLoopback(txCfg types.TxChannelConfig, rxCfg types.RxChannelConfig) (*TxChannel, *RxChannel, error) {
	var sink func([]pulsecore.Symbol)

	var simTx *platform.SimTx
	tx, err := newTx(txCfg, func(ec pulsecore.TxEngineConfig) (pulsecore.TxEngine, error) {
		simTx = platform.NewSimTx(ec, func(s []pulsecore.Symbol) {
			if sink != nil {
				sink(s)
			}
		})
		return simTx, nil
	}, pulsecore.DirectEnabler)
	if err != nil {
		return nil, nil, err
	}

	rx, err := newRx(rxCfg, func(ec pulsecore.RxEngineConfig, done pulsecore.CaptureDone) (pulsecore.RxEngine, error) {
		simRx := platform.NewSimRx(ec, done)
		txRes := pulsecore.SourceFreqHz / uint32(txCfg.ClockDiv)
		rxRes := ec.ResolutionHz
		sink = func(s []pulsecore.Symbol) {
			simRx.Inject(rescale(s, txRes, rxRes))
		}
		return simRx, nil
	}, pulsecore.DirectEnabler, nil)
	if err != nil {
		tx.Deinit()
		return nil, nil, err
	}
	return tx, rx, nil
}

// rescale converts symbol durations from one tick rate to another.
func rescale(symbols []pulsecore.Symbol, fromHz, toHz uint32) []pulsecore.Symbol {
	if fromHz == toHz {
		return symbols
	}
	out := make([]pulsecore.Symbol, len(symbols))
	conv := func(d uint16) uint16 {
		t := uint64(d) * uint64(toHz) / uint64(fromHz)
		if t > pulsecore.PulseMax {
			t = pulsecore.PulseMax
		}
		return uint16(t)
	}
	for i, s := range symbols {
		out[i] = pulsecore.MakeSymbol(conv(s.Duration0()), s.Level0(), conv(s.Duration1()), s.Level1())
	}
	return out
}
