//go:build !tinygo

// pulse-demo exercises a transmit/receive pair wired back-to-back on the
// host: an NEC-style frame goes out the TX channel and the decoded pulse
// train is printed when it arrives on the RX side.
package main

import (
	"time"

	"pulsecode-go/services/pulse"
	"pulsecode-go/types"
)

func main() {
	println("pulse-demo: loopback at 1 MHz")

	tx, rx, err := pulse.NewLoopback(
		types.TxChannelConfig{Pin: 4, NumSymbols: 64, ClockDiv: 80},
		types.RxChannelConfig{Pin: 5, NumSymbols: 128, MinNs: 1000, MaxNs: 20_000_000},
	)
	if err != nil {
		println("loopback:", err.Error())
		return
	}
	defer tx.Deinit()
	defer rx.Deinit()

	println(tx.String())
	println(rx.String())

	if err := rx.ReadPulses(); err != nil {
		println("arm:", err.Error())
		return
	}

	// NEC leader plus the first few bits of a frame, in microsecond ticks.
	plan := types.TransmitPlan{
		Durations: []int32{9000, 4500, 560, 560, 560, 1690, 560, 560, 560, 1690, 560},
		Initial:   true,
	}
	if err := tx.Transmit(plan); err != nil {
		println("transmit:", err.Error())
		return
	}
	println("transmit queued, waiting for drain")
	tx.WaitDone(-1)

	deadline := time.Now().Add(2 * time.Second)
	for !rx.IsReady() {
		if time.Now().After(deadline) {
			println("no burst arrived")
			return
		}
		time.Sleep(time.Millisecond)
	}

	pulses, _ := rx.GetData()
	println("burst of", len(pulses), "pulses:")
	for _, p := range pulses {
		if p >= 0 {
			println("  high", p, "us")
		} else {
			println("  low ", -p, "us")
		}
	}
}
