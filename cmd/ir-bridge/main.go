//go:build rp2040

// ir-bridge receives NEC remote-control frames on GP26 and replays them on
// an IR LED driven from GP16, acting as a range extender. Decoding is done
// by the irremote driver; the outgoing frame is rebuilt as a raw pulse
// train and sent through a 38 kHz carrier-modulated transmit channel.
package main

import (
	"time"

	"machine"

	"tinygo.org/x/drivers/irremote"

	"pulsecode-go/services/pulse"
	"pulsecode-go/types"
)

// NEC timing in microseconds (1 MHz channel ticks).
const (
	necLeadMark    = 9000
	necLeadSpace   = 4500
	necRepeatSpace = 2250
	necBitMark     = 560
	necZeroSpace   = 560
	necOneSpace    = 1690
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("ir-bridge boot")

	tx, err := pulse.NewTx(types.TxChannelConfig{
		Pin:        16,
		NumSymbols: 64,
		ClockDiv:   80, // 1 us per tick
		Carrier:    &types.Carrier{FreqHz: 38000, DutyPercent: 33, ActiveLevel: true},
	})
	if err != nil {
		println("tx:", err.Error())
		return
	}
	println(tx.String())

	frames := make(chan irremote.Data, 4)
	ir := irremote.NewReceiver(machine.GP26)
	ir.Configure()
	ir.SetCommandHandler(func(data irremote.Data) {
		select {
		case frames <- data:
		default: // drop when the replay side is behind
		}
	})

	println("bridging GP26 -> GP16")
	for data := range frames {
		var plan types.TransmitPlan
		if data.Flags&irremote.DataFlagIsRepeat != 0 {
			plan = repeatPlan()
		} else {
			plan = framePlan(data.Code)
		}
		if err := tx.Transmit(plan); err != nil {
			println("transmit:", err.Error())
			continue
		}
		println("replayed code", data.Code, "addr", data.Address, "cmd", data.Command)
	}
}

// framePlan rebuilds a full NEC frame: leader, 32 data bits LSB first,
// trailing mark.
func framePlan(code uint32) types.TransmitPlan {
	d := make([]int32, 0, 2+64+1)
	d = append(d, necLeadMark, necLeadSpace)
	for bit := 0; bit < 32; bit++ {
		d = append(d, necBitMark)
		if code&(1<<bit) != 0 {
			d = append(d, necOneSpace)
		} else {
			d = append(d, necZeroSpace)
		}
	}
	d = append(d, necBitMark)
	return types.TransmitPlan{Durations: d, Initial: true}
}

func repeatPlan() types.TransmitPlan {
	return types.TransmitPlan{
		Durations: []int32{necLeadMark, necRepeatSpace, necBitMark},
		Initial:   true,
	}
}
