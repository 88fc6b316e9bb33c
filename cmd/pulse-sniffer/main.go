//go:build rp2040

// pulse-sniffer captures pulse trains from a demodulating IR receiver on
// GP15 and streams them as text lines over UART0, one burst per line:
//
//	burst n=67: 9012 -4489 571 -563 ...
//
// Positive durations are line-high, negative line-low, in microseconds.
package main

import (
	"strconv"
	"time"

	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"pulsecode-go/services/pulse"
	"pulsecode-go/types"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("sniffer boot")

	uart := uartx.UART0
	_ = uart.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})

	rx, err := pulse.NewRx(types.RxChannelConfig{
		Pin:        15,
		NumSymbols: 128,
		MinNs:      2500, // TSOP-style demodulators glitch below ~2.5 us
		MaxNs:      20_000_000,
		Filter:     types.SoftFilter{MinLen: 4},
	})
	if err != nil {
		println("rx:", err.Error())
		return
	}

	ready := make(chan struct{}, 1)
	rx.SetOnData(func() {
		select {
		case ready <- struct{}{}:
		default:
		}
	})

	if err := rx.ReadPulses(); err != nil {
		println("arm:", err.Error())
		return
	}
	println("capturing on GP15")

	line := make([]byte, 0, 512)
	for range ready {
		for {
			pulses, ok := rx.GetData()
			if !ok {
				break
			}
			line = formatBurst(line[:0], pulses)
			_, _ = uart.Write(line)
		}
	}
}

func formatBurst(dst []byte, pulses []int32) []byte {
	dst = append(dst, "burst n="...)
	dst = strconv.AppendInt(dst, int64(len(pulses)), 10)
	dst = append(dst, ':')
	for _, p := range pulses {
		dst = append(dst, ' ')
		dst = strconv.AppendInt(dst, int64(p), 10)
	}
	return append(dst, '\r', '\n')
}
