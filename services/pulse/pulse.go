// services/pulse/pulse.go

// Package pulse drives pulse-width-encoded signal channels: transmit
// channels turn pulse plans into timed line transitions (optionally keyed
// onto a PWM carrier), receive channels capture bursts of line transitions
// into decoded, filtered pulse sequences. Channels are owned values bound
// to one pin each; TX and RX channels on different pins are independent.
package pulse

import (
	"time"

	"pulsecode-go/types"
)

// Transmitter is the transmit capability of a channel.
type Transmitter interface {
	Transmit(plan types.TransmitPlan) error
	WaitDone(timeout time.Duration) bool
	SetLoop(enabled bool)
	Deinit()
}

// Receiver is the capture capability of a channel.
type Receiver interface {
	ReadPulses() error
	ReadPulsesOnce() error
	GetData() ([]int32, bool)
	StopReadPulses() bool
	IsReady() bool
	Deinit()
}

var (
	_ Transmitter = (*TxChannel)(nil)
	_ Receiver    = (*RxChannel)(nil)
)
