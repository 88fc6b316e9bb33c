package types

// ---- Channel summary / state (published retained on the bus) ----

type ChannelState struct {
	Level  string `json:"level"`  // "idle", "armed", "busy", "released"
	Status string `json:"status"` // freeform short code
	TS     int64  `json:"ts_ms"`
}

// Kind distinguishes the two channel directions.
type Kind string

const (
	KindTx Kind = "tx"
	KindRx Kind = "rx"
)

// Info envelope each channel exposes (retained).
type Info struct {
	SchemaVersion int    `json:"schema_version"`
	Driver        string `json:"driver"`
	Detail        any    `json:"detail,omitempty"`
}

// ---- Carrier modulation ----

// Carrier superimposes a fixed-frequency PWM on the transmitted signal.
// Applied once at channel construction; not adjustable per transmit.
type Carrier struct {
	FreqHz      uint32 `json:"freqHz"`      // must be >0
	DutyPercent uint8  `json:"dutyPercent"` // 0..100
	ActiveLevel bool   `json:"activeLevel"` // level the carrier modulates
}

// ---- Transmit plan (three accepted input shapes) ----

// TransmitPlan describes one pulse train to send.
//
//	Durations set, Levels nil:  per-pulse durations, level alternates
//	                            after every pulse starting from Initial.
//	Durations nil, Levels set:  constant duration Fixed, per-pulse levels.
//	Both set:                   matched durations and levels (equal length).
//
// Durations are in channel clock ticks, 0..32767 per pulse.
type TransmitPlan struct {
	Durations []int32 `json:"durations,omitempty"`
	Fixed     int32   `json:"fixed,omitempty"`
	Levels    []bool  `json:"levels,omitempty"`
	Initial   bool    `json:"initial,omitempty"`
}

// ---- Soft filter ----

// SoftFilter is the software acceptance window applied to a whole captured
// burst, atomically. The zero value filters nothing: MaxLen==0 and
// MaxValue==0 mean "unbounded" on that axis.
type SoftFilter struct {
	MinLen   int   `json:"minLen,omitempty"`
	MaxLen   int   `json:"maxLen,omitempty"`
	MinValue int32 `json:"minValue,omitempty"`
	MaxValue int32 `json:"maxValue,omitempty"`
}

// ---- Channel construction ----

// TxChannelConfig configures a transmit channel.
type TxChannelConfig struct {
	Pin        int      `json:"pin"`
	NumSymbols int      `json:"numSymbols"` // even, >=64
	ClockDiv   uint8    `json:"clockDiv"`   // 1..255; resolution = source/clockDiv
	IdleLevel  bool     `json:"idleLevel"`  // line level after transmission
	Carrier    *Carrier `json:"carrier,omitempty"`
}

// RxChannelConfig configures a receive channel.
type RxChannelConfig struct {
	Pin          int        `json:"pin"`
	NumSymbols   int        `json:"numSymbols"`   // even, >=64
	ResolutionHz uint32     `json:"resolutionHz"` // 0 => 1 MHz default
	MinNs        uint32     `json:"minNs"`        // hardware gate, must fit 8-bit tick register
	MaxNs        uint32     `json:"maxNs"`        // idle threshold, > MinNs
	Filter       SoftFilter `json:"filter,omitempty"`
}

// ---- Bus payloads ----

// TxInfo is published under pulse/channel/.../info as Info.Detail.
type TxInfo struct {
	Pin        int    `json:"pin"`
	SourceFreq uint32 `json:"sourceFreq"`
	ClockDiv   uint8  `json:"clockDiv"`
	IdleLevel  bool   `json:"idleLevel"`
	Carrier    bool   `json:"carrier"`
}

// RxInfo is published under pulse/channel/.../info as Info.Detail.
type RxInfo struct {
	Pin          int    `json:"pin"`
	ResolutionHz uint32 `json:"resolutionHz"`
	MinNs        uint32 `json:"minNs"`
	MaxNs        uint32 `json:"maxNs"`
}

// Burst is one decoded capture, published non-retained on .../burst.
type Burst struct {
	Pulses []int32 `json:"pulses"`
	TS     int64   `json:"ts_ms"`
}

// Control payloads.
type TransmitReq struct {
	Plan TransmitPlan `json:"plan"`
}

type SetLoopReq struct {
	Enabled bool `json:"enabled"`
}

// Generic replies.
type OKReply struct {
	OK bool `json:"ok"`
}
type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
