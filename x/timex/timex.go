// Package timex holds the small clock helpers shared by the bus payloads
// and the pulse engines' tick arithmetic.
package timex

import "time"

// NowMs is the timestamp used in bus payloads: Unix milliseconds.
func NowMs() int64 { return time.Now().UnixMilli() }

// PeriodFromHz returns the period of freqHz in nanoseconds. A zero
// frequency is coerced to 1 Hz rather than dividing by zero.
func PeriodFromHz(freqHz uint32) uint64 {
	if freqHz == 0 {
		freqHz = 1
	}
	return uint64(1_000_000_000 / uint64(freqHz))
}

// DurationOfTicks converts a tick count at freqHz into wall time.
func DurationOfTicks(ticks uint64, freqHz uint32) time.Duration {
	return time.Duration(ticks * PeriodFromHz(freqHz))
}
