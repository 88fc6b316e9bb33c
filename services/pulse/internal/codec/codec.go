// services/pulse/internal/codec/codec.go

// Package codec transcodes between logical pulse sequences and hardware
// symbol words. It is pure: no I/O, no state, no allocation beyond the
// destination slices it is asked to grow.
package codec

import (
	"pulsecode-go/errcode"
	"pulsecode-go/services/pulse/internal/pulsecore"
	"pulsecode-go/types"
)

// Encode packs the pulses described by plan into symbol words, two pulses
// per word, appending to dst and returning the extended slice. dst is
// typically a channel-owned buffer reused across calls so that capacity
// grows monotonically with peak demand.
//
// Durations are clock ticks in 0..PulseMax; anything wider is a caller
// error and is truncated the way the hardware register would truncate it.
// An odd pulse count leaves the final word's second half as the sentinel
// {0, low}.
func Encode(dst []pulsecore.Symbol, plan types.TransmitPlan) ([]pulsecore.Symbol, error) {
	n := len(plan.Durations)
	if plan.Durations != nil && plan.Levels != nil && len(plan.Levels) != n {
		return dst, errcode.Invalid("encode", "durations and levels must have same length")
	}
	if plan.Durations == nil {
		n = len(plan.Levels)
	}
	if n == 0 {
		return dst, errcode.Invalid("encode", "no pulses")
	}

	dur := func(i int) uint16 {
		if plan.Durations != nil {
			return uint16(plan.Durations[i])
		}
		return uint16(plan.Fixed)
	}
	level := func(i int) bool {
		if plan.Levels != nil {
			return plan.Levels[i]
		}
		// Alternate after every pulse, starting from Initial.
		return plan.Initial == (i%2 == 0)
	}

	for i := 0; i < n; i += 2 {
		d0, l0 := dur(i), level(i)
		var d1 uint16
		var l1 bool
		if i+1 < n {
			d1, l1 = dur(i+1), level(i+1)
		}
		dst = append(dst, pulsecore.MakeSymbol(d0, l0, d1, l1))
	}
	return dst, nil
}

// Decode unpacks symbol words into a signed pulse sequence, appending to
// dst: positive magnitudes are high pulses, negative are low. The second
// half of the final word is suppressed when its duration is zero (the
// odd-count sentinel). A genuine trailing zero-duration pulse is therefore
// also suppressed; the encoding cannot tell the two apart.
func Decode(dst []int32, symbols []pulsecore.Symbol) []int32 {
	last := len(symbols) - 1
	for i, s := range symbols {
		dst = append(dst, signed(s.Duration0(), s.Level0()))
		if i == last && s.Duration1() == 0 {
			continue
		}
		dst = append(dst, signed(s.Duration1(), s.Level1()))
	}
	return dst
}

func signed(d uint16, level bool) int32 {
	if level {
		return int32(d)
	}
	return -int32(d)
}

// SymbolCount returns how many words Encode will emit for n pulses.
func SymbolCount(n int) int { return (n + 1) / 2 }
