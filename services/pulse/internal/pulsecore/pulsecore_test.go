package pulsecore

import "testing"

func TestSymbolPacking(t *testing.T) {
	s := MakeSymbol(100, false, 200, true)
	if s.Duration0() != 100 || s.Level0() {
		t.Fatalf("half 0 mismatch: %d %v", s.Duration0(), s.Level0())
	}
	if s.Duration1() != 200 || !s.Level1() {
		t.Fatalf("half 1 mismatch: %d %v", s.Duration1(), s.Level1())
	}
}

func TestSymbolTruncatesTo15Bits(t *testing.T) {
	s := MakeSymbol(0xFFFF, true, 0xFFFF, true)
	if s.Duration0() != PulseMax || s.Duration1() != PulseMax {
		t.Fatalf("durations not truncated: %d %d", s.Duration0(), s.Duration1())
	}
	if !s.Level0() || !s.Level1() {
		t.Fatal("levels lost in truncation")
	}
}

func TestSentinel(t *testing.T) {
	if !MakeSymbol(150, false, 0, false).HasSentinel() {
		t.Fatal("sentinel not recognised")
	}
	if MakeSymbol(150, false, 0, true).HasSentinel() {
		t.Fatal("zero-duration high half is not the sentinel")
	}
	if MakeSymbol(150, false, 1, false).HasSentinel() {
		t.Fatal("nonzero duration is not the sentinel")
	}
}

func TestRangeMinCap(t *testing.T) {
	// 255 ticks of the 80 MHz reference clock.
	if MaxRangeMinNs != 3187 {
		t.Fatalf("MaxRangeMinNs = %d", MaxRangeMinNs)
	}
}
