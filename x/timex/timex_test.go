package timex

import (
	"testing"
	"time"
)

func TestPeriodFromHz(t *testing.T) {
	if got := PeriodFromHz(1_000_000); got != 1000 {
		t.Fatalf("1 MHz period = %d ns, want 1000", got)
	}
	if got := PeriodFromHz(80_000_000); got != 12 {
		t.Fatalf("80 MHz period = %d ns, want 12", got)
	}
	if got := PeriodFromHz(0); got != 1_000_000_000 {
		t.Fatalf("zero frequency period = %d ns, want 1s", got)
	}
}

func TestDurationOfTicks(t *testing.T) {
	if got := DurationOfTicks(450, 1_000_000); got != 450*time.Microsecond {
		t.Fatalf("450 ticks at 1 MHz = %v, want 450us", got)
	}
	if got := DurationOfTicks(0, 1_000_000); got != 0 {
		t.Fatalf("0 ticks = %v, want 0", got)
	}
}
