package core

import "testing"

func TestAccumulatorExactRatio(t *testing.T) {
	testCases := []struct {
		rate    uint64
		clockHz uint64
		cycles  int
	}{
		{8_000_000, 12_000_000, 12},
		{8_000_000, 12_000_000, 1_200_000},
		{8_000_000, 8_000_000, 1000},
		{8_000_000, 10_000_000, 10},
		{8_000_000, 10_000_000, 999_995},
		{1_000, 12_000_000, 240_000},
	}

	for _, tc := range testCases {
		a := NewAccumulator(tc.rate, tc.clockHz)
		fires := 0
		for i := 0; i < tc.cycles; i++ {
			if a.Tick() {
				fires++
			}
		}

		// Rational accumulation from an empty fraction yields exactly
		// floor(cycles * rate / clock) ticks over any interval.
		want := int(uint64(tc.cycles) * tc.rate / tc.clockHz)
		if fires != want {
			t.Errorf("%d Hz from %d Hz over %d cycles: %d ticks, want %d",
				tc.rate, tc.clockHz, tc.cycles, fires, want)
		}
	}
}

func TestAccumulatorNoDrift(t *testing.T) {
	// A non-integer ratio must not accumulate rounding error: every
	// window of 3 cycles at 8-from-12 carries exactly 2 ticks.
	a := NewAccumulator(8_000_000, 12_000_000)
	for window := 0; window < 10_000; window++ {
		fires := 0
		for i := 0; i < 3; i++ {
			if a.Tick() {
				fires++
			}
		}
		if fires != 2 {
			t.Fatalf("window %d: %d ticks, want 2", window, fires)
		}
	}
}

func TestAccumulatorReset(t *testing.T) {
	a := NewAccumulator(8_000_000, 12_000_000)
	a.Tick()
	a.Reset()

	// After a reset the first tick fires on the second cycle again.
	if a.Tick() {
		t.Error("tick fired on first cycle after reset")
	}
	if !a.Tick() {
		t.Error("tick missing on second cycle after reset")
	}
}

func TestAccumulatorRejectsFasterRate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for rate above system clock")
		}
	}()
	NewAccumulator(16_000_000, 12_000_000)
}
