package clock

import (
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSample_HoldsBeforeTwoDistinctSamples(t *testing.T) {
	ip := NewInterpolator(10)
	if got := ip.Sample(t0); got != 0 {
		t.Fatalf("empty interpolator sample = %v, want 0", got)
	}

	ip.Observe(100, t0)
	if got := ip.Sample(t0.Add(5 * time.Second)); got != 100 {
		t.Fatalf("single-sample clock advanced: got %v, want 100", got)
	}
}

func TestObserve_IgnoresRepeatedAnchorTick(t *testing.T) {
	ip := NewInterpolator(10)
	ip.Observe(100, t0)
	ip.Observe(100, t0.Add(time.Second))
	// Still one distinct sample, so no proven rate.
	if got := ip.Sample(t0.Add(2 * time.Second)); got != 100 {
		t.Fatalf("repeat observation unlocked interpolation: got %v", got)
	}
}

func TestSample_InterpolatesAtMeasuredRate(t *testing.T) {
	ip := NewInterpolator(10)
	ip.Observe(100, t0)
	ip.Observe(110, t0.Add(time.Second)) // 10 ticks/s

	got := ip.Sample(t0.Add(1500 * time.Millisecond))
	if math.Abs(got-115) > 1e-9 {
		t.Fatalf("sample = %v, want 115", got)
	}
	if r := ip.Rate(); math.Abs(r-10) > 1e-9 {
		t.Fatalf("rate = %v, want 10", r)
	}
}

func TestSample_ExtrapolationCappedAtOneSecond(t *testing.T) {
	ip := NewInterpolator(10)
	ip.Observe(100, t0)
	ip.Observe(110, t0.Add(time.Second))

	// Server stalls for 2s; the clock may run at most 1s past the anchor.
	got := ip.Sample(t0.Add(3 * time.Second))
	if math.Abs(got-120) > 1e-9 {
		t.Fatalf("stalled sample = %v, want capped at 120", got)
	}
}

func TestSample_ClockNeverRunsBackward(t *testing.T) {
	ip := NewInterpolator(10)
	ip.Observe(100, t0)
	ip.Observe(110, t0.Add(time.Second))
	if got := ip.Sample(t0.Add(500 * time.Millisecond)); got != 110 {
		t.Fatalf("sample before anchor = %v, want clamp to anchor 110", got)
	}
}

func TestSetPaused_FreezesAtAnchor(t *testing.T) {
	ip := NewInterpolator(10)
	ip.Observe(100, t0)
	ip.Observe(110, t0.Add(time.Second))

	ip.SetPaused(true)
	if got := ip.Sample(t0.Add(1500 * time.Millisecond)); got != 110 {
		t.Fatalf("paused sample = %v, want anchor 110", got)
	}
	ip.SetPaused(false)
	if got := ip.Sample(t0.Add(1500 * time.Millisecond)); math.Abs(got-115) > 1e-9 {
		t.Fatalf("unpaused sample = %v, want 115", got)
	}
}

func TestRate_NominalFallbackThenMeasured(t *testing.T) {
	ip := NewInterpolator(4)
	if r := ip.Rate(); r != 4 {
		t.Fatalf("rate before samples = %v, want nominal 4", r)
	}
	ip.Observe(100, t0)
	if r := ip.Rate(); r != 4 {
		t.Fatalf("rate with one sample = %v, want nominal 4", r)
	}
	ip.Observe(102, t0.Add(time.Second))
	if r := ip.Rate(); math.Abs(r-2) > 1e-9 {
		t.Fatalf("measured rate = %v, want 2", r)
	}
}

func TestRate_WindowEvictsOldSamples(t *testing.T) {
	ip := NewInterpolator(10)
	// Two slow early samples, then a fast steady run long enough to push
	// the slow ones out of the ten-sample window.
	ip.Observe(0, t0)
	ip.Observe(1, t0.Add(10*time.Second))
	for i := uint64(2); i <= 11; i++ {
		ip.Observe(i, t0.Add(10*time.Second).Add(time.Duration(i-1)*100*time.Millisecond))
	}
	if r := ip.Rate(); math.Abs(r-10) > 1e-6 {
		t.Fatalf("rate after eviction = %v, want 10 over the retained window", r)
	}
}

func TestReset_DropsEverything(t *testing.T) {
	ip := NewInterpolator(7)
	ip.Observe(100, t0)
	ip.Observe(110, t0.Add(time.Second))
	ip.Reset()

	if got := ip.Sample(t0.Add(2 * time.Second)); got != 0 {
		t.Fatalf("sample after reset = %v, want 0", got)
	}
	if r := ip.Rate(); r != 7 {
		t.Fatalf("rate after reset = %v, want nominal 7", r)
	}
}
