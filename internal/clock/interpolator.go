// Package clock turns the server's bursty, discrete tick observations
// into a smoothly advancing display tick with a measured tick rate.
package clock

import (
	"sync"
	"time"
)

// sampleCap bounds the rate-measurement window.
const sampleCap = 10

// maxExtrapolation caps how far past the last observation the display
// tick may run, so a stalled server cannot make the clock run away.
const maxExtrapolation = time.Second

type sample struct {
	tick uint64
	at   time.Time
}

// Interpolator owns a fixed-capacity ring of (tick, wallTime) samples
// and an anchor at the newest one. Safe for concurrent use; the render
// side calls Sample every frame while the stream side calls Observe.
type Interpolator struct {
	mu sync.Mutex

	samples [sampleCap]sample
	head    int // next write position
	count   int

	anchor sample
	rate   float64 // ticks per second over the retained window

	nominal float64
	paused  bool
}

// NewInterpolator takes the nominal tick rate reported out of Rate until
// the stream has proven a real one. It never drives extrapolation.
func NewInterpolator(nominalRate float64) *Interpolator {
	return &Interpolator{nominal: nominalRate}
}

// Observe records a server tick observation. Repeats of the current
// anchor tick are ignored; only distinct ticks advance the window.
func (ip *Interpolator) Observe(tick uint64, now time.Time) {
	ip.mu.Lock()
	defer ip.mu.Unlock()

	if ip.count > 0 && tick == ip.anchor.tick {
		return
	}
	s := sample{tick: tick, at: now}
	ip.samples[ip.head] = s
	ip.head = (ip.head + 1) % sampleCap
	if ip.count < sampleCap {
		ip.count++
	}
	ip.anchor = s

	if ip.count >= 2 {
		oldest := ip.samples[(ip.head-ip.count+sampleCap)%sampleCap]
		dt := s.at.Sub(oldest.at).Seconds()
		if dt > 0 {
			// Endpoint slope over the window, not a regression; good
			// enough for animation and cheap to keep current.
			ip.rate = float64(s.tick-oldest.tick) / dt
		}
	}
}

// SetPaused freezes the display tick at the anchor. The pause signal
// comes from the surrounding UI, which owns the control endpoints.
func (ip *Interpolator) SetPaused(paused bool) {
	ip.mu.Lock()
	ip.paused = paused
	ip.mu.Unlock()
}

// Sample returns the display tick for the given wall time. Before two
// distinct samples exist there is no proven rate, so the clock holds at
// the anchor rather than faking advancement right after connecting.
func (ip *Interpolator) Sample(now time.Time) float64 {
	ip.mu.Lock()
	defer ip.mu.Unlock()

	if ip.paused || ip.count < 2 {
		return float64(ip.anchor.tick)
	}
	elapsed := now.Sub(ip.anchor.at)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > maxExtrapolation {
		elapsed = maxExtrapolation
	}
	return float64(ip.anchor.tick) + ip.rate*elapsed.Seconds()
}

// Rate returns the measured tick rate, falling back to the nominal rate
// before two samples exist.
func (ip *Interpolator) Rate() float64 {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	if ip.count < 2 {
		return ip.nominal
	}
	return ip.rate
}

// Reset drops all samples, the anchor and the measured rate; used when
// the connection is lost and continuity can no longer be trusted.
func (ip *Interpolator) Reset() {
	ip.mu.Lock()
	ip.head = 0
	ip.count = 0
	ip.anchor = sample{}
	ip.rate = 0
	ip.mu.Unlock()
}
