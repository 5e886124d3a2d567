// Package worktime supplies simulated work durations and wall-clock time to
// the construction simulator.
//
// A Source is the only way construction code reads the clock or waits, so
// tests can substitute a constant duration or a fake clock.
package worktime

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Source supplies bounded, non-negative work durations and timestamps.
type Source interface {
	// WorkDuration returns how long the next simulated work step takes.
	WorkDuration() time.Duration
	Now() time.Time
	Sleep(d time.Duration)
}

// Uniform draws work durations uniformly from [Min, Max] units. It is safe
// for concurrent use.
type Uniform struct {
	clock clockwork.Clock
	min   int
	max   int
	unit  time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Uniform source.
type Option func(*Uniform)

// WithClock replaces the real clock, typically with clockwork.NewFakeClock.
func WithClock(c clockwork.Clock) Option {
	return func(u *Uniform) { u.clock = c }
}

// WithSeed makes the duration sequence reproducible.
func WithSeed(seed uint64) Option {
	return func(u *Uniform) { u.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// NewUniform returns a source producing durations of minUnits..maxUnits
// times unit. Bounds are clamped so the range is never negative or inverted.
func NewUniform(minUnits, maxUnits int, unit time.Duration, opts ...Option) *Uniform {
	minUnits = max(minUnits, 0)
	maxUnits = max(maxUnits, minUnits)
	u := &Uniform{
		clock: clockwork.NewRealClock(),
		min:   minUnits,
		max:   maxUnits,
		unit:  max(unit, 0),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.rng == nil {
		now := uint64(u.clock.Now().UnixNano())
		u.rng = rand.New(rand.NewPCG(now, now>>1))
	}
	return u
}

// WorkDuration implements Source.
func (u *Uniform) WorkDuration() time.Duration {
	u.mu.Lock()
	n := u.min + u.rng.IntN(u.max-u.min+1)
	u.mu.Unlock()
	return time.Duration(n) * u.unit
}

// Bounds returns the smallest and largest duration the source can produce.
func (u *Uniform) Bounds() (time.Duration, time.Duration) {
	return time.Duration(u.min) * u.unit, time.Duration(u.max) * u.unit
}

func (u *Uniform) Now() time.Time         { return u.clock.Now() }
func (u *Uniform) Sleep(d time.Duration) { u.clock.Sleep(d) }

// Fixed returns the same duration for every step.
type Fixed struct {
	Duration time.Duration
	Clock    clockwork.Clock // nil means the real clock
}

// WorkDuration implements Source.
func (f Fixed) WorkDuration() time.Duration { return f.Duration }

func (f Fixed) Now() time.Time {
	if f.Clock == nil {
		return time.Now()
	}
	return f.Clock.Now()
}

func (f Fixed) Sleep(d time.Duration) {
	if f.Clock == nil {
		time.Sleep(d)
		return
	}
	f.Clock.Sleep(d)
}
