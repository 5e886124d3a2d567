// Package construction schedules the building of a tower: floors are
// built strictly one after another, and the apartments of a floor are built
// concurrently while contending for the shared facilities in the resource
// registry.
//
// The package emits events and never renders them; see package journal.
package construction

import (
	"log/slog"
	"time"

	"git.home.luguber.info/inful/towerbuild/internal/events"
	"git.home.luguber.info/inful/towerbuild/internal/metrics"
	"git.home.luguber.info/inful/towerbuild/internal/resource"
	"git.home.luguber.info/inful/towerbuild/internal/worktime"
)

// DefaultApartments is the number of apartments built concurrently per floor.
const DefaultApartments = 4

// Env carries the collaborators shared by every floor and apartment of a
// run. Zero fields are filled with defaults by the constructors.
type Env struct {
	RunID      string
	Registry   *resource.Registry
	Apartments int
	Time       worktime.Source
	Emitter    events.Emitter
	Recorder   metrics.Recorder
	Logger     *slog.Logger
	Runners    RunnerFactory
}

func (e Env) withDefaults() Env {
	if e.Apartments <= 0 {
		e.Apartments = DefaultApartments
	}
	if e.Time == nil {
		e.Time = worktime.NewUniform(100, 500, time.Millisecond)
	}
	if e.Emitter == nil {
		e.Emitter = events.Discard
	}
	e.Recorder = metrics.OrNoop(e.Recorder)
	if e.Logger == nil {
		e.Logger = slog.Default()
	}
	if e.Runners == nil {
		e.Runners = NewWorkerGroup
	}
	return e
}
