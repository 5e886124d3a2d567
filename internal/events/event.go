// Package events defines the construction event model and the in-process
// plumbing that carries it from the coordination core to the journal.
package events

import (
	"context"
	"fmt"
	"time"
)

// Kind names what happened.
type Kind string

const (
	BuildStarted        Kind = "build.started"
	FoundationStarted   Kind = "foundation.started"
	FoundationCompleted Kind = "foundation.completed"
	PhaseStarted        Kind = "phase.started"
	TaskStarted         Kind = "task.started"
	TaskStep            Kind = "task.step"
	TaskFinished        Kind = "task.finished"
	PhaseCompleted      Kind = "phase.completed"
	BuildCompleted      Kind = "build.completed"
)

// Event is one observable moment of a run. Phase and Unit are zero when the
// event is not scoped to a floor or an apartment.
type Event struct {
	Kind     Kind          `json:"kind"`
	RunID    string        `json:"run_id"`
	Phase    int           `json:"phase,omitempty"`
	Unit     int           `json:"unit,omitempty"`
	Step     string        `json:"step,omitempty"`
	Resource string        `json:"resource,omitempty"`
	Message  string        `json:"message"`
	At       time.Time     `json:"at"`
	Elapsed  time.Duration `json:"elapsed,omitempty"`
}

// Label is the "F.A" identifier of the apartment the event belongs to.
func (e Event) Label() string {
	return fmt.Sprintf("%d.%d", e.Phase, e.Unit)
}

// Emitter accepts events from the coordination core. Implementations must be
// safe for concurrent use and must not block on I/O.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Emitter = EmitterFunc(func(Event) {})

// BusEmitter publishes every event on a Bus. Publish waits only for
// subscribers to accept the event, so subscribers must drain their channel
// without doing I/O (journal.Journal queues before writing). Publish errors
// are handed to OnError; the emitter itself never fails.
type BusEmitter struct {
	Bus     *Bus
	OnError func(Event, error)
}

func (b BusEmitter) Emit(e Event) {
	if err := b.Bus.Publish(context.Background(), e); err != nil && b.OnError != nil {
		b.OnError(e, err)
	}
}
