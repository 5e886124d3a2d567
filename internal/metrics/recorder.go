package metrics

import "time"

// PhaseOutcome enumerates phase result categories for counters.
type PhaseOutcome string

const (
	PhaseSucceeded PhaseOutcome = "succeeded"
	PhaseFailed    PhaseOutcome = "failed"
)

// Recorder defines observability hooks for resource admission, tasks and
// phases. All methods must be safe to call concurrently.
type Recorder interface {
	// ObserveAcquire is called once a holder has been admitted to a resource,
	// with the time it spent blocked and the holder count after admission.
	ObserveAcquire(resource string, waited time.Duration, holders int)
	// ObserveRelease is called after a holder gave back its slot.
	ObserveRelease(resource string, holders int)
	ObserveTaskDuration(d time.Duration)
	ObservePhase(d time.Duration, outcome PhaseOutcome)
	IncSinkError(sink string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveAcquire(string, time.Duration, int) {}
func (NoopRecorder) ObserveRelease(string, int) {}
func (NoopRecorder) ObserveTaskDuration(time.Duration) {}
func (NoopRecorder) ObservePhase(time.Duration, PhaseOutcome) {}
func (NoopRecorder) IncSinkError(string) {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
