package construction

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/towerbuild/internal/events"
	"git.home.luguber.info/inful/towerbuild/internal/resource"
)

// Step is one stage of an apartment. Resource is empty for steps that need
// no shared facility.
type Step struct {
	Name     string
	Message  string
	Resource resource.Name
}

var steps = []Step{
	{Name: "start", Message: "Starting"},
	{Name: "wiring", Message: "Using elevator for wiring", Resource: resource.Elevator},
	{Name: "plumbing", Message: "Plumbing"},
	{Name: "painting", Message: "Painting"},
	{Name: "windows_doors", Message: "Installing windows/doors", Resource: resource.DoorWindowCrew},
	{Name: "multi_crane", Message: "Using one of the multi-cranes", Resource: resource.MultiCrane},
	{Name: "single_crane", Message: "Using single crane", Resource: resource.SingleCrane},
	{Name: "finish", Message: "Finished"},
}

// Steps returns the fixed step sequence every apartment goes through.
func Steps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// TaskReport is what a finished apartment reports back to its floor.
type TaskReport struct {
	Phase   int
	Unit    int
	Started time.Time
	Elapsed time.Duration
}

// Task builds one apartment. It holds at most one resource at a time and
// always releases it before moving on.
type Task struct {
	Phase int
	Unit  int
	env   *Env
}

func (t *Task) String() string { return fmt.Sprintf("apartment %d.%d", t.Phase, t.Unit) }

// Run executes every step in order. It only fails when a resource cannot be
// admitted, which happens once the registry has been closed.
func (t *Task) Run(ctx context.Context) (TaskReport, error) {
	started := t.env.Time.Now()
	rep := TaskReport{Phase: t.Phase, Unit: t.Unit, Started: started}

	for _, s := range steps {
		switch {
		case s.Name == "start":
			t.emit(events.TaskStarted, s, 0)
		case s.Name == "finish":
			rep.Elapsed = t.env.Time.Now().Sub(started)
			t.env.Recorder.ObserveTaskDuration(rep.Elapsed)
			t.emit(events.TaskFinished, s, rep.Elapsed)
		case s.Resource == "":
			t.work(s)
		default:
			pool, ok := t.env.Registry.Pool(s.Resource)
			if !ok {
				return rep, fmt.Errorf("%s: no resource %q", t, s.Resource)
			}
			if err := pool.Hold(ctx, func() { t.work(s) }); err != nil {
				return rep, err
			}
		}
	}
	return rep, nil
}

func (t *Task) work(s Step) {
	t.emit(events.TaskStep, s, 0)
	t.env.Time.Sleep(t.env.Time.WorkDuration())
}

func (t *Task) emit(kind events.Kind, s Step, elapsed time.Duration) {
	t.env.Emitter.Emit(events.Event{
		Kind:     kind,
		RunID:    t.env.RunID,
		Phase:    t.Phase,
		Unit:     t.Unit,
		Step:     s.Name,
		Resource: string(s.Resource),
		Message:  s.Message,
		At:       t.env.Time.Now(),
		Elapsed:  elapsed,
	})
}
