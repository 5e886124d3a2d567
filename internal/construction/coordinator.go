package construction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/towerbuild/internal/events"
	ferrors "git.home.luguber.info/inful/towerbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/towerbuild/internal/logfields"
	"git.home.luguber.info/inful/towerbuild/internal/metrics"
)

// PhaseReport summarises one floor.
type PhaseReport struct {
	Phase   int
	Started time.Time
	Elapsed time.Duration
	// Tasks is indexed by unit-1. Entries for apartments that never
	// started or did not finish are zero apart from Phase and Unit.
	Tasks []TaskReport
}

// Coordinator builds one floor at a time: it starts every apartment of the
// floor and returns only once all of them have terminated.
type Coordinator struct {
	env Env
}

// NewCoordinator returns a Coordinator building apartments against
// env.Registry, which must be set.
func NewCoordinator(env Env) *Coordinator {
	return &Coordinator{env: env.withDefaults()}
}

// Run builds floor phase. It spawns exactly Apartments tasks and joins all
// of them before returning, even when one of them could not be started.
// A spawn failure or a failed or panicking task fails the phase.
func (c *Coordinator) Run(ctx context.Context, phase int) (PhaseReport, error) {
	if phase < 1 {
		return PhaseReport{}, ferrors.ValidationError("phase must be positive").
			WithContext("phase", phase).
			Build()
	}
	if c.env.Registry == nil {
		return PhaseReport{}, ferrors.InternalError("coordinator has no resource registry").Build()
	}

	k := c.env.Apartments
	rep := PhaseReport{Phase: phase, Started: c.env.Time.Now(), Tasks: make([]TaskReport, k)}
	log := c.env.Logger.With(logfields.RunID(c.env.RunID), logfields.Phase(phase))
	c.emit(events.PhaseStarted, phase, "Construction started")
	log.Debug("floor started", slog.Int("apartments", k))

	var (
		mu       sync.Mutex
		taskErrs []error
	)
	runner := c.env.Runners(phase)
	var spawnErr error
	for unit := 1; unit <= k; unit++ {
		rep.Tasks[unit-1] = TaskReport{Phase: phase, Unit: unit}
		task := &Task{Phase: phase, Unit: unit, env: &c.env}
		err := runner.Go(func() {
			tr, err := runTask(ctx, task)
			mu.Lock()
			defer mu.Unlock()
			rep.Tasks[task.Unit-1] = tr
			if err != nil {
				taskErrs = append(taskErrs, err)
			}
		})
		if err != nil {
			spawnErr = ferrors.WrapError(err, ferrors.CategorySpawn, "cannot start apartment").
				WithContext("phase", phase).
				WithContext("unit", unit).
				Fatal().
				Build()
			break
		}
	}

	// Tasks are never canceled, so the join is not bounded by ctx.
	if err := runner.Wait(context.WithoutCancel(ctx)); err != nil {
		spawnErr = errors.Join(spawnErr, err)
	}
	rep.Elapsed = c.env.Time.Now().Sub(rep.Started)

	mu.Lock()
	err := errors.Join(append([]error{spawnErr}, taskErrs...)...)
	mu.Unlock()
	if err != nil {
		c.env.Recorder.ObservePhase(rep.Elapsed, metrics.PhaseFailed)
		log.Error("floor failed", logfields.Duration(rep.Elapsed), logfields.Error(err))
		return rep, err
	}

	c.env.Recorder.ObservePhase(rep.Elapsed, metrics.PhaseSucceeded)
	c.emit(events.PhaseCompleted, phase, "Construction complete")
	log.Debug("floor completed", logfields.Duration(rep.Elapsed))
	return rep, nil
}

func (c *Coordinator) emit(kind events.Kind, phase int, msg string) {
	c.env.Emitter.Emit(events.Event{
		Kind:    kind,
		RunID:   c.env.RunID,
		Phase:   phase,
		Message: msg,
		At:      c.env.Time.Now(),
	})
}

// runTask contains a panicking apartment so it cannot take the floor, or
// the process, down with it. Resources are released by the task's own
// deferred releases while the panic unwinds.
func runTask(ctx context.Context, t *Task) (rep TaskReport, err error) {
	rep = TaskReport{Phase: t.Phase, Unit: t.Unit}
	defer func() {
		if r := recover(); r != nil {
			err = ferrors.TaskError("apartment panicked").
				WithContext("phase", t.Phase).
				WithContext("unit", t.Unit).
				WithCause(fmt.Errorf("%v", r)).
				Build()
		}
	}()
	rep, err = t.Run(ctx)
	if err != nil {
		err = ferrors.WrapError(err, ferrors.CategoryTask, "apartment failed").
			WithContext("phase", t.Phase).
			WithContext("unit", t.Unit).
			Build()
	}
	return rep, err
}
