package construction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/towerbuild/internal/events"
	ferrors "git.home.luguber.info/inful/towerbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/towerbuild/internal/journal"
	"git.home.luguber.info/inful/towerbuild/internal/resource"
	"git.home.luguber.info/inful/towerbuild/internal/worktime"
)

func TestCoordinatorRunJoinsAllApartments(t *testing.T) {
	rec := events.NewRecorder()
	reg := newRegistry(resource.DefaultCapacities())
	c := NewCoordinator(Env{Registry: reg, Time: fastTime(), Emitter: rec})

	rep, err := c.Run(t.Context(), 5)
	require.NoError(t, err)
	require.Len(t, rep.Tasks, 4)
	for i, tr := range rep.Tasks {
		assert.Equal(t, 5, tr.Phase)
		assert.Equal(t, i+1, tr.Unit)
		assert.Positive(t, tr.Elapsed)
	}

	all := rec.Events()
	assert.Equal(t, events.PhaseStarted, all[0].Kind)
	assert.Equal(t, events.PhaseCompleted, all[len(all)-1].Kind)
	for _, e := range all {
		assert.Equal(t, 5, e.Phase)
	}
	assert.Equal(t, 4, rec.Count(events.TaskStarted))
	assert.Equal(t, 4, rec.Count(events.TaskFinished))
	assert.True(t, reg.Idle())
}

func TestCoordinatorRejectsInvalidPhase(t *testing.T) {
	c := NewCoordinator(Env{Registry: newRegistry(resource.DefaultCapacities())})
	_, err := c.Run(t.Context(), 0)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
}

func TestCoordinatorSingleMultiCrane(t *testing.T) {
	reg := newRegistry(resource.Capacities{MultiCranes: 1, DoorWindowCrew: 2})
	c := NewCoordinator(Env{Registry: reg, Time: fastTime()})

	_, err := c.Run(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.MultiCranes().Peak())
	assert.True(t, reg.Idle())
}

func TestCoordinatorSpawnFailureJoinsStartedTasks(t *testing.T) {
	rec := events.NewRecorder()
	reg := newRegistry(resource.DefaultCapacities())
	runner := &limitedRunner{limit: 2}
	c := NewCoordinator(Env{
		Registry: reg,
		Time:     fastTime(),
		Emitter:  rec,
		Runners:  func(int) Runner { return runner },
	})

	rep, err := c.Run(t.Context(), 1)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategorySpawn))
	assert.Contains(t, err.Error(), "out of threads")

	// The two apartments that did start were joined before Run returned.
	assert.Equal(t, 2, rec.Count(events.TaskFinished))
	assert.Zero(t, rec.Count(events.PhaseCompleted))
	assert.Positive(t, rep.Tasks[0].Elapsed)
	assert.Positive(t, rep.Tasks[1].Elapsed)
	assert.Zero(t, rep.Tasks[2].Elapsed)
	assert.True(t, reg.Idle())
}

func TestCoordinatorContainsPanickingApartment(t *testing.T) {
	rec := events.NewRecorder()
	reg := newRegistry(resource.DefaultCapacities())
	clock := &panicOnce{Fixed: worktime.Fixed{Duration: time.Millisecond}}
	c := NewCoordinator(Env{Registry: reg, Time: clock, Emitter: rec})

	_, err := c.Run(t.Context(), 1)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTask))
	assert.Contains(t, err.Error(), "scaffolding collapsed")

	// The other three apartments still finished and the elevator held by
	// the panicking one was handed back.
	assert.Equal(t, 4, rec.Count(events.TaskStarted))
	assert.Equal(t, 3, rec.Count(events.TaskFinished))
	assert.Zero(t, rec.Count(events.PhaseCompleted))
	assert.True(t, reg.Idle())
}

func TestWorkerGroupRefusesAfterWait(t *testing.T) {
	g := &WorkerGroup{}
	ran := make(chan struct{})
	require.NoError(t, g.Go(func() { close(ran) }))
	require.NoError(t, g.Wait(context.Background()))
	<-ran

	err := g.Go(func() {})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategorySpawn))
	assert.Error(t, g.Go(nil))
}

// stalledSink never finishes a write until release is closed.
type stalledSink struct {
	release chan struct{}
}

func (s stalledSink) Name() string { return "stalled" }

func (s stalledSink) Write(events.Event) error {
	<-s.release
	return nil
}

func (s stalledSink) Close() error { return nil }

func TestCoordinatorNotHeldUpByStalledJournal(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	sink := stalledSink{release: make(chan struct{})}
	j := journal.New(bus, []journal.Sink{sink}, journal.WithBuffer(8))
	j.Start()
	defer func() {
		close(sink.release)
		assert.NoError(t, j.Close())
	}()

	reg := newRegistry(resource.DefaultCapacities())
	c := NewCoordinator(Env{Registry: reg, Time: fastTime(), Emitter: events.BusEmitter{Bus: bus}})

	type result struct {
		rep PhaseReport
		err error
	}
	done := make(chan result, 1)
	go func() {
		var r result
		for phase := 1; phase <= 3 && r.err == nil; phase++ {
			r.rep, r.err = c.Run(t.Context(), phase)
		}
		done <- r
	}()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Len(t, r.rep.Tasks, DefaultApartments)
	case <-time.After(5 * time.Second):
		t.Fatalf("floor did not finish while the journal was stalled; usage %+v", reg.Snapshot())
	}
	assert.True(t, reg.Idle())
}
