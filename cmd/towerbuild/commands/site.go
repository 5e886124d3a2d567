package commands

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/towerbuild/internal/config"
	"git.home.luguber.info/inful/towerbuild/internal/construction"
	"git.home.luguber.info/inful/towerbuild/internal/events"
	"git.home.luguber.info/inful/towerbuild/internal/journal"
	"git.home.luguber.info/inful/towerbuild/internal/logfields"
	"git.home.luguber.info/inful/towerbuild/internal/metrics"
	"git.home.luguber.info/inful/towerbuild/internal/resource"
	"git.home.luguber.info/inful/towerbuild/internal/worktime"
)

// buildTower runs one complete build with a fresh registry, journal and
// run id. The journal is drained before returning.
func buildTower(ctx context.Context, cfg *config.Config, logger *slog.Logger, console io.Writer, recorder metrics.Recorder) (construction.BuildReport, error) {
	runID := uuid.NewString()
	log := logger.With(logfields.RunID(runID))

	sinks, err := journal.OpenSinks(cfg, console)
	if err != nil {
		return construction.BuildReport{}, err
	}

	bus := events.NewBus()
	defer bus.Close()
	j := journal.New(bus, sinks,
		journal.WithLogger(log),
		journal.WithRecorder(recorder),
		journal.WithBuffer(cfg.Journal.Buffer),
	)
	j.Start()

	emitter := events.BusEmitter{Bus: bus, OnError: func(e events.Event, err error) {
		recorder.IncSinkError("bus")
		log.Warn("Dropped construction event", slog.String("kind", string(e.Kind)), logfields.Error(err))
	}}

	var opts []worktime.Option
	if cfg.Work.Seed != 0 {
		opts = append(opts, worktime.WithSeed(cfg.Work.Seed))
	}
	orch := construction.NewOrchestrator(construction.OrchestratorConfig{
		Env: construction.Env{
			RunID:      runID,
			Apartments: cfg.Build.ApartmentsPerFloor,
			Time:       worktime.NewUniform(cfg.Work.MinUnits, cfg.Work.MaxUnits, cfg.Work.UnitDuration(), opts...),
			Emitter:    emitter,
			Recorder:   recorder,
			Logger:     log,
		},
		Capacities: resource.Capacities{
			MultiCranes:    cfg.Resources.MultiCranes,
			DoorWindowCrew: cfg.Resources.DoorWindowCrew,
		},
		FoundationDelay: cfg.Build.FoundationDelayDuration(),
	})

	rep, runErr := orch.Execute(ctx, cfg.Build.Floors)
	if err := j.Close(); err != nil {
		log.Warn("Journal did not close cleanly", logfields.Error(err))
	}
	for sink, n := range j.Failures() {
		log.Warn("Journal sink lost events", logfields.Sink(sink), slog.Int("failures", n))
	}
	return rep, runErr
}
