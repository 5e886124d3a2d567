package construction

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/towerbuild/internal/events"
	ferrors "git.home.luguber.info/inful/towerbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/towerbuild/internal/logfields"
	"git.home.luguber.info/inful/towerbuild/internal/resource"
)

// CompletionMessage is announced once the last floor is done.
const CompletionMessage = "Apartment Building Construction Complete!"

// BuildReport summarises a run.
type BuildReport struct {
	RunID   string
	Floors  int
	Started time.Time
	Elapsed time.Duration
	Phases  []PhaseReport
	// Resources is the registry usage after the last phase, including the
	// peak number of simultaneous holders of every facility.
	Resources []resource.Usage
}

// OrchestratorConfig configures a build.
type OrchestratorConfig struct {
	Env
	// Capacities sizes the registry created for each Execute when
	// Env.Registry is nil.
	Capacities resource.Capacities
	// FoundationDelay is waited once before the first floor.
	FoundationDelay time.Duration
}

// Orchestrator builds floors 1..P strictly one at a time.
type Orchestrator struct {
	cfg OrchestratorConfig
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	cfg.Env = cfg.Env.withDefaults()
	if cfg.Capacities == (resource.Capacities{}) {
		cfg.Capacities = resource.DefaultCapacities()
	}
	return &Orchestrator{cfg: cfg}
}

// Execute lays the foundation, builds floors 1..floors and tears down. Floor
// i+1 is entered only after floor i's Run has returned. A failed floor
// aborts the build since every later floor rests on it.
func (o *Orchestrator) Execute(ctx context.Context, floors int) (BuildReport, error) {
	if floors < 1 {
		return BuildReport{}, ferrors.ValidationError("number of floors must be positive").
			WithContext("floors", floors).
			Build()
	}

	env := o.cfg.Env
	owned := env.Registry == nil
	if owned {
		reg, err := resource.NewRegistry(o.cfg.Capacities, resource.WithRecorder(env.Recorder))
		if err != nil {
			return BuildReport{}, ferrors.WrapError(err, ferrors.CategoryResource, "cannot set up resource registry").
				Fatal().
				Build()
		}
		env.Registry = reg
	}
	defer func() {
		if owned {
			env.Registry.Close()
		}
	}()

	log := env.Logger.With(logfields.RunID(env.RunID))
	rep := BuildReport{RunID: env.RunID, Floors: floors, Started: env.Time.Now()}
	emit := func(kind events.Kind, msg string) {
		env.Emitter.Emit(events.Event{Kind: kind, RunID: env.RunID, Message: msg, At: env.Time.Now()})
	}

	emit(events.BuildStarted, "Construction started")
	log.Info("build started", slog.Int("floors", floors), slog.Int("apartments_per_floor", env.Apartments))

	emit(events.FoundationStarted, "Starting foundation...")
	env.Time.Sleep(o.cfg.FoundationDelay)
	emit(events.FoundationCompleted, "Foundation complete!")

	coord := NewCoordinator(env)
	for phase := 1; phase <= floors; phase++ {
		pr, err := coord.Run(ctx, phase)
		rep.Phases = append(rep.Phases, pr)
		if err != nil {
			rep.Elapsed = env.Time.Now().Sub(rep.Started)
			rep.Resources = env.Registry.Snapshot()
			return rep, err
		}
		if !env.Registry.Idle() {
			rep.Elapsed = env.Time.Now().Sub(rep.Started)
			rep.Resources = env.Registry.Snapshot()
			return rep, ferrors.RuntimeError("floor finished with resources still held").
				WithContext("phase", phase).
				Fatal().
				Build()
		}
	}

	rep.Elapsed = env.Time.Now().Sub(rep.Started)
	rep.Resources = env.Registry.Snapshot()
	emit(events.BuildCompleted, CompletionMessage)
	log.Info("build completed", logfields.Duration(rep.Elapsed))
	return rep, nil
}
