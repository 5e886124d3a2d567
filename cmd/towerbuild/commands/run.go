package commands

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/towerbuild/internal/config"
	"git.home.luguber.info/inful/towerbuild/internal/logfields"
	"git.home.luguber.info/inful/towerbuild/internal/metrics"
)

// RunCmd implements the 'run' command.
type RunCmd struct {
	Floors          int    `short:"f" help:"Number of floors to build (overrides config)"`
	Apartments      int    `short:"a" help:"Apartments per floor (overrides config)"`
	MultiCranes     int    `help:"Size of the multi-crane pool (overrides config)"`
	DoorWindowCrew  int    `help:"Size of the door/window crew (overrides config)"`
	FoundationDelay string `help:"Foundation delay, e.g. 2s (overrides config)"`
	Seed            uint64 `help:"Seed for work durations (overrides config)"`
	LogFile         string `short:"l" help:"Construction log file (overrides config)"`
	NoColor         bool   `help:"Disable colored console output"`
}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if err := r.apply(cfg); err != nil {
		return err
	}

	logger := newLogger(cfg, root.Verbose)
	slog.SetDefault(logger)

	// Builds are not cancelable; an interrupt terminates the process.
	rep, err := buildTower(context.Background(), cfg, logger, g.stdout(), metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	logger.Info("Construction finished",
		logfields.RunID(rep.RunID),
		slog.Int("floors", rep.Floors),
		logfields.Duration(rep.Elapsed))
	for _, u := range rep.Resources {
		logger.Debug("Resource usage",
			logfields.Resource(string(u.Name)),
			logfields.Capacity(u.Capacity),
			slog.Int("peak", u.Peak))
	}
	return nil
}

// apply copies explicitly set flags over cfg and revalidates it.
func (r *RunCmd) apply(cfg *config.Config) error {
	if r.Floors != 0 {
		cfg.Build.Floors = r.Floors
	}
	if r.Apartments != 0 {
		cfg.Build.ApartmentsPerFloor = r.Apartments
	}
	if r.MultiCranes != 0 {
		cfg.Resources.MultiCranes = r.MultiCranes
	}
	if r.DoorWindowCrew != 0 {
		cfg.Resources.DoorWindowCrew = r.DoorWindowCrew
	}
	if r.FoundationDelay != "" {
		cfg.Build.FoundationDelay = r.FoundationDelay
	}
	if r.Seed != 0 {
		cfg.Work.Seed = r.Seed
	}
	if r.LogFile != "" {
		cfg.Logging.File = r.LogFile
	}
	if r.NoColor {
		off := false
		cfg.Logging.Color = &off
	}
	return cfg.Validate()
}
