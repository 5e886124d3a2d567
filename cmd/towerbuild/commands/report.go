package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss/table"

	"git.home.luguber.info/inful/towerbuild/internal/events"
	ferrors "git.home.luguber.info/inful/towerbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/towerbuild/internal/journal"
)

// ReportCmd implements the 'report' command.
type ReportCmd struct {
	DB    string `help:"SQLite event store (defaults to journal.sqlite_path)"`
	RunID string `arg:"" optional:"" name:"run-id" help:"Show per-floor detail for this run"`
}

func (r *ReportCmd) Run(g *Global, root *CLI) error {
	path := r.DB
	if path == "" {
		cfg, err := root.loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Journal.SQLitePath
	}
	if path == "" {
		return ferrors.ConfigError("no event store configured").
			WithContext("field", "journal.sqlite_path").
			Build()
	}

	store, err := journal.NewSQLiteSink(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if r.RunID == "" {
		return listRuns(ctx, g, store)
	}
	return showRun(ctx, g, store, r.RunID)
}

func listRuns(ctx context.Context, g *Global, store *journal.SQLiteSink) error {
	runs, err := store.Runs(ctx)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryJournal, "read runs").Build()
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(g.stdout(), "No runs recorded")
		return nil
	}

	t := table.New().Headers("RUN", "STARTED", "DURATION", "FLOORS", "EVENTS", "STATUS")
	for _, run := range runs {
		status := "incomplete"
		if run.Completed {
			status = "complete"
		}
		t.Row(run.RunID,
			run.StartedAt.Format(time.DateTime),
			run.EndedAt.Sub(run.StartedAt).Round(time.Millisecond).String(),
			strconv.Itoa(run.Floors),
			strconv.Itoa(run.Events),
			status)
	}
	_, _ = fmt.Fprintln(g.stdout(), t.String())
	return nil
}

// floorSummary aggregates the task events of one floor.
type floorSummary struct {
	floor     int
	started   time.Time
	completed time.Time
	tasks     int
	slowest   time.Duration
	done      bool
}

func summariseFloors(evts []events.Event) []*floorSummary {
	var out []*floorSummary
	byFloor := map[int]*floorSummary{}
	for _, e := range evts {
		if e.Phase == 0 {
			continue
		}
		f, ok := byFloor[e.Phase]
		if !ok {
			f = &floorSummary{floor: e.Phase}
			byFloor[e.Phase] = f
			out = append(out, f)
		}
		switch e.Kind {
		case events.PhaseStarted:
			f.started = e.At
		case events.PhaseCompleted:
			f.completed = e.At
			f.done = true
		case events.TaskFinished:
			f.tasks++
			f.slowest = max(f.slowest, e.Elapsed)
		}
	}
	return out
}

func showRun(ctx context.Context, g *Global, store *journal.SQLiteSink, runID string) error {
	evts, err := store.Events(ctx, runID)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryJournal, "read run events").Build()
	}
	if len(evts) == 0 {
		return ferrors.ValidationError("unknown run").WithContext("run_id", runID).Build()
	}

	t := table.New().Headers("FLOOR", "DURATION", "APARTMENTS", "SLOWEST", "STATUS")
	for _, f := range summariseFloors(evts) {
		duration, status := "-", "failed"
		if f.done {
			duration = f.completed.Sub(f.started).Round(time.Millisecond).String()
			status = "complete"
		}
		t.Row(strconv.Itoa(f.floor), duration, strconv.Itoa(f.tasks),
			fmt.Sprintf("%.2fs", f.slowest.Seconds()), status)
	}
	_, _ = fmt.Fprintf(g.stdout(), "Run %s\n%s\n", runID, t.String())
	return nil
}
