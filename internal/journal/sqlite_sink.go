package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/towerbuild/internal/events"
	ferrors "git.home.luguber.info/inful/towerbuild/internal/foundation/errors"
)

// SQLiteSink stores every event keyed by run id so past runs can be
// summarised later.
type SQLiteSink struct {
	db *sql.DB
	mu sync.RWMutex
}

// RunSummary describes one stored run.
type RunSummary struct {
	RunID     string
	StartedAt time.Time
	EndedAt   time.Time
	Events    int
	Floors    int
	Completed bool
}

// NewSQLiteSink opens (or creates) the event store at path. Use ":memory:"
// for a throwaway store.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryJournal, "open event store").
			WithContext("path", path).
			Fatal().
			Build()
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	s := &SQLiteSink{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryJournal, "initialize event store schema").
			WithContext("path", path).
			Fatal().
			Build()
	}
	return s, nil
}

func (s *SQLiteSink) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		phase INTEGER NOT NULL,
		unit INTEGER NOT NULL,
		step TEXT NOT NULL,
		resource TEXT NOT NULL,
		message TEXT NOT NULL,
		at INTEGER NOT NULL,
		elapsed INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_run_id ON events(run_id);
	CREATE INDEX IF NOT EXISTS idx_kind ON events(kind);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteSink) Name() string { return "sqlite" }

func (s *SQLiteSink) Write(e events.Event) error {
	return s.Append(context.Background(), e)
}

// Append stores one event.
func (s *SQLiteSink) Append(ctx context.Context, e events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (run_id, kind, phase, unit, step, resource, message, at, elapsed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, string(e.Kind), e.Phase, e.Unit, e.Step, e.Resource, e.Message,
		e.At.UnixNano(), int64(e.Elapsed),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Events returns the events of one run in the order they were stored.
func (s *SQLiteSink) Events(ctx context.Context, runID string) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, kind, phase, unit, step, resource, message, at, elapsed
		 FROM events WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var (
			e       events.Event
			kind    string
			at      int64
			elapsed int64
		)
		if err := rows.Scan(&e.RunID, &kind, &e.Phase, &e.Unit, &e.Step, &e.Resource, &e.Message, &at, &elapsed); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = events.Kind(kind)
		e.At = time.Unix(0, at)
		e.Elapsed = time.Duration(elapsed)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Runs lists every stored run, oldest first.
func (s *SQLiteSink) Runs(ctx context.Context) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, MIN(at), MAX(at), COUNT(*),
		       SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END),
		       SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END)
		FROM events GROUP BY run_id ORDER BY MIN(id)`,
		string(events.PhaseCompleted), string(events.BuildCompleted),
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			r              RunSummary
			first, last    int64
			completedCount int
		)
		if err := rows.Scan(&r.RunID, &first, &last, &r.Events, &r.Floors, &completedCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(0, first)
		r.EndedAt = time.Unix(0, last)
		r.Completed = completedCount > 0
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
