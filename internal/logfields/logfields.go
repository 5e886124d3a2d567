package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyPhase      = "phase"
	KeyUnit       = "unit"
	KeyStep       = "step"
	KeyResource   = "resource"
	KeyCapacity   = "capacity"
	KeyDurationMS = "duration_ms"
	KeySink       = "sink"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Phase(p int) slog.Attr           { return slog.Int(KeyPhase, p) }
func Unit(u int) slog.Attr            { return slog.Int(KeyUnit, u) }
func Step(name string) slog.Attr      { return slog.String(KeyStep, name) }
func Resource(name string) slog.Attr  { return slog.String(KeyResource, name) }
func Capacity(n int) slog.Attr        { return slog.Int(KeyCapacity, n) }
func Sink(name string) slog.Attr      { return slog.String(KeySink, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

// Duration converts d to milliseconds under KeyDurationMS.
func Duration(d time.Duration) slog.Attr {
	return DurationMS(float64(d) / float64(time.Millisecond))
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
