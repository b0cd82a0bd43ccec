package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyChecklist  = "checklist"
	KeyTask       = "task"
	KeySchedule   = "schedule"
	KeyNextReset  = "next_reset"
	KeyState      = "state"
	KeyAttempt    = "attempt"
	KeyDelayMS    = "delay_ms"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyBackend    = "backend"
	KeyCount      = "count"
	KeyError      = "error"
)

func Checklist(name string) slog.Attr  { return slog.String(KeyChecklist, name) }
func Task(label string) slog.Attr      { return slog.String(KeyTask, label) }
func Schedule(expr string) slog.Attr   { return slog.String(KeySchedule, expr) }
func State(s string) slog.Attr         { return slog.String(KeyState, s) }
func Attempt(n int) slog.Attr          { return slog.Int(KeyAttempt, n) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Backend(b string) slog.Attr       { return slog.String(KeyBackend, b) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func DelayMS(d time.Duration) slog.Attr { return slog.Int64(KeyDelayMS, d.Milliseconds()) }
func DurationMS(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}

// NextReset renders an optional instant; nil becomes an empty string.
func NextReset(at *time.Time) slog.Attr {
	if at == nil {
		return slog.String(KeyNextReset, "")
	}
	return slog.String(KeyNextReset, at.UTC().Format(time.RFC3339))
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
