package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/bfvm/internal/ir"
)

// Output receives one character per '.' in execution order.
// *strings.Builder, *bytes.Buffer and *bufio.Writer all satisfy it.
type Output interface {
	WriteRune(r rune) (int, error)
}

// Status receives diagnostics at or above the engine's verbosity.
// Report may be called while the engine holds its configuration lock, so
// implementations must not call the engine's setters. A panic in Report is
// recovered and logged.
type Status interface {
	Report(level ir.Importance, msg string)
}

// Highlight receives the code position after each executed opcode and is
// cleared when a run resets.
type Highlight interface {
	Highlight(pos int)
	ClearHighlight()
}

// Sleeper implements the per-step delay. It should return early when ctx
// is done.
type Sleeper func(ctx context.Context, d time.Duration)

// SleepContext sleeps for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// SlogStatus forwards diagnostics to a slog.Logger.
//
// Level mapping: LOW→Debug, SEVERE→Warn, everything else→Info. The
// importance name is attached as the "importance" attr.
type SlogStatus struct {
	Logger *slog.Logger // nil uses slog.Default()
}

// Report implements Status.
func (s SlogStatus) Report(level ir.Importance, msg string) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(context.Background(), slogLevel(level), msg, "importance", level.String())
}

func slogLevel(level ir.Importance) slog.Level {
	switch {
	case level <= ir.ImportanceLow:
		return slog.LevelDebug
	case level > ir.ImportanceHigh && level <= ir.ImportanceSevere:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
