package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/roach88/bfvm/internal/ir"
)

// StatusEntry is one diagnostic captured by RecordingStatus.
type StatusEntry struct {
	Level   ir.Importance
	Message string
}

// RecordingStatus captures every diagnostic it receives.
type RecordingStatus struct {
	mu      sync.Mutex
	entries []StatusEntry
}

// Report implements engine.Status.
func (s *RecordingStatus) Report(level ir.Importance, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, StatusEntry{Level: level, Message: msg})
}

// Entries returns a copy of the captured diagnostics.
func (s *RecordingStatus) Entries() []StatusEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StatusEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Messages returns the captured message texts in order.
func (s *RecordingStatus) Messages() []string {
	entries := s.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}

// RecordingHighlight captures highlight positions and clears.
//
// OnHighlight, when set, runs after each position is recorded; tests use it
// to stop an engine after a given number of steps.
type RecordingHighlight struct {
	Positions   []int
	Clears      int
	OnHighlight func(pos int)
}

// Highlight implements engine.Highlight.
func (h *RecordingHighlight) Highlight(pos int) {
	h.Positions = append(h.Positions, pos)
	if h.OnHighlight != nil {
		h.OnHighlight(pos)
	}
}

// ClearHighlight implements engine.Highlight.
func (h *RecordingHighlight) ClearHighlight() {
	h.Clears++
}

// FakeSleeper records requested delays without sleeping.
type FakeSleeper struct {
	mu    sync.Mutex
	calls []time.Duration
}

// Sleep matches engine.Sleeper.
func (s *FakeSleeper) Sleep(_ context.Context, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, d)
}

// Calls returns the recorded delays.
func (s *FakeSleeper) Calls() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.calls))
	copy(out, s.calls)
	return out
}

// FailingOutput rejects every write.
type FailingOutput struct {
	Err    error
	Writes int
}

// WriteRune implements engine.Output.
func (o *FailingOutput) WriteRune(rune) (int, error) {
	o.Writes++
	return 0, o.Err
}

// PanickingStatus panics on every report.
type PanickingStatus struct{}

// Report implements engine.Status.
func (PanickingStatus) Report(ir.Importance, string) {
	panic("status collaborator failure")
}
