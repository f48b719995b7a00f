package ir

import (
	"fmt"
	"time"
)

// HaltReason records why a run left the Running state.
type HaltReason string

const (
	// HaltNone means no run has halted yet.
	HaltNone HaltReason = ""

	// HaltCompleted means the code pointer reached the end of the program.
	HaltCompleted HaltReason = "completed"

	// HaltStopped means an external stop request was honoured.
	HaltStopped HaltReason = "stopped"

	// HaltMismatchedBrackets means the program failed loop validation and
	// never entered the Running state.
	HaltMismatchedBrackets HaltReason = "mismatched_brackets"
)

// ParseHaltReason validates a persisted or user-supplied reason.
func ParseHaltReason(s string) (HaltReason, error) {
	switch r := HaltReason(s); r {
	case HaltCompleted, HaltStopped, HaltMismatchedBrackets:
		return r, nil
	default:
		return HaltNone, fmt.Errorf("unknown halt reason %q", s)
	}
}

// RunReport describes a finished run.
//
// Tape and MemoryPointer are captured just before the engine resets, so
// PeakCells == len(Tape) for any run that started.
type RunReport struct {
	RunID         string     `json:"run_id"`
	ProgramHash   string     `json:"program_hash"`
	Reason        HaltReason `json:"reason"`
	Status        string     `json:"status"`
	Steps         int64      `json:"steps"`
	PeakCells     int        `json:"peak_cells"`
	MemoryPointer int        `json:"memory_pointer"`
	Tape          []int64    `json:"tape,omitempty"`
	Settings      Settings   `json:"settings"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    time.Time  `json:"finished_at"`
}

// Summary returns the human-readable finishing status.
func (r RunReport) Summary() string {
	msg := r.Status
	if r.Steps > 0 {
		msg += fmt.Sprintf(" [Ran through %d instructions, used %d cells]", r.Steps, r.PeakCells)
	}
	return msg
}

// RunRecord is a persisted run: the report plus the text that produced it.
type RunRecord struct {
	Seq     int64     `json:"seq"` // assigned by the store
	Report  RunReport `json:"report"`
	Program string    `json:"program"`
	Input   string    `json:"input"`
	Output  string    `json:"output"`
}
