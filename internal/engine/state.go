package engine

import "fmt"

// State is the engine lifecycle state.
type State int32

const (
	// StateIdle is the state of a new engine that has never run.
	StateIdle State = iota
	// StateRunning means a run is in progress.
	StateRunning
	// StateHalted means the last run ended; see Engine.LastReason.
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}
