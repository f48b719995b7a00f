package engine

import "errors"

// ErrRunning is returned when an operation needs the engine to be idle or
// halted but a run is in progress. The requested change is not applied.
var ErrRunning = errors.New("engine is running")

// ErrInvalidSettings wraps settings validation failures.
var ErrInvalidSettings = errors.New("invalid settings")

// IsRunningError returns true if the error is ErrRunning.
// Uses errors.Is to handle wrapped errors.
func IsRunningError(err error) bool {
	return errors.Is(err, ErrRunning)
}
