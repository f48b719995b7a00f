package testutil

import (
	"sync"
	"time"
)

// DeterministicClock provides reproducible wall-clock readings for tests.
//
// Each call to Now advances the clock by Step, starting from Start. Reports
// built with it carry identical timestamps across runs, which keeps golden
// snapshots stable.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	calls int64
}

// DefaultEpoch is the first reading of a clock created with NewDeterministicClock.
var DefaultEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// NewDeterministicClock creates a clock starting at DefaultEpoch that
// advances one second per reading.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{start: DefaultEpoch, step: time.Second}
}

// Now returns the next reading.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Calls returns the number of readings taken.
func (c *DeterministicClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Reset rewinds the clock to its start.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}
