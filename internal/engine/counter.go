package engine

import "sync/atomic"

// StepCounter counts executed opcodes.
//
// The engine increments it from the Run goroutine; observers such as a
// progress display may read it concurrently.
type StepCounter struct {
	n atomic.Int64
}

// NewStepCounter creates a counter starting at 0.
func NewStepCounter() *StepCounter {
	return &StepCounter{}
}

// Next increments the counter and returns the new value.
func (c *StepCounter) Next() int64 {
	return c.n.Add(1)
}

// Current returns the count without incrementing.
func (c *StepCounter) Current() int64 {
	return c.n.Load()
}

// Reset sets the count back to 0.
func (c *StepCounter) Reset() {
	c.n.Store(0)
}
