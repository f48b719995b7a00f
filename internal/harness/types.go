package harness

import "github.com/roach88/bfvm/internal/ir"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses match.
	Pass bool `json:"pass"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Report is the run report as read back from the store.
	Report ir.RunReport `json:"report"`

	// Output is everything written by '.'.
	Output string `json:"output"`

	// Positions are the highlighted code positions, one per step.
	Positions []int `json:"positions"`

	// Messages are the status messages at or above the scenario verbosity.
	Messages []string `json:"messages"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Errors:    []string{},
		Positions: []int{},
		Messages:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
