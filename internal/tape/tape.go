// Package tape implements the growable memory tape of the interpreter.
//
// A Tape is a sequence of int64 cells addressed by a pointer that is always
// valid. Moving past either end grows the tape by exactly one zero cell, so
// the pointer never goes out of range and never becomes negative.
//
// Cell arithmetic follows a Policy: unsigned or signed domain, with or
// without wrap-around. When wrapping is disabled no clamp is applied and a
// cell may leave its nominal domain; int64 storage keeps such values exact
// for any realistic run.
package tape

// Policy controls cell arithmetic.
type Policy struct {
	Negatives   bool
	Wrapping    bool
	MaxCellSize int64
}

// Tape is a growable sequence of integer cells.
//
// Each cell carries a touched flag. Only the initial cell, the one created by
// New or Reset, starts untouched; it bootstraps on first touch: increment sets
// it to 1 and decrement sets it to MaxCellSize-1. Cells added by moving past
// either end hold a real zero and take plain delta arithmetic.
//
// Tape is not safe for concurrent use; the engine owns it exclusively.
type Tape struct {
	policy  Policy
	cells   []int64
	touched []bool
}

// New creates a tape holding a single untouched zero cell.
func New(p Policy) *Tape {
	return &Tape{
		policy:  p,
		cells:   []int64{0},
		touched: []bool{false},
	}
}

// Policy returns the arithmetic policy of the tape.
func (t *Tape) Policy() Policy {
	return t.policy
}

// Len returns the number of cells.
func (t *Tape) Len() int {
	return len(t.cells)
}

// Read returns the value of the cell at ptr.
func (t *Tape) Read(ptr int) int64 {
	return t.cells[ptr]
}

// Write stores v at ptr and marks the cell touched. No domain policy is
// applied; callers reduce values before writing.
func (t *Tape) Write(ptr int, v int64) {
	t.cells[ptr] = v
	t.touched[ptr] = true
}

// Touched reports whether the cell at ptr has been modified.
func (t *Tape) Touched(ptr int) bool {
	return t.touched[ptr]
}

// Increment adds one to the cell at ptr, wrapping per the policy.
func (t *Tape) Increment(ptr int) {
	if !t.touched[ptr] {
		t.Write(ptr, 1)
		return
	}

	v := t.cells[ptr] + 1
	size := t.policy.MaxCellSize
	if t.policy.Wrapping {
		if t.policy.Negatives {
			if v == size/2 {
				v = -(size / 2)
			}
		} else if v == size {
			v = 0
		}
	}
	t.cells[ptr] = v
}

// Decrement subtracts one from the cell at ptr, wrapping per the policy.
func (t *Tape) Decrement(ptr int) {
	size := t.policy.MaxCellSize
	if !t.touched[ptr] {
		t.Write(ptr, size-1)
		return
	}

	v := t.cells[ptr] - 1
	if t.policy.Wrapping {
		if t.policy.Negatives {
			if v == -(size/2)-1 {
				v = size/2 - 1
			}
		} else if v == -1 {
			v = size - 1
		}
	}
	t.cells[ptr] = v
}

// MoveForward returns ptr+1, appending a zero cell when ptr is the last index.
func (t *Tape) MoveForward(ptr int) int {
	if ptr == len(t.cells)-1 {
		t.cells = append(t.cells, 0)
		t.touched = append(t.touched, true)
	}
	return ptr + 1
}

// MoveBackward returns ptr-1. At index 0 a zero cell is prepended instead
// and the pointer stays at 0, which now addresses the new cell.
func (t *Tape) MoveBackward(ptr int) int {
	if ptr > 0 {
		return ptr - 1
	}
	t.cells = append(t.cells, 0)
	copy(t.cells[1:], t.cells)
	t.cells[0] = 0

	t.touched = append(t.touched, true)
	copy(t.touched[1:], t.touched)
	t.touched[0] = true
	return 0
}

// Reset shrinks the tape back to a single untouched zero cell.
func (t *Tape) Reset() {
	t.cells = t.cells[:1]
	t.cells[0] = 0
	t.touched = t.touched[:1]
	t.touched[0] = false
}

// Snapshot returns a copy of all cell values.
func (t *Tape) Snapshot() []int64 {
	out := make([]int64, len(t.cells))
	copy(out, t.cells)
	return out
}
