// Package loops resolves matching loop brackets in a program.
//
// Resolve validates that every '[' has a matching ']' with correct nesting
// and builds a Table that maps each bracket position to its partner in O(1).
// An empty loop ("[]") is an ordinary pair.
package loops

import (
	"errors"
	"fmt"
)

// ErrMismatchedBrackets is matched by every BracketError via errors.Is.
var ErrMismatchedBrackets = errors.New("mismatched loop brackets")

// BracketKind identifies which side of a pair is missing.
type BracketKind int

const (
	// UnmatchedClose is a ']' with no preceding open bracket.
	UnmatchedClose BracketKind = iota + 1
	// UnmatchedOpen is a '[' that is never closed.
	UnmatchedOpen
)

func (k BracketKind) String() string {
	switch k {
	case UnmatchedClose:
		return "unmatched ']'"
	case UnmatchedOpen:
		return "unmatched '['"
	default:
		return fmt.Sprintf("BracketKind(%d)", int(k))
	}
}

// BracketError reports the first bracket that cannot be paired.
type BracketError struct {
	Kind BracketKind
	Pos  int // position in the program, in code points
}

func (e *BracketError) Error() string {
	return fmt.Sprintf("%s at position %d", e.Kind, e.Pos)
}

// Is makes errors.Is(err, ErrMismatchedBrackets) succeed.
func (e *BracketError) Is(target error) bool {
	return target == ErrMismatchedBrackets
}

// Table is a bijection between open and close bracket positions.
// The zero value is an empty table.
type Table struct {
	partner []int // partner[i] is the matching bracket of i, or -1
	pairs   int
}

// Resolve scans code and pairs its brackets. Characters other than '[' and
// ']' are ignored. On failure the returned error is a *BracketError naming
// the first offending position: a close with nothing open, or, once the scan
// ends, the innermost open that was never closed.
func Resolve(code []rune) (*Table, error) {
	partner := make([]int, len(code))
	for i := range partner {
		partner[i] = -1
	}

	var stack []int
	pairs := 0
	for i, c := range code {
		switch c {
		case '[':
			stack = append(stack, i)
		case ']':
			if len(stack) == 0 {
				return nil, &BracketError{Kind: UnmatchedClose, Pos: i}
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			partner[open] = i
			partner[i] = open
			pairs++
		}
	}

	if len(stack) > 0 {
		return nil, &BracketError{Kind: UnmatchedOpen, Pos: stack[len(stack)-1]}
	}

	return &Table{partner: partner, pairs: pairs}, nil
}

// ResolveString is Resolve over the code points of src.
func ResolveString(src string) (*Table, error) {
	return Resolve([]rune(src))
}

// Partner returns the matching bracket of pos.
// ok is false when pos is not a bracket position in the table.
func (t *Table) Partner(pos int) (int, bool) {
	if pos < 0 || pos >= len(t.partner) || t.partner[pos] < 0 {
		return 0, false
	}
	return t.partner[pos], true
}

// Close returns the close position paired with the open bracket at pos.
func (t *Table) Close(pos int) (int, bool) {
	p, ok := t.Partner(pos)
	if !ok || p < pos {
		return 0, false
	}
	return p, true
}

// Open returns the open position paired with the close bracket at pos.
func (t *Table) Open(pos int) (int, bool) {
	p, ok := t.Partner(pos)
	if !ok || p > pos {
		return 0, false
	}
	return p, true
}

// Pairs returns the number of bracket pairs.
func (t *Table) Pairs() int {
	return t.pairs
}

// Each calls fn for every pair in order of the open position.
func (t *Table) Each(fn func(open, close int)) {
	for i, p := range t.partner {
		if p > i {
			fn(i, p)
		}
	}
}
