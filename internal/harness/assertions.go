package harness

import (
	"fmt"
	"slices"
)

// checkExpect evaluates every present expect field and records mismatches
// on the result.
func checkExpect(want Expect, result *Result) {
	r := result.Report

	if string(r.Reason) != want.Reason {
		result.AddError(fmt.Sprintf("reason: expected %q, got %q", want.Reason, r.Reason))
	}
	if want.Output != nil && *want.Output != result.Output {
		result.AddError(fmt.Sprintf("output: expected %q, got %q", *want.Output, result.Output))
	}
	if want.Steps != nil && *want.Steps != r.Steps {
		result.AddError(fmt.Sprintf("steps: expected %d, got %d", *want.Steps, r.Steps))
	}
	if want.PeakCells != nil && *want.PeakCells != r.PeakCells {
		result.AddError(fmt.Sprintf("peak_cells: expected %d, got %d", *want.PeakCells, r.PeakCells))
	}
	if want.MemoryPointer != nil && *want.MemoryPointer != r.MemoryPointer {
		result.AddError(fmt.Sprintf("memory_pointer: expected %d, got %d", *want.MemoryPointer, r.MemoryPointer))
	}
	if want.Cells != nil && !slices.Equal(want.Cells, r.Tape) {
		result.AddError(fmt.Sprintf("cells: expected %v, got %v", want.Cells, r.Tape))
	}
	if want.Status != "" && want.Status != r.Status {
		result.AddError(fmt.Sprintf("status: expected %q, got %q", want.Status, r.Status))
	}
	for _, msg := range want.MessagesContain {
		if !slices.Contains(result.Messages, msg) {
			result.AddError(fmt.Sprintf("messages: %q not reported", msg))
		}
	}
}
