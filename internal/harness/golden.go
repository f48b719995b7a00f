package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/bfvm/internal/ir"
)

// Snapshot renders the observable outcome of a scenario as canonical JSON.
// Timestamps, the run ID and the program hash are left out so snapshots
// survive unrelated changes.
func Snapshot(name string, result *Result) ([]byte, error) {
	r := result.Report
	tape := r.Tape
	if tape == nil {
		tape = []int64{}
	}
	positions := result.Positions
	if positions == nil {
		positions = []int{}
	}

	return ir.MarshalCanonical(map[string]any{
		"scenario_name":  name,
		"reason":         string(r.Reason),
		"status":         r.Status,
		"steps":          r.Steps,
		"peak_cells":     r.PeakCells,
		"memory_pointer": r.MemoryPointer,
		"cells":          tape,
		"output":         result.Output,
		"positions":      positions,
	})
}

// RunWithGolden executes a scenario and compares the snapshot against a
// golden file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
