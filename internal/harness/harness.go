package harness

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/bfvm/internal/engine"
	"github.com/roach88/bfvm/internal/ir"
	"github.com/roach88/bfvm/internal/loops"
	"github.com/roach88/bfvm/internal/store"
	"github.com/roach88/bfvm/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh engine and a fresh in-memory database.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Configure an engine with deterministic collaborators
// 3. Run the program, stopping after StopAfter steps if set
// 4. Persist the run and read it back
// 5. Check the expect clause
//
// A program with mismatched brackets is an outcome, not an error; Run
// returns an error only when the harness itself fails.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	var (
		out       strings.Builder
		status    = &testutil.RecordingStatus{}
		highlight = &testutil.RecordingHighlight{}
		sleeper   = &testutil.FakeSleeper{}
		clock     = testutil.NewDeterministicClock()
	)

	eng := engine.New(
		engine.WithOutput(&out),
		engine.WithStatus(status),
		engine.WithHighlight(highlight),
		engine.WithVerbosity(scenario.verbosity()),
		engine.WithSleeper(sleeper.Sleep),
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator("scenario-"+scenario.Name)),
		engine.WithNow(clock.Now),
	)
	if scenario.StopAfter > 0 {
		highlight.OnHighlight = func(int) {
			if len(highlight.Positions) == scenario.StopAfter {
				eng.Stop()
			}
		}
	}

	if err := eng.SetSettings(scenario.Settings); err != nil {
		return nil, fmt.Errorf("configure engine: %w", err)
	}
	if err := eng.SetProgram(scenario.Program); err != nil {
		return nil, fmt.Errorf("configure engine: %w", err)
	}
	if err := eng.SetInput(scenario.Input); err != nil {
		return nil, fmt.Errorf("configure engine: %w", err)
	}

	report, runErr := eng.Run(ctx)
	if runErr != nil && !errors.Is(runErr, loops.ErrMismatchedBrackets) {
		return nil, fmt.Errorf("run scenario %s: %w", scenario.Name, runErr)
	}

	rec := ir.RunRecord{
		Report:  report,
		Program: scenario.Program,
		Input:   scenario.Input,
		Output:  out.String(),
	}
	if err := st.WriteRun(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist run: %w", err)
	}
	stored, err := st.ReadRun(ctx, report.RunID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("persisted run %s not found", report.RunID)
	}
	if err != nil {
		return nil, fmt.Errorf("read back run: %w", err)
	}

	result := NewResult()
	result.Report = stored.Report
	result.Output = stored.Output
	if highlight.Positions != nil {
		result.Positions = highlight.Positions
	}
	if msgs := status.Messages(); len(msgs) > 0 {
		result.Messages = msgs
	}

	checkExpect(scenario.Expect, result)
	return result, nil
}
