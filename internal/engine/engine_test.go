package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bfvm/internal/ir"
	"github.com/roach88/bfvm/internal/loops"
	"github.com/roach88/bfvm/internal/testutil"
)

func newTestEngine(t *testing.T, program, input string, opts ...Option) (*Engine, *strings.Builder) {
	t.Helper()
	out := &strings.Builder{}
	opts = append([]Option{WithOutput(out)}, opts...)
	e := New(opts...)
	require.NoError(t, e.SetProgram(program))
	require.NoError(t, e.SetInput(input))
	return e, out
}

func TestEngine_New(t *testing.T) {
	e := New()

	assert.Equal(t, StateIdle, e.State())
	assert.Equal(t, ir.HaltNone, e.LastReason())
	assert.Equal(t, ir.DefaultSettings(), e.Settings())
	assert.Equal(t, ir.ImportanceNormal, e.Verbosity())
	assert.Equal(t, "", e.Program())
	assert.Equal(t, int64(0), e.Steps())
	assert.Equal(t, "Interpreter initialized (verbosity: NORMAL)", e.Status())
}

func TestEngine_IndependentInstances(t *testing.T) {
	a, outA := newTestEngine(t, "++.", "")
	b, outB := newTestEngine(t, "+++.", "")

	_, err := a.Run(context.Background())
	require.NoError(t, err)
	_, err = b.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "\x02", outA.String())
	assert.Equal(t, "\x03", outB.String())
}

func TestEngine_Run_IncrementAndOutput(t *testing.T) {
	e, out := newTestEngine(t, "++.", "")

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, string(rune(2)), out.String())
	assert.Equal(t, ir.HaltCompleted, report.Reason)
	assert.Equal(t, int64(3), report.Steps)
	assert.Equal(t, 1, report.PeakCells)
	assert.Equal(t, []int64{2}, report.Tape)
}

func TestEngine_Run_LoopTerminates(t *testing.T) {
	e, _ := newTestEngine(t, "+++[-]", "")

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	// 3 '+', one '[' and three iterations of '-' ']'.
	assert.Equal(t, int64(10), report.Steps)
	assert.Equal(t, []int64{0}, report.Tape)
	assert.Equal(t, ir.HaltCompleted, report.Reason)
}

func TestEngine_Run_EchoInput(t *testing.T) {
	e, out := newTestEngine(t, ",[.,]", "AB")

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "AB", out.String())
	assert.Equal(t, ir.HaltCompleted, report.Reason)
	assert.Equal(t, int64(8), report.Steps)
	assert.Equal(t, []int64{0}, report.Tape)
}

func TestEngine_Run_InputExhaustion(t *testing.T) {
	e, _ := newTestEngine(t, ",>,>,", "A")

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int64{65, 0, 0}, report.Tape)
	assert.Equal(t, 2, report.MemoryPointer)
}

func TestEngine_Run_InputReducedModCellSize(t *testing.T) {
	// U+0101 is 257, one past the end of a 256-value cell.
	e, _ := newTestEngine(t, ",", "\u0101")

	report, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, report.Tape)
}

func TestEngine_Run_InputBelowCellSizeKept(t *testing.T) {
	e, _ := newTestEngine(t, ",", "\u00ff")

	report, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{255}, report.Tape)
}

func TestEngine_Run_NonOpcodesIgnored(t *testing.T) {
	e, _ := newTestEngine(t, "a+ b\n+c", "")

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), report.Steps)
	assert.Equal(t, []int64{2}, report.Tape)
}

func TestEngine_Run_EmptyLoopSkipped(t *testing.T) {
	e, _ := newTestEngine(t, "[]+", "")

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	// '[' jumps past ']' on a zero cell, then '+'.
	assert.Equal(t, int64(2), report.Steps)
	assert.Equal(t, []int64{1}, report.Tape)
}

func TestEngine_Run_EmptyProgram(t *testing.T) {
	e, out := newTestEngine(t, "", "")

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ir.HaltCompleted, report.Reason)
	assert.Equal(t, int64(0), report.Steps)
	assert.Empty(t, out.String())
	assert.Equal(t, "Finished execution", report.Summary())
}

func TestEngine_Run_TapeGrowsBackward(t *testing.T) {
	e, _ := newTestEngine(t, "+<++", "")

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 1}, report.Tape)
	assert.Equal(t, 0, report.MemoryPointer)
	assert.Equal(t, 2, report.PeakCells)
}

func TestEngine_Run_SignedWrap(t *testing.T) {
	settings := ir.Settings{UsingNegatives: true, UsingWrapping: true, MaxCellSize: 256}
	e, _ := newTestEngine(t, "+"+strings.Repeat("+", 127), "", WithSettings(settings))

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	// First touch sets 1, then 127 more increments pass 127 and wrap.
	assert.Equal(t, []int64{-128}, report.Tape)
}

func TestEngine_Run_SignedFirstTouchDecrement(t *testing.T) {
	settings := ir.Settings{UsingNegatives: true, UsingWrapping: true, MaxCellSize: 256}
	e, _ := newTestEngine(t, "-", "", WithSettings(settings))

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	// The first-touch rule ignores the signed domain.
	assert.Equal(t, []int64{255}, report.Tape)
}

func TestEngine_Run_NoWrapUnbounded(t *testing.T) {
	settings := ir.Settings{UsingWrapping: false, MaxCellSize: 4}
	e, _ := newTestEngine(t, "+++++>-->-", "", WithSettings(settings))

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int64{5, -2, -1}, report.Tape)
}

func TestEngine_Run_SignedGrownCellDecrement(t *testing.T) {
	settings := ir.Settings{UsingNegatives: true, UsingWrapping: true, MaxCellSize: 256}
	e, _ := newTestEngine(t, ">-<<-", "", WithSettings(settings))

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	// Cells added by moving hold a real zero, so only the initial cell bootstraps.
	assert.Equal(t, []int64{-1, 0, -1}, report.Tape)
}

func TestEngine_Run_NegativeCellOutput(t *testing.T) {
	settings := ir.Settings{UsingNegatives: true, UsingWrapping: true, MaxCellSize: 256}
	e, out := newTestEngine(t, ">-.-.", "", WithSettings(settings))

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "\uffff\ufffe", out.String())
}

func TestCellRune(t *testing.T) {
	tests := []struct {
		cell int64
		want rune
	}{
		{65, 'A'},
		{0, 0},
		{0x10FFFF, 0x10FFFF},
		{-1, 0xFFFF},
		{-65536 - 191, 0xFF41},
		{0x110000 + 'A', 'A'},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cellRune(tt.cell), "cell %d", tt.cell)
	}
}

func TestEngine_Run_MismatchedBrackets(t *testing.T) {
	tests := []struct {
		name    string
		program string
	}{
		{"unclosed open", "+[[-]."},
		{"close before open", "+.][."},
		{"stray close", "+.]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			highlight := &testutil.RecordingHighlight{}
			e, out := newTestEngine(t, tt.program, "", WithHighlight(highlight))

			report, err := e.Run(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, loops.ErrMismatchedBrackets))

			var bracketErr *loops.BracketError
			assert.True(t, errors.As(err, &bracketErr))

			assert.Empty(t, out.String(), "no output before validation")
			assert.Empty(t, highlight.Positions)
			assert.Equal(t, ir.HaltMismatchedBrackets, report.Reason)
			assert.Equal(t, int64(0), report.Steps)
			assert.Nil(t, report.Tape)
			assert.Equal(t, MsgMismatched, report.Status)
			assert.Equal(t, StateHalted, e.State())
			assert.Equal(t, ir.HaltMismatchedBrackets, e.LastReason())
		})
	}
}

func TestEngine_Run_RecoversAfterMismatch(t *testing.T) {
	e, out := newTestEngine(t, "[", "")

	_, err := e.Run(context.Background())
	require.Error(t, err)

	require.NoError(t, e.SetProgram("+."))
	report, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ir.HaltCompleted, report.Reason)
	assert.Equal(t, "\x01", out.String())
}

func TestEngine_Run_StopMidRun(t *testing.T) {
	highlight := &testutil.RecordingHighlight{}
	e, _ := newTestEngine(t, ">>>>>>>>", "", WithHighlight(highlight))

	var stopped []bool
	highlight.OnHighlight = func(pos int) {
		if len(highlight.Positions) == 3 {
			stopped = append(stopped, e.Stop())
		}
	}

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []bool{true}, stopped)
	assert.Equal(t, []int{1, 2, 3}, highlight.Positions, "no instruction after the stop checkpoint")
	assert.Equal(t, ir.HaltStopped, report.Reason)
	assert.Equal(t, int64(3), report.Steps)
	assert.Equal(t, 4, report.PeakCells, "size before reset")
	assert.Equal(t, 3, report.MemoryPointer)
	assert.Len(t, report.Tape, 4)
	assert.Equal(t, MsgStopped, report.Status)
	assert.Equal(t, "Stopped. [Ran through 3 instructions, used 4 cells]", report.Summary())

	// Execution state is back to its initial values.
	assert.Equal(t, StateHalted, e.State())
	assert.Equal(t, ir.HaltStopped, e.LastReason())
	assert.Equal(t, int64(0), e.Steps())
	assert.Equal(t, 1, highlight.Clears)
}

func TestEngine_Stop_WhenNotRunning(t *testing.T) {
	e, _ := newTestEngine(t, "+", "")
	assert.False(t, e.Stop())

	_, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, e.Stop())
}

func TestEngine_Run_StopDoesNotCarryOver(t *testing.T) {
	highlight := &testutil.RecordingHighlight{}
	e, _ := newTestEngine(t, "+++", "", WithHighlight(highlight))

	highlight.OnHighlight = func(int) { e.Stop() }
	report, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ir.HaltStopped, report.Reason)

	highlight.OnHighlight = nil
	report, err = e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ir.HaltCompleted, report.Reason)
	assert.Equal(t, int64(3), report.Steps)
}

func TestEngine_Run_ContextCancel(t *testing.T) {
	e, _ := newTestEngine(t, "+++++", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := e.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, ir.HaltStopped, report.Reason)
	assert.Equal(t, int64(1), report.Steps, "one instruction before the first checkpoint")
}

func TestEngine_Run_Delay(t *testing.T) {
	sleeper := &testutil.FakeSleeper{}
	settings := ir.DefaultSettings()
	settings.DelayMillis = 5
	e, _ := newTestEngine(t, "+x+>", "", WithSettings(settings), WithSleeper(sleeper.Sleep))

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	want := []time.Duration{5 * time.Millisecond, 5 * time.Millisecond, 5 * time.Millisecond}
	assert.Equal(t, want, sleeper.Calls())
}

func TestEngine_Run_NoDelayNoSleep(t *testing.T) {
	sleeper := &testutil.FakeSleeper{}
	e, _ := newTestEngine(t, "+++", "", WithSleeper(sleeper.Sleep))

	_, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sleeper.Calls())
}

func TestEngine_Run_Highlight(t *testing.T) {
	highlight := &testutil.RecordingHighlight{}
	e, _ := newTestEngine(t, "+ +.", "", WithHighlight(highlight))

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3, 4}, highlight.Positions)
	assert.Equal(t, 1, highlight.Clears)
}

func TestEngine_Run_ReportIdentity(t *testing.T) {
	clock := testutil.NewDeterministicClock()
	e, _ := newTestEngine(t, "+.", "",
		WithRunIDGenerator(NewFixedGenerator("run-1", "run-2")),
		WithNow(clock.Now),
	)

	first, err := e.Run(context.Background())
	require.NoError(t, err)
	second, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", first.RunID)
	assert.Equal(t, "run-2", second.RunID)
	assert.Equal(t, testutil.DefaultEpoch, first.StartedAt)
	assert.Equal(t, testutil.DefaultEpoch.Add(time.Second), first.FinishedAt)
	assert.Equal(t, ir.MustProgramHash("+.", ir.DefaultSettings()), first.ProgramHash)
	assert.Equal(t, first.ProgramHash, second.ProgramHash)
	assert.Equal(t, ir.DefaultSettings(), first.Settings)
}

func TestEngine_Run_RepeatableRuns(t *testing.T) {
	e, out := newTestEngine(t, ",.,.", "hi")

	first, err := e.Run(context.Background())
	require.NoError(t, err)
	second, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "hihi", out.String(), "input cursor resets between runs")
	assert.Equal(t, first.Steps, second.Steps)
	assert.Equal(t, first.Tape, second.Tape)
}

func TestEngine_Run_OutputFailure(t *testing.T) {
	output := &testutil.FailingOutput{Err: errors.New("closed pipe")}
	e := New(WithOutput(output))
	require.NoError(t, e.SetProgram("+...+"))

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, output.Writes)
	assert.Equal(t, ir.HaltCompleted, report.Reason)
	assert.Equal(t, int64(5), report.Steps)
}

func TestEngine_Run_NoOutputCollaborator(t *testing.T) {
	e := New()
	require.NoError(t, e.SetProgram("+."))

	report, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Steps)
}

func TestEngine_SettersWhileRunning(t *testing.T) {
	highlight := &testutil.RecordingHighlight{}
	e, _ := newTestEngine(t, "++", "", WithHighlight(highlight))

	var errs []error
	highlight.OnHighlight = func(pos int) {
		if pos != 1 {
			return
		}
		errs = append(errs,
			e.SetProgram("-"),
			e.SetInput("x"),
			e.SetSettings(ir.DefaultSettings()),
		)
		_, err := e.Run(context.Background())
		errs = append(errs, err)
	}

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, errs, 4)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrRunning)
		assert.True(t, IsRunningError(err))
	}
	assert.Equal(t, "++", e.Program(), "program unchanged")
	assert.Equal(t, int64(2), report.Steps)
}

func TestEngine_SetSettings_Invalid(t *testing.T) {
	e := New()

	err := e.SetSettings(ir.Settings{MaxCellSize: 0})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSettings)
	assert.Contains(t, err.Error(), "cell size must be >= 1")
	assert.Equal(t, ir.DefaultSettings(), e.Settings(), "settings unchanged")

	err = e.SetSettings(ir.Settings{MaxCellSize: 8, DelayMillis: -1})
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestEngine_Run_InvalidInitialSettings(t *testing.T) {
	e := New(WithSettings(ir.Settings{MaxCellSize: -3}))
	require.NoError(t, e.SetProgram("+"))

	_, err := e.Run(context.Background())
	assert.ErrorIs(t, err, ErrInvalidSettings)
	assert.Equal(t, StateIdle, e.State())
}

func TestEngine_SetSettings_Applies(t *testing.T) {
	e, _ := newTestEngine(t, "+++++", "")
	require.NoError(t, e.SetSettings(ir.Settings{UsingWrapping: true, MaxCellSize: 4}))

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	// 1, 2, 3, 4 → 0, 1
	assert.Equal(t, []int64{1}, report.Tape)
}

func TestEngine_StatusThreshold(t *testing.T) {
	tests := []struct {
		name      string
		verbosity ir.Importance
		want      []string
	}{
		{
			name:      "normal",
			verbosity: ir.ImportanceNormal,
			want: []string{
				"Interpreter initialized (verbosity: NORMAL)",
				MsgScanning,
				MsgExecuting,
				MsgFinished,
			},
		},
		{
			name:      "severe",
			verbosity: ir.ImportanceSevere,
			want: []string{
				"Interpreter initialized (verbosity: SEVERE)",
				MsgExecuting,
				MsgFinished,
			},
		},
		{
			name:      "priority",
			verbosity: ir.ImportancePriority,
			want: []string{
				"Interpreter initialized (verbosity: PRIORITY)",
			},
		},
		{
			name:      "low",
			verbosity: ir.ImportanceLow,
			want: []string{
				"Interpreter initialized (verbosity: LOW)",
				MsgScanning,
				MsgExecuting,
				"+: Incrementing cell 0",
				MsgFinished,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := &testutil.RecordingStatus{}
			e, _ := newTestEngine(t, "+", "", WithStatus(status), WithVerbosity(tt.verbosity))

			report, err := e.Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.want, status.Messages())
			// Status text tracks messages above LOW regardless of threshold.
			assert.Equal(t, MsgFinished, e.Status())
			assert.Equal(t, MsgFinished, report.Status)
		})
	}
}

func TestEngine_StatusLowMessages(t *testing.T) {
	status := &testutil.RecordingStatus{}
	e, _ := newTestEngine(t, "+[-]>,<.", "", WithStatus(status), WithVerbosity(ir.ImportanceLow))

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	msgs := status.Messages()
	assert.Contains(t, msgs, "[] @ 1-3")
	assert.Contains(t, msgs, "-: Decrementing cell 0")
	assert.Contains(t, msgs, ">: Moving forward to cell 1")
	assert.Contains(t, msgs, "<: Moving backward to cell 0")
	assert.Contains(t, msgs, ".: Outputting '\\x00'")

	for _, entry := range status.Entries() {
		if strings.HasPrefix(entry.Message, "+:") {
			assert.Equal(t, ir.ImportanceLow, entry.Level)
		}
	}
}

func TestEngine_PanickingStatus(t *testing.T) {
	e, out := newTestEngine(t, "++.", "", WithStatus(testutil.PanickingStatus{}))

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ir.HaltCompleted, report.Reason)
	assert.Equal(t, "\x02", out.String())
}
