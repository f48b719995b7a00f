package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/roach88/bfvm/internal/ir"
	"github.com/roach88/bfvm/internal/loops"
	"github.com/roach88/bfvm/internal/tape"
)

// Diagnostic messages that become the engine's status text.
const (
	MsgScanning    = "Scanning for loops..."
	MsgMismatched  = "Mismatched loop brackets"
	MsgExecuting   = "Executing instructions..."
	MsgFinished    = "Finished execution"
	MsgStopped     = "Stopped."
	msgInitialized = "Interpreter initialized (verbosity: %s)"
)

const defaultVerbosity = ir.ImportanceNormal

// Engine executes one program at a time against a growable tape.
//
// Multiple engines are independent; nothing is shared between instances.
type Engine struct {
	// mu guards the configuration below and the Idle/Halted→Running
	// transition.
	mu       sync.Mutex
	source   string
	code     []rune
	input    []rune
	settings ir.Settings

	verbosity ir.Importance
	output    Output
	status    Status
	highlight Highlight
	sleep     Sleeper
	runIDs    RunIDGenerator
	now       func() time.Time

	state      atomic.Int32
	stopReq    atomic.Bool
	steps      StepCounter
	lastReason atomic.Value // ir.HaltReason

	statusMu   sync.Mutex
	statusText string

	// Execution state, owned by the Run goroutine.
	codePointer   int
	memoryPointer int
	inputCursor   int
	tape          *tape.Tape
	loops         *loops.Table
	outputFailed  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithOutput sets the output collaborator. Without one, '.' is a no-op
// apart from counting as a step.
func WithOutput(o Output) Option {
	return func(e *Engine) {
		e.output = o
	}
}

// WithStatus sets the status collaborator.
func WithStatus(s Status) Option {
	return func(e *Engine) {
		e.status = s
	}
}

// WithHighlight sets the highlight collaborator.
func WithHighlight(h Highlight) Option {
	return func(e *Engine) {
		e.highlight = h
	}
}

// WithVerbosity sets the minimum importance forwarded to the status
// collaborator. Default: NORMAL.
func WithVerbosity(level ir.Importance) Option {
	return func(e *Engine) {
		e.verbosity = level
	}
}

// WithSettings sets the initial settings. They are validated by Run.
func WithSettings(s ir.Settings) Option {
	return func(e *Engine) {
		e.settings = s
	}
}

// WithSleeper replaces the per-step delay implementation.
func WithSleeper(s Sleeper) Option {
	return func(e *Engine) {
		e.sleep = s
	}
}

// WithRunIDGenerator replaces the default UUIDv7 run IDs.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithNow replaces the wall clock used for report timestamps.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an idle engine with an empty program and empty input.
func New(opts ...Option) *Engine {
	e := &Engine{
		settings:  ir.DefaultSettings(),
		verbosity: defaultVerbosity,
		sleep:     SleepContext,
		runIDs:    UUIDv7Generator{},
		now:       time.Now,
	}
	e.lastReason.Store(ir.HaltNone)

	for _, opt := range opts {
		opt(e)
	}

	e.logf(ir.ImportancePriority, msgInitialized, e.verbosity)
	return e
}

// SetProgram replaces the program source. Returns ErrRunning while a run
// is in progress.
func (e *Engine) SetProgram(source string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.State() == StateRunning {
		return ErrRunning
	}
	e.source = source
	e.code = []rune(source)
	return nil
}

// SetInput replaces the input consumed by ','. Returns ErrRunning while a
// run is in progress.
func (e *Engine) SetInput(input string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.State() == StateRunning {
		return ErrRunning
	}
	e.input = []rune(input)
	return nil
}

// SetSettings validates and replaces the settings. Returns ErrRunning
// while a run is in progress and ErrInvalidSettings on validation failure;
// in both cases the current settings are kept.
func (e *Engine) SetSettings(s ir.Settings) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.State() == StateRunning {
		return ErrRunning
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	e.log(ir.ImportanceLow, "Setting options...")
	e.settings = s
	return nil
}

// Program returns the current program source.
func (e *Engine) Program() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source
}

// Settings returns the current settings.
func (e *Engine) Settings() ir.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// Verbosity returns the status threshold.
func (e *Engine) Verbosity() ir.Importance {
	return e.verbosity
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// LastReason returns why the most recent run halted, or HaltNone.
func (e *Engine) LastReason() ir.HaltReason {
	return e.lastReason.Load().(ir.HaltReason)
}

// Steps returns the number of opcodes executed by the current run.
func (e *Engine) Steps() int64 {
	return e.steps.Current()
}

// Status returns the most recent diagnostic above LOW importance.
func (e *Engine) Status() string {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	return e.statusText
}

// Stop requests that the current run halt. The request takes effect at the
// next step checkpoint, so at most one more instruction executes.
// Returns false if no run is in progress.
func (e *Engine) Stop() bool {
	if e.State() != StateRunning {
		return false
	}
	e.stopReq.Store(true)
	return true
}

// Run executes the program to completion or until stopped.
//
// Brackets are validated first. An unbalanced program halts with
// HaltMismatchedBrackets before any tape mutation or output, and the
// returned error matches loops.ErrMismatchedBrackets. Cancelling ctx is
// equivalent to calling Stop.
//
// The report is filled in for every outcome except ErrRunning and
// ErrInvalidSettings.
func (e *Engine) Run(ctx context.Context) (ir.RunReport, error) {
	e.mu.Lock()
	if e.State() == StateRunning {
		e.mu.Unlock()
		return ir.RunReport{}, ErrRunning
	}
	if err := e.settings.Validate(); err != nil {
		e.mu.Unlock()
		return ir.RunReport{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	code := e.code
	input := e.input
	settings := e.settings
	report := ir.RunReport{
		RunID:     e.runIDs.Generate(),
		Settings:  settings,
		StartedAt: e.now(),
	}
	if h, err := ir.ProgramHash(e.source, settings); err == nil {
		report.ProgramHash = h
	} else {
		slog.Warn("program hash failed", "run_id", report.RunID, "error", err)
	}

	e.log(ir.ImportanceNormal, MsgScanning)
	table, err := loops.Resolve(code)
	if err != nil {
		e.log(ir.ImportanceSevere, MsgMismatched)
		e.halt(ir.HaltMismatchedBrackets)
		e.mu.Unlock()

		report.Reason = ir.HaltMismatchedBrackets
		report.Status = e.Status()
		report.FinishedAt = e.now()
		slog.Info("run refused",
			"run_id", report.RunID,
			"reason", report.Reason,
			"error", err,
		)
		return report, fmt.Errorf("resolve loops: %w", err)
	}
	e.logPairs(table)

	e.loops = table
	e.tape = tape.New(tape.Policy{
		Negatives:   settings.UsingNegatives,
		Wrapping:    settings.UsingWrapping,
		MaxCellSize: settings.MaxCellSize,
	})
	e.codePointer = 0
	e.memoryPointer = 0
	e.inputCursor = 0
	e.outputFailed = false
	e.steps.Reset()
	e.stopReq.Store(false)
	e.state.Store(int32(StateRunning))
	e.mu.Unlock()

	slog.Debug("run starting",
		"run_id", report.RunID,
		"program_hash", report.ProgramHash,
		"length", len(code),
		"loops", table.Pairs(),
	)
	e.log(ir.ImportanceSevere, MsgExecuting)

	reason := e.execute(ctx, code, input, settings)
	switch reason {
	case ir.HaltStopped:
		e.log(ir.ImportanceSevere, MsgStopped)
	default:
		e.log(ir.ImportanceSevere, MsgFinished)
	}

	report.Reason = reason
	report.Status = e.Status()
	report.Steps = e.steps.Current()
	report.PeakCells = e.tape.Len()
	report.MemoryPointer = e.memoryPointer
	report.Tape = e.tape.Snapshot()
	report.FinishedAt = e.now()

	e.reset()
	e.halt(reason)

	slog.Info("run finished",
		"run_id", report.RunID,
		"reason", report.Reason,
		"steps", report.Steps,
		"peak_cells", report.PeakCells,
	)
	return report, nil
}

// execute is the step loop. It returns HaltCompleted when the code pointer
// passes the end of the program and HaltStopped when a stop is observed.
func (e *Engine) execute(ctx context.Context, code, input []rune, settings ir.Settings) ir.HaltReason {
	delay := time.Duration(settings.DelayMillis) * time.Millisecond

	for e.codePointer < len(code) {
		if !e.dispatch(code[e.codePointer], input, settings.MaxCellSize) {
			e.codePointer++
			continue
		}
		e.codePointer++
		e.steps.Next()

		if e.highlight != nil {
			e.highlight.Highlight(e.codePointer)
		}
		if delay > 0 {
			e.sleep(ctx, delay)
		}
		if e.stopReq.Load() || ctx.Err() != nil {
			return ir.HaltStopped
		}
	}
	return ir.HaltCompleted
}

// dispatch executes one character. It returns false for characters that
// are not opcodes.
func (e *Engine) dispatch(c rune, input []rune, cellSize int64) bool {
	switch c {
	case '+':
		e.logf(ir.ImportanceLow, "+: Incrementing cell %d", e.memoryPointer)
		e.tape.Increment(e.memoryPointer)

	case '-':
		e.logf(ir.ImportanceLow, "-: Decrementing cell %d", e.memoryPointer)
		e.tape.Decrement(e.memoryPointer)

	case '>':
		e.logf(ir.ImportanceLow, ">: Moving forward to cell %d", e.memoryPointer+1)
		e.memoryPointer = e.tape.MoveForward(e.memoryPointer)

	case '<':
		e.logf(ir.ImportanceLow, "<: Moving backward to cell %d", e.memoryPointer-1)
		e.memoryPointer = e.tape.MoveBackward(e.memoryPointer)

	case '[':
		if e.tape.Read(e.memoryPointer) == 0 {
			e.codePointer, _ = e.loops.Close(e.codePointer)
			e.logf(ir.ImportanceLow, "[: Jumping forward to %d", e.codePointer)
		}

	case ']':
		if e.tape.Read(e.memoryPointer) != 0 {
			e.codePointer, _ = e.loops.Open(e.codePointer)
			e.logf(ir.ImportanceLow, "]: Jumping back to %d", e.codePointer)
		}

	case '.':
		e.emit(cellRune(e.tape.Read(e.memoryPointer)))

	case ',':
		e.readInput(input, cellSize)

	default:
		return false
	}
	return true
}

// cellRune maps a cell to the character it prints. Values outside the code
// point range are truncated to 16 bits, so -1 prints U+FFFF.
func cellRune(v int64) rune {
	if v < 0 || v > utf8.MaxRune {
		return rune(v & 0xFFFF)
	}
	return rune(v)
}

func (e *Engine) emit(r rune) {
	e.logf(ir.ImportanceLow, ".: Outputting %q", r)
	if e.output == nil {
		return
	}
	if _, err := e.output.WriteRune(r); err != nil && !e.outputFailed {
		// Reported once per run; the run itself carries on.
		e.outputFailed = true
		slog.Warn("output write failed", "error", err)
	}
}

func (e *Engine) readInput(input []rune, cellSize int64) {
	if e.inputCursor >= len(input) {
		e.tape.Write(e.memoryPointer, 0)
	} else {
		v := int64(input[e.inputCursor])
		if v >= cellSize {
			v %= cellSize
		}
		e.tape.Write(e.memoryPointer, v)
		e.logf(ir.ImportanceLow, ",: Adding %d to memory", v)
	}
	e.inputCursor++
}

// reset returns the execution state to its initial values.
func (e *Engine) reset() {
	e.codePointer = 0
	e.memoryPointer = 0
	e.inputCursor = 0
	e.steps.Reset()
	e.tape.Reset()
	e.loops = nil
	if e.highlight != nil {
		e.highlight.ClearHighlight()
	}
}

func (e *Engine) halt(reason ir.HaltReason) {
	e.lastReason.Store(reason)
	e.state.Store(int32(StateHalted))
}

func (e *Engine) logPairs(table *loops.Table) {
	if e.verbosity > ir.ImportanceLow {
		return
	}
	table.Each(func(o, c int) {
		e.logf(ir.ImportanceLow, "[] @ %d-%d", o, c)
	})
}

// logf formats only when the message can be observed: LOW messages never
// become status text, so they are dropped early below the threshold.
func (e *Engine) logf(level ir.Importance, format string, args ...any) {
	if level <= ir.ImportanceLow && level < e.verbosity {
		return
	}
	e.log(level, fmt.Sprintf(format, args...))
}

func (e *Engine) log(level ir.Importance, msg string) {
	if level > ir.ImportanceLow {
		e.statusMu.Lock()
		e.statusText = msg
		e.statusMu.Unlock()
	}
	if level >= e.verbosity && e.status != nil {
		e.report(level, msg)
	}
}

// report shields the run from a failing status collaborator.
func (e *Engine) report(level ir.Importance, msg string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("status collaborator panicked", "panic", r, "message", msg)
		}
	}()
	e.status.Report(level, msg)
}
