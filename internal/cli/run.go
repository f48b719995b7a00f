package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/bfvm/internal/engine"
	"github.com/roach88/bfvm/internal/ir"
	"github.com/roach88/bfvm/internal/loops"
	"github.com/roach88/bfvm/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigOptions
	Input     string
	InputFile string
}

// RunResult is the JSON payload of a finished run.
type RunResult struct {
	Report  ir.RunReport `json:"report"`
	Summary string       `json:"summary"`
	Output  string       `json:"output"`
	Profile string       `json:"profile,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <program-file>",
		Short: "Execute a program",
		Long: `Execute a program on a fresh tape.

Program output streams to stdout as it is produced. When the run ends a
summary is printed to stderr, or the full run report is written as JSON
with --format json. SIGINT and SIGTERM stop the run after the current
instruction.

Exit codes:
  0 - Run completed or was stopped
  1 - Mismatched loop brackets
  2 - Command error (missing file, bad flags, database error)

Examples:
  bfvm run hello.b
  bfvm run echo.b --input "hi"
  bfvm run rot13.b --input-file text.txt --negatives --cell-size 65536
  bfvm run slow.b --delay 50 --verbosity low
  bfvm run hello.b --db runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "input", "", "input consumed by ','")
	cmd.Flags().StringVar(&opts.InputFile, "input-file", "", "read the input from a file")
	cmd.MarkFlagsMutuallyExclusive("input", "input-file")
	addSettingsFlags(cmd, &opts.ConfigOptions)
	addProjectFlags(cmd, &opts.ConfigOptions)

	return cmd
}

func runProgram(opts *RunOptions, programFile string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	source, err := os.ReadFile(programFile)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("cannot read program: %v", err), nil)
	}
	input := opts.Input
	if opts.InputFile != "" {
		data, err := os.ReadFile(opts.InputFile)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("cannot read input: %v", err), nil)
		}
		input = string(data)
	}

	cfg, loadErr := resolveConfig(cmd, opts.RootOptions, &opts.ConfigOptions)
	if loadErr != nil {
		return f.Fail(exitCodeFor(loadErr.Code), loadErr.Code, loadErr.Message, nil)
	}

	cleanup, err := setupLogging(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	defer cleanup()

	// JSON mode returns the output inside the response instead of
	// interleaving it with the encoded report.
	var stream io.Writer
	if opts.Format != "json" {
		stream = cmd.OutOrStdout()
	}
	out := newTeeOutput(stream, cfg.Settings.DelayMillis > 0)

	eng := engine.New(
		engine.WithOutput(out),
		engine.WithStatus(engine.SlogStatus{}),
		engine.WithVerbosity(cfg.Verbosity),
	)

	if err := eng.SetSettings(cfg.Settings); err != nil {
		return f.Fail(ExitCommandError, ErrCodeInvalidSettings, err.Error(), nil)
	}
	if err := eng.SetProgram(string(source)); err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	if err := eng.SetInput(input); err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping", "signal", sig)
			eng.Stop()
		case <-ctx.Done():
		}
	}()

	slog.Debug("run configured",
		"program", programFile,
		"profile", cfg.Profile,
		"cell_size", cfg.Settings.MaxCellSize,
		"negatives", cfg.Settings.UsingNegatives,
		"wrapping", cfg.Settings.UsingWrapping,
		"delay_ms", cfg.Settings.DelayMillis,
	)

	report, runErr := eng.Run(ctx)
	if err := out.Flush(); err != nil {
		slog.Warn("flush output", "error", err)
	}
	mismatched := errors.Is(runErr, loops.ErrMismatchedBrackets)
	if runErr != nil && !mismatched {
		return f.Fail(ExitCommandError, ErrCodeGeneric, runErr.Error(), nil)
	}

	if cfg.Database != "" {
		rec := ir.RunRecord{
			Report:  report,
			Program: string(source),
			Input:   input,
			Output:  out.String(),
		}
		if err := recordRun(ctx, cfg.Database, rec); err != nil {
			return f.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
		}
		f.VerboseLog("recorded run %s in %s", report.RunID, cfg.Database)
	}

	if mismatched {
		var bracketErr *loops.BracketError
		details := map[string]any{"run_id": report.RunID}
		if errors.As(runErr, &bracketErr) {
			details["position"] = bracketErr.Pos
			details["kind"] = bracketErr.Kind.String()
		}
		return f.Fail(ExitFailure, ErrCodeMismatchedBrackets, runErr.Error(), details)
	}

	if opts.Format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(CLIResponse{
			Status: "ok",
			Data: RunResult{
				Report:  report,
				Summary: report.Summary(),
				Output:  out.String(),
				Profile: cfg.Profile,
			},
			RunID: report.RunID,
		})
	}

	w := cmd.ErrOrStderr()
	if s := out.String(); s != "" && !strings.HasSuffix(s, "\n") {
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, report.Summary())
	return nil
}

// recordRun appends the run to the history database at path.
func recordRun(ctx context.Context, path string, rec ir.RunRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	if err := st.WriteRun(ctx, rec); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// teeOutput streams program output to a writer while keeping a copy for
// the run record.
type teeOutput struct {
	w          *bufio.Writer // nil when not streaming
	buf        strings.Builder
	unbuffered bool
}

func newTeeOutput(w io.Writer, unbuffered bool) *teeOutput {
	t := &teeOutput{unbuffered: unbuffered}
	if w != nil {
		t.w = bufio.NewWriter(w)
	}
	return t
}

func (t *teeOutput) WriteRune(r rune) (int, error) {
	n, _ := t.buf.WriteRune(r)
	if t.w == nil {
		return n, nil
	}
	if _, err := t.w.WriteRune(r); err != nil {
		return 0, err
	}
	// A slow program should show its output as it runs.
	if t.unbuffered || r == '\n' {
		if err := t.w.Flush(); err != nil {
			return 0, err
		}
	}
	return n, nil
}

func (t *teeOutput) Flush() error {
	if t.w == nil {
		return nil
	}
	return t.w.Flush()
}

func (t *teeOutput) String() string {
	return t.buf.String()
}
