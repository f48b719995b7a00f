package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/roach88/bfvm/internal/ir"
	"github.com/roach88/bfvm/internal/store"
)

// DefaultHistoryLimit is the number of runs listed when --limit is not set.
const DefaultHistoryLimit = 20

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Config   string
	Program  string // program hash filter
	Limit    int
}

// HistoryEntry is one row of the run listing.
type HistoryEntry struct {
	Seq         int64         `json:"seq"`
	RunID       string        `json:"run_id"`
	ProgramHash string        `json:"program_hash"`
	Reason      ir.HaltReason `json:"reason"`
	Steps       int64         `json:"steps"`
	PeakCells   int           `json:"peak_cells"`
	StartedAt   time.Time     `json:"started_at"`
	Summary     string        `json:"summary"`
}

// HistoryResult is the JSON payload of a run listing.
type HistoryResult struct {
	Runs  []HistoryEntry `json:"runs"`
	Total int64          `json:"total"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs",
		Long: `Show runs recorded with 'bfvm run --db'.

Without arguments the most recent runs are listed, oldest first. With a
run ID the full record is shown, including the program, its input and
output and the final tape.

The database defaults to [store] db in bfvm.toml.

Examples:
  bfvm history --db runs.db
  bfvm history --db runs.db --limit 5
  bfvm history --db runs.db --program <hash>
  bfvm history --db runs.db 01928c4e-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return showHistory(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run history")
	cmd.Flags().StringVar(&opts.Config, "config", "", "path to bfvm.toml")
	cmd.Flags().StringVar(&opts.Program, "program", "", "only runs of this program hash")
	cmd.Flags().IntVar(&opts.Limit, "limit", DefaultHistoryLimit, "number of runs to list (0 for all)")

	return cmd
}

func showHistory(opts *HistoryOptions, runID string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	dbPath := opts.Database
	if dbPath == "" {
		m, err := loadManifest(&ConfigOptions{Config: opts.Config})
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
		}
		dbPath = m.DBPath()
	}
	if dbPath == "" {
		return f.Fail(ExitCommandError, ErrCodeConfig, "no database: pass --db or set [store] db in bfvm.toml", nil)
	}
	if _, err := os.Stat(dbPath); err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", dbPath), nil)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if runID != "" {
		rec, err := st.ReadRun(ctx, runID)
		if errors.Is(err, sql.ErrNoRows) {
			return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run not found: %s", runID), nil)
		}
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
		}
		if opts.Format == "json" {
			return f.Success(rec)
		}
		printRunRecord(f, rec)
		return nil
	}

	var runs []ir.RunRecord
	if opts.Program != "" {
		runs, err = st.RunsForProgram(ctx, opts.Program)
		if err == nil && opts.Limit > 0 && len(runs) > opts.Limit {
			runs = runs[len(runs)-opts.Limit:]
		}
	} else {
		runs, err = st.ListRuns(ctx, opts.Limit)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}
	total, err := st.CountRuns(ctx)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}

	entries := lo.Map(runs, func(rec ir.RunRecord, _ int) HistoryEntry {
		return HistoryEntry{
			Seq:         rec.Seq,
			RunID:       rec.Report.RunID,
			ProgramHash: rec.Report.ProgramHash,
			Reason:      rec.Report.Reason,
			Steps:       rec.Report.Steps,
			PeakCells:   rec.Report.PeakCells,
			StartedAt:   rec.Report.StartedAt,
			Summary:     rec.Report.Summary(),
		}
	})

	if opts.Format == "json" {
		return f.Success(HistoryResult{Runs: entries, Total: total})
	}

	if len(entries) == 0 {
		fmt.Fprintln(f.Writer, "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tRUN ID\tPROGRAM\tREASON\tSTEPS\tCELLS\tSTARTED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%s\n",
			e.Seq, e.RunID, shortHash(e.ProgramHash), e.Reason, e.Steps, e.PeakCells,
			e.StartedAt.Format(time.RFC3339))
	}
	if err := tw.Flush(); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	fmt.Fprintf(f.Writer, "%d of %d run(s)\n", len(entries), total)
	return nil
}

// printRunRecord writes the detailed text view of a single run.
func printRunRecord(f *OutputFormatter, rec ir.RunRecord) {
	w := f.Writer
	r := rec.Report
	fmt.Fprintf(w, "Run:       %s (seq %d)\n", r.RunID, rec.Seq)
	fmt.Fprintf(w, "Program:   %s\n", r.ProgramHash)
	fmt.Fprintf(w, "Settings:  negatives=%t wrapping=%t cell_size=%d delay_ms=%d\n",
		r.Settings.UsingNegatives, r.Settings.UsingWrapping, r.Settings.MaxCellSize, r.Settings.DelayMillis)
	fmt.Fprintf(w, "Started:   %s\n", r.StartedAt.Format(time.RFC3339Nano))
	fmt.Fprintf(w, "Finished:  %s\n", r.FinishedAt.Format(time.RFC3339Nano))
	fmt.Fprintf(w, "Result:    %s\n", r.Summary())
	fmt.Fprintf(w, "Pointer:   %d\n", r.MemoryPointer)
	fmt.Fprintf(w, "Tape:      %v\n", r.Tape)
	fmt.Fprintf(w, "Input:     %q\n", rec.Input)
	fmt.Fprintf(w, "Output:    %q\n", rec.Output)
	f.VerboseLog("source:\n%s", rec.Program)
}

// shortHash abbreviates a program hash for tabular output.
func shortHash(h string) string {
	const n = 12
	if len(h) <= n {
		return h
	}
	return h[:n]
}
