package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/bfvm/internal/loops"
)

// CheckResult is the payload of a successful check.
type CheckResult struct {
	File  string `json:"file"`
	Pairs int    `json:"pairs"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <program-file>",
		Short: "Validate loop brackets without running",
		Long: `Validate that every '[' in a program has a matching ']'.

Nothing is executed. On success the number of loop pairs is reported;
otherwise the position (in characters, from 0) of the offending bracket.

Exit codes:
  0 - Brackets balanced
  1 - Mismatched loop brackets
  2 - Command error (missing file, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkProgram(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func checkProgram(opts *RootOptions, programFile string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	source, err := os.ReadFile(programFile)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("cannot read program: %v", err), nil)
	}

	table, err := loops.ResolveString(string(source))
	if err != nil {
		var bracketErr *loops.BracketError
		if errors.As(err, &bracketErr) {
			return f.Fail(ExitFailure, ErrCodeMismatchedBrackets,
				fmt.Sprintf("%s: %v", programFile, err),
				map[string]any{"position": bracketErr.Pos, "kind": bracketErr.Kind.String()})
		}
		return f.Fail(ExitFailure, ErrCodeMismatchedBrackets, err.Error(), nil)
	}

	if opts.Format == "json" {
		return f.Success(CheckResult{File: programFile, Pairs: table.Pairs()})
	}
	return f.Success(fmt.Sprintf("✓ %s: %d loop pair(s)", programFile, table.Pairs()))
}
