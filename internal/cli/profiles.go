package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/roach88/bfvm/internal/compiler"
	"github.com/roach88/bfvm/internal/ir"
)

// ProfilesOptions holds flags for the profiles command.
type ProfilesOptions struct {
	*RootOptions
	Config string
}

// ProfileInfo describes one compiled profile.
type ProfileInfo struct {
	Name     string      `json:"name"`
	Settings ir.Settings `json:"settings"`
	Position string      `json:"position,omitempty"`
}

// NewProfilesCommand creates the profiles command.
func NewProfilesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProfilesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "profiles [dir]",
		Short: "Compile and list settings profiles",
		Long: `Compile the CUE settings profiles in a directory and list them.

Profiles live under a top-level "profile" field:

  package profiles

  profile: signed16: {
      negatives: true
      cell_size: 65536
  }

Omitted keys take their defaults (negatives false, wrapping true,
cell_size 256, delay_ms 0). The directory defaults to [profiles] dir in
bfvm.toml.

Exit codes:
  0 - All profiles compiled
  1 - A profile is invalid
  2 - Command error (missing directory, CUE syntax error, etc.)`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return listProfiles(opts, dir, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to bfvm.toml")

	return cmd
}

func listProfiles(opts *ProfilesOptions, dir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if dir == "" {
		m, err := loadManifest(&ConfigOptions{Config: opts.Config})
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
		}
		dir = m.ProfilesDir()
	}
	if dir == "" {
		return f.Fail(ExitCommandError, ErrCodeConfig, "no profiles directory: pass one or set [profiles] dir in bfvm.toml", nil)
	}

	f.VerboseLog("loading profiles from %s", dir)
	profiles, err := LoadProfiles(dir)
	if err != nil {
		code := loadErrorCode(err)
		return f.Fail(exitCodeFor(code), code, err.Error(), nil)
	}

	infos := lo.Map(profiles, func(p compiler.Profile, _ int) ProfileInfo {
		info := ProfileInfo{Name: p.Name, Settings: p.Settings}
		if p.Pos.IsValid() {
			info.Position = fmt.Sprintf("%s:%d:%d", p.Pos.Filename(), p.Pos.Line(), p.Pos.Column())
		}
		return info
	})

	if opts.Format == "json" {
		return f.Success(infos)
	}

	if len(infos) == 0 {
		fmt.Fprintf(f.Writer, "No profiles defined in %s.\n", dir)
		return nil
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tNEGATIVES\tWRAPPING\tCELL SIZE\tDELAY MS")
	for _, p := range infos {
		fmt.Fprintf(tw, "%s\t%t\t%t\t%d\t%d\n",
			p.Name, p.Settings.UsingNegatives, p.Settings.UsingWrapping, p.Settings.MaxCellSize, p.Settings.DelayMillis)
	}
	if err := tw.Flush(); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	return nil
}
