package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bfvm/internal/ir"
	"github.com/roach88/bfvm/internal/manifest"
)

// ConfigOptions holds the flags shared by commands that need interpreter
// settings or project defaults.
type ConfigOptions struct {
	Negatives   bool
	Wrap        bool
	CellSize    int64
	Delay       int64
	Verbosity   string
	Profile     string
	ProfilesDir string
	Config      string
	Database    string
	LogFile     string
	Journal     bool

	// WorkDir is where bfvm.toml lookup starts. Defaults to ".".
	WorkDir string
}

// ResolvedConfig is the effective configuration after applying every layer.
type ResolvedConfig struct {
	Settings  ir.Settings
	Verbosity ir.Importance
	Profile   string // name of the applied profile, if any
	Database  string
	Log       LogOptions
	Manifest  *manifest.Manifest // nil when no bfvm.toml was found
}

func addSettingsFlags(cmd *cobra.Command, opts *ConfigOptions) {
	defaults := ir.DefaultSettings()
	cmd.Flags().BoolVar(&opts.Negatives, "negatives", defaults.UsingNegatives, "use signed cells")
	cmd.Flags().BoolVar(&opts.Wrap, "wrap", defaults.UsingWrapping, "wrap cell values at the domain bounds")
	cmd.Flags().Int64Var(&opts.CellSize, "cell-size", defaults.MaxCellSize, "number of distinct cell values")
	cmd.Flags().Int64Var(&opts.Delay, "delay", defaults.DelayMillis, "per-step delay in milliseconds")
	cmd.Flags().StringVar(&opts.Verbosity, "verbosity", "", "status threshold (low|normal|high|severe|priority)")
	cmd.Flags().StringVar(&opts.Profile, "profile", "", "named settings profile")
	cmd.Flags().StringVar(&opts.ProfilesDir, "profiles", "", "directory of CUE profile files")
}

func addProjectFlags(cmd *cobra.Command, opts *ConfigOptions) {
	cmd.Flags().StringVar(&opts.Config, "config", "", "path to bfvm.toml (default: search upward from the working directory)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run history")
	cmd.Flags().StringVar(&opts.LogFile, "log-file", "", "append JSON logs to this file")
	cmd.Flags().BoolVar(&opts.Journal, "journal", false, "also log to the systemd journal")
}

// resolveConfig layers the configuration, lowest precedence first:
// built-in defaults, bfvm.toml, a named CUE profile, explicit flags.
//
// A profile replaces all four settings, since the profile schema fills in
// defaults for any key the profile omits.
func resolveConfig(cmd *cobra.Command, root *RootOptions, opts *ConfigOptions) (*ResolvedConfig, *LoadError) {
	m, err := loadManifest(opts)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeConfig, Message: err.Error()}
	}

	cfg := &ResolvedConfig{
		Settings:  ir.DefaultSettings(),
		Verbosity: ir.ImportanceNormal,
		Manifest:  m,
	}
	m.ApplyTo(&cfg.Settings)
	if level, ok := m.Verbosity(); ok {
		cfg.Verbosity = level
	}

	profile := opts.Profile
	profilesDir := opts.ProfilesDir
	if m != nil {
		if profile == "" {
			profile = m.Profiles.Default
		}
		if profilesDir == "" {
			profilesDir = m.ProfilesDir()
		}
	}
	if profile != "" {
		if profilesDir == "" {
			return nil, &LoadError{Code: ErrCodeConfig, Message: fmt.Sprintf("profile %q requested but no profiles directory configured", profile)}
		}
		profiles, err := LoadProfiles(profilesDir)
		if err != nil {
			var loadErr *LoadError
			if errors.As(err, &loadErr) {
				return nil, loadErr
			}
			return nil, &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
		}
		p, ok := FindProfile(profiles, profile)
		if !ok {
			return nil, &LoadError{Code: ErrCodeProfileNotFound, Message: fmt.Sprintf("profile %q not found in %s", profile, profilesDir)}
		}
		cfg.Settings = p.Settings
		cfg.Profile = p.Name
	}

	flags := cmd.Flags()
	if flags.Changed("negatives") {
		cfg.Settings.UsingNegatives = opts.Negatives
	}
	if flags.Changed("wrap") {
		cfg.Settings.UsingWrapping = opts.Wrap
	}
	if flags.Changed("cell-size") {
		cfg.Settings.MaxCellSize = opts.CellSize
	}
	if flags.Changed("delay") {
		cfg.Settings.DelayMillis = opts.Delay
	}
	if opts.Verbosity != "" {
		level, err := ir.ParseImportance(opts.Verbosity)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeConfig, Message: err.Error()}
		}
		cfg.Verbosity = level
	}

	if err := cfg.Settings.Validate(); err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidSettings, Message: err.Error()}
	}

	cfg.Database = opts.Database
	cfg.Log = LogOptions{Verbose: root.Verbose, File: opts.LogFile, Journal: opts.Journal}
	if m != nil {
		if cfg.Database == "" {
			cfg.Database = m.DBPath()
		}
		if cfg.Log.File == "" {
			cfg.Log.File = m.LogFilePath()
		}
		cfg.Log.Journal = cfg.Log.Journal || m.Log.Journal
	}
	return cfg, nil
}

func loadManifest(opts *ConfigOptions) (*manifest.Manifest, error) {
	if opts.Config != "" {
		return manifest.LoadFile(opts.Config)
	}
	dir := opts.WorkDir
	if dir == "" {
		dir = "."
	}
	return manifest.FindAndLoad(dir)
}

// exitCodeFor maps a load error code to the command's exit code. A profile
// that fails to compile is a content failure; everything else is a
// command error.
func exitCodeFor(code string) int {
	if code == ErrCodeInvalidProfile {
		return ExitFailure
	}
	return ExitCommandError
}
