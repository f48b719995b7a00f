// Package manifest handles bfvm.toml project defaults.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/roach88/bfvm/internal/ir"
)

// FileName is the manifest file looked up by FindAndLoad.
const FileName = "bfvm.toml"

// Manifest represents a bfvm.toml project configuration.
type Manifest struct {
	Settings SettingsSection `toml:"settings"`
	Log      LogSection      `toml:"log"`
	Store    StoreSection    `toml:"store"`
	Profiles ProfilesSection `toml:"profiles"`

	// Dir is the directory containing the manifest (set at load time).
	Dir string `toml:"-"`
}

// SettingsSection overrides the built-in interpreter defaults. Unset keys
// leave the corresponding setting alone.
type SettingsSection struct {
	Negatives *bool  `toml:"negatives"`
	Wrapping  *bool  `toml:"wrapping"`
	CellSize  *int64 `toml:"cell_size"`
	DelayMs   *int64 `toml:"delay_ms"`
}

// LogSection configures diagnostics.
type LogSection struct {
	Verbosity string `toml:"verbosity"`
	File      string `toml:"file"`
	Journal   bool   `toml:"journal"`
}

// StoreSection configures run history.
type StoreSection struct {
	DB string `toml:"db"`
}

// ProfilesSection configures CUE settings profiles.
type ProfilesSection struct {
	Dir     string `toml:"dir"`
	Default string `toml:"default"`
}

// Load parses bfvm.toml from the given directory.
func Load(dir string) (*Manifest, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses a manifest at an explicit path. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if m.Log.Verbosity != "" {
		if _, err := ir.ParseImportance(m.Log.Verbosity); err != nil {
			return nil, fmt.Errorf("%s: log.verbosity: %w", path, err)
		}
	}

	m.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a bfvm.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// ApplyTo overlays the manifest's settings onto s.
func (m *Manifest) ApplyTo(s *ir.Settings) {
	if m == nil {
		return
	}
	if m.Settings.Negatives != nil {
		s.UsingNegatives = *m.Settings.Negatives
	}
	if m.Settings.Wrapping != nil {
		s.UsingWrapping = *m.Settings.Wrapping
	}
	if m.Settings.CellSize != nil {
		s.MaxCellSize = *m.Settings.CellSize
	}
	if m.Settings.DelayMs != nil {
		s.DelayMillis = *m.Settings.DelayMs
	}
}

// Verbosity returns the configured status threshold, or false when unset.
func (m *Manifest) Verbosity() (ir.Importance, bool) {
	if m == nil || m.Log.Verbosity == "" {
		return 0, false
	}
	level, err := ir.ParseImportance(m.Log.Verbosity)
	if err != nil {
		return 0, false
	}
	return level, true
}

// DBPath returns the run-history database path, resolved against Dir.
func (m *Manifest) DBPath() string {
	if m == nil {
		return ""
	}
	return m.resolve(m.Store.DB)
}

// ProfilesDir returns the profile directory, resolved against Dir.
func (m *Manifest) ProfilesDir() string {
	if m == nil {
		return ""
	}
	return m.resolve(m.Profiles.Dir)
}

// LogFilePath returns the JSON log file path, resolved against Dir.
func (m *Manifest) LogFilePath() string {
	if m == nil {
		return ""
	}
	return m.resolve(m.Log.File)
}

func (m *Manifest) resolve(p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
