package ir

import (
	"fmt"
	"strings"
)

// Default settings values.
const (
	DefaultMaxCellSize int64 = 256
	DefaultDelayMillis int64 = 0
)

// Settings is the interpreter configuration fixed for the duration of a run.
//
// INVARIANTS (checked by Validate):
//   - MaxCellSize >= 1
//   - DelayMillis >= 0
type Settings struct {
	// UsingNegatives selects the signed cell domain
	// [-(MaxCellSize/2), MaxCellSize/2 - 1] instead of [0, MaxCellSize-1].
	UsingNegatives bool `json:"negatives" yaml:"negatives" toml:"negatives"`

	// UsingWrapping enables wrap-around at the domain bounds. When disabled,
	// cell values are left unconstrained.
	UsingWrapping bool `json:"wrapping" yaml:"wrapping" toml:"wrapping"`

	// MaxCellSize is the number of distinct values a cell can hold.
	MaxCellSize int64 `json:"cell_size" yaml:"cell_size" toml:"cell_size"`

	// DelayMillis is the per-step sleep applied after every executed opcode.
	DelayMillis int64 `json:"delay_ms" yaml:"delay_ms" toml:"delay_ms"`
}

// DefaultSettings returns unsigned, wrapping, 256-value cells with no delay.
func DefaultSettings() Settings {
	return Settings{
		UsingNegatives: false,
		UsingWrapping:  true,
		MaxCellSize:    DefaultMaxCellSize,
		DelayMillis:    DefaultDelayMillis,
	}
}

// Validate checks the settings invariants.
func (s Settings) Validate() error {
	if s.MaxCellSize < 1 {
		return fmt.Errorf("cell size must be >= 1, got %d", s.MaxCellSize)
	}
	if s.DelayMillis < 0 {
		return fmt.Errorf("delay must be >= 0, got %d", s.DelayMillis)
	}
	return nil
}

// Canonical returns the settings as a map suitable for MarshalCanonical.
func (s Settings) Canonical() map[string]any {
	return map[string]any{
		"negatives": s.UsingNegatives,
		"wrapping":  s.UsingWrapping,
		"cell_size": s.MaxCellSize,
		"delay_ms":  s.DelayMillis,
	}
}

// Importance tags a diagnostic message. Only messages at or above the
// engine's verbosity threshold reach the status collaborator.
type Importance int

const (
	ImportanceLow      Importance = 1
	ImportanceNormal   Importance = 2
	ImportanceHigh     Importance = 4
	ImportanceSevere   Importance = 8
	ImportancePriority Importance = 128 // cap
)

// String names the smallest level the value does not exceed.
func (i Importance) String() string {
	switch {
	case i <= ImportanceLow:
		return "LOW"
	case i <= ImportanceNormal:
		return "NORMAL"
	case i <= ImportanceHigh:
		return "HIGH"
	case i <= ImportanceSevere:
		return "SEVERE"
	default:
		return "PRIORITY"
	}
}

// ImportanceNames lists the accepted level names, lowest first.
var ImportanceNames = []string{"low", "normal", "high", "severe", "priority"}

// ParseImportance parses a level name case-insensitively.
func ParseImportance(name string) (Importance, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "low":
		return ImportanceLow, nil
	case "normal":
		return ImportanceNormal, nil
	case "high":
		return ImportanceHigh, nil
	case "severe":
		return ImportanceSevere, nil
	case "priority":
		return ImportancePriority, nil
	default:
		return 0, fmt.Errorf("unknown importance %q: must be one of %v", name, ImportanceNames)
	}
}
