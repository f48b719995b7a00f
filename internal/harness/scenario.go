package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bfvm/internal/ir"
)

// Scenario defines a single program run and its expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the source to execute.
	Program string `yaml:"program"`

	// ProgramFile loads the source from a file instead of Program.
	// Relative paths are resolved against the scenario file's directory.
	ProgramFile string `yaml:"program_file,omitempty"`

	// Input is consumed by ','.
	Input string `yaml:"input,omitempty"`

	// Settings start from ir.DefaultSettings; keys present in the YAML
	// override them.
	Settings ir.Settings `yaml:"settings,omitempty"`

	// Verbosity is the status threshold used to collect Result.Messages.
	// Defaults to "normal".
	Verbosity string `yaml:"verbosity,omitempty"`

	// StopAfter requests Stop once this many steps have executed.
	// Zero means never.
	StopAfter int `yaml:"stop_after,omitempty"`

	// Expect describes the expected outcome.
	Expect Expect `yaml:"expect"`
}

// Expect lists the checks applied to a run. Nil fields are not checked.
type Expect struct {
	Reason          string   `yaml:"reason"`
	Output          *string  `yaml:"output,omitempty"`
	Steps           *int64   `yaml:"steps,omitempty"`
	PeakCells       *int     `yaml:"peak_cells,omitempty"`
	MemoryPointer   *int     `yaml:"memory_pointer,omitempty"`
	Cells           []int64  `yaml:"cells,omitempty"`
	Status          string   `yaml:"status,omitempty"`
	MessagesContain []string `yaml:"messages_contain,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.ProgramFile != "" {
		programPath := scenario.ProgramFile
		if !filepath.IsAbs(programPath) {
			programPath = filepath.Join(filepath.Dir(path), programPath)
		}
		src, err := os.ReadFile(programPath)
		if err != nil {
			return nil, fmt.Errorf("invalid scenario: program_file: %w", err)
		}
		scenario.Program = string(src)
	}

	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	scenario := Scenario{Settings: ir.DefaultSettings()}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarioFiles returns the .yaml and .yml files under dir, sorted.
// A non-empty filter is a glob matched against the file name without its
// extension.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Program != "" && s.ProgramFile != "" {
		return fmt.Errorf("program and program_file are mutually exclusive")
	}
	if s.StopAfter < 0 {
		return fmt.Errorf("stop_after must be non-negative")
	}
	if err := s.Settings.Validate(); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if s.Verbosity != "" {
		if _, err := ir.ParseImportance(s.Verbosity); err != nil {
			return fmt.Errorf("verbosity: %w", err)
		}
	}

	if s.Expect.Reason == "" {
		return fmt.Errorf("expect.reason is required")
	}
	if _, err := ir.ParseHaltReason(s.Expect.Reason); err != nil {
		return fmt.Errorf("expect.reason: %w", err)
	}
	return nil
}

// verbosity returns the scenario's status threshold.
func (s *Scenario) verbosity() ir.Importance {
	if s.Verbosity == "" {
		return ir.ImportanceNormal
	}
	level, _ := ir.ParseImportance(s.Verbosity)
	return level
}
