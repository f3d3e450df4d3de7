package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/wardbook/internal/record"
)

// Scenario defines a multi-session synchronization scenario.
// Scenarios drive named sessions (the in-process analogue of browser tabs)
// against one shared store and bus, and snapshot the notification trace and
// final per-session console state for golden comparison.
type Scenario struct {
	// Name uniquely identifies this scenario (and its golden file).
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps run in order. Each step acts through one named session.
	Steps []Step `yaml:"steps"`
}

// Step is one action in a scenario, executed through the named session.
// Exactly one of Register, Query, or Clear must be set.
type Step struct {
	// Session names the acting session. Sessions are created on first use.
	Session string `yaml:"session"`

	// Register submits the given patient through the session's form.
	Register *record.PatientInput `yaml:"register,omitempty"`

	// Query runs free-text SQL through the session's console.
	Query string `yaml:"query,omitempty"`

	// Clear wipes state: "results" or "form".
	Clear string `yaml:"clear,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so a typo fails loudly instead of silently
// skipping a step.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Session == "" {
			return fmt.Errorf("steps[%d]: session is required", i)
		}
		actions := 0
		if step.Register != nil {
			actions++
		}
		if step.Query != "" {
			actions++
		}
		if step.Clear != "" {
			actions++
		}
		if actions != 1 {
			return fmt.Errorf("steps[%d]: exactly one of register, query, clear is required", i)
		}
		if step.Clear != "" && step.Clear != "results" && step.Clear != "form" {
			return fmt.Errorf("steps[%d]: clear must be \"results\" or \"form\"", i)
		}
	}

	return nil
}
