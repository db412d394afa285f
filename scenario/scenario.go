// Package scenario executes declarative YAML test scenarios against a
// reducer fixture through a TestStore, and compares the resulting trace
// against golden files.
//
// A scenario is a sequence of steps: send an action, advance virtual time,
// or receive an effect-produced action, each optionally followed by a
// partial assertion on the state. Scenario files are validated against a
// CUE schema before decoding, so malformed files fail with positions rather
// than producing confusing test results.
package scenario

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Action is the declarative action shape scenarios dispatch and match.
// Fields other than type are the payload; Receive matches them as a subset.
type Action struct {
	Type    string         `yaml:"type"`
	Payload map[string]any `yaml:",inline"`
}

// Step is one scenario step. Exactly one of Send, Receive or Advance must
// be set; State is an optional subset assertion applied after the step.
type Step struct {
	Send    *Action        `yaml:"send,omitempty"`
	Receive *Action        `yaml:"receive,omitempty"`
	Advance string         `yaml:"advance,omitempty"`
	State   map[string]any `yaml:"state,omitempty"`
}

// Scenario is a declarative test case.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Steps       []Step `yaml:"steps"`

	// FinalState is a subset assertion on the state after the last step.
	FinalState map[string]any `yaml:"final_state,omitempty"`

	// Partial turns off exhaustivity: unreceived actions and live timers
	// at the end of the scenario are not failures.
	Partial bool `yaml:"partial,omitempty"`
}

// LoadScenario reads, schema-validates and parses a scenario YAML file.
// Unknown fields are rejected to catch typos.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	if err := ValidateScenarioFile(path, data); err != nil {
		return nil, err
	}

	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario is missing a name")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", s.Name)
	}
	for i, step := range s.Steps {
		set := 0
		if step.Send != nil {
			set++
		}
		if step.Receive != nil {
			set++
		}
		if step.Advance != "" {
			set++
			if _, err := time.ParseDuration(step.Advance); err != nil {
				return fmt.Errorf("scenario %q step %d: invalid advance duration %q: %w", s.Name, i, step.Advance, err)
			}
		}
		if set != 1 {
			return fmt.Errorf("scenario %q step %d: exactly one of send, receive or advance is required", s.Name, i)
		}
		if step.Send != nil && step.Send.Type == "" {
			return fmt.Errorf("scenario %q step %d: send requires a type", s.Name, i)
		}
		if step.Receive != nil && step.Receive.Type == "" {
			return fmt.Errorf("scenario %q step %d: receive requires a type", s.Name, i)
		}
	}
	return nil
}
