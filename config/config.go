// Package config loads component definitions and rule files from YAML, and
// runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/amp-labs/flexiflow/statemachine"
	"github.com/amp-labs/flexiflow/symbols"
	"gopkg.in/yaml.v3"
)

// DefaultInitialState is used when a component file leaves initial_state empty.
const DefaultInitialState = "InitialState"

var (
	ErrNameRequired      = errors.New("component name is required")
	ErrInvalidPackRef    = errors.New("invalid pack reference")
	ErrInvalidStateRef   = errors.New("invalid state reference")
	ErrEmptyMappingEntry = errors.New("state mapping entry is empty")
)

// Component describes one component:
//
//	name: example_component
//	rules:
//	  - rule1: "..."
//	initial_state: "InitialState"
//	states:
//	  Custom: "tests.fixtures:FixtureInitial"
//	packs:
//	  - "flexiflow.states:BuiltinPack"
type Component struct {
	Name         string              `json:"name"          yaml:"name"`
	Rules        []statemachine.Rule `json:"rules"         yaml:"rules"`
	InitialState string              `json:"initial_state" yaml:"initial_state"`
	States       map[string]string   `json:"states"        yaml:"states"`
	Packs        []string            `json:"packs"         yaml:"packs"`
}

// Rules is the shape of a standalone rules file.
type Rules struct {
	Rules []statemachine.Rule `json:"rules" yaml:"rules"`
}

// LoadComponent reads and validates a component file.
func LoadComponent(path string) (*Component, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	return LoadComponentFromBytes(data)
}

// LoadComponentFromFS reads a component file from fsys.
func LoadComponentFromFS(fsys fs.FS, path string) (*Component, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config from FS: %w", err)
	}

	return LoadComponentFromBytes(data)
}

// LoadComponentFromBytes parses and validates a component definition.
func LoadComponentFromBytes(data []byte) (*Component, error) {
	var cfg Component

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.InitialState == "" {
		cfg.InitialState = DefaultInitialState
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the fields that can be checked without a symbol table.
func (c *Component) Validate() error {
	if c.Name == "" {
		return ErrNameRequired
	}

	if symbols.IsReference(c.InitialState) {
		if _, _, err := symbols.Split(c.InitialState); err != nil {
			return fmt.Errorf("%w: initial_state: %w", ErrInvalidStateRef, err)
		}
	}

	for _, ref := range c.Packs {
		if _, _, err := symbols.Split(ref); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPackRef, err)
		}
	}

	for key, ref := range c.States {
		if key == "" || ref == "" {
			return fmt.Errorf("%w: %q: %q", ErrEmptyMappingEntry, key, ref)
		}
	}

	return nil
}

// LoadRules reads a rules file and returns its rules in file order.
func LoadRules(path string) ([]statemachine.Rule, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
	}

	return ParseRules(data)
}

// ParseRules parses a rules document. JSON bodies are accepted too, being
// valid YAML.
func ParseRules(data []byte) ([]statemachine.Rule, error) {
	var rules Rules

	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return rules.Rules, nil
}
