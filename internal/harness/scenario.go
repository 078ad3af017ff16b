package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance run: a document, a scripted play
// sequence, and assertions on the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario; it also names the golden
	// snapshot file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Document is the game document to load, relative to the scenario
	// file's directory.
	Document string `yaml:"document"`

	// Players is the seat count for the run.
	Players int `yaml:"players"`

	// Seed fixes the shuffle RNG. Zero means seed 1.
	Seed int64 `yaml:"seed,omitempty"`

	// Token fixes the game token. Empty defaults to the scenario name.
	Token string `yaml:"token,omitempty"`

	// Inputs are the answers fed to REQUEST_INPUT actions, in order.
	// A run that asks for more inputs than scripted gets cancellations.
	Inputs []any `yaml:"inputs,omitempty"`

	// Commands are the external events posted after setup, in order.
	// Each command is followed by a tick.
	Commands []Command `yaml:"commands,omitempty"`

	// Ticks is the number of extra ticks after the last command, for
	// games driven by implicit phase advancement. Zero means none.
	Ticks int `yaml:"ticks,omitempty"`

	// Assertions validate the delta stream and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Command is one external event posted to the engine.
type Command struct {
	// Event is the event name, e.g. "action.draw" or "on.play".
	Event string `yaml:"event"`

	// Actor is the posting seat. Defaults to seat 0.
	Actor int `yaml:"actor,omitempty"`

	// Payload carries event data, converted to engine values.
	Payload map[string]any `yaml:"payload,omitempty"`
}

// Assertion validates the delta stream or the final state.
type Assertion struct {
	// Type selects the check: delta_contains, delta_order, delta_count,
	// final_zone, final_variable, terminal_result.
	Type string `yaml:"type"`

	// Kind is the delta kind (delta_contains, delta_count).
	Kind string `yaml:"kind,omitempty"`

	// Payload holds expected payload fields, subset match
	// (delta_contains).
	Payload map[string]any `yaml:"payload,omitempty"`

	// Events is the expected dispatch order (delta_order).
	Events []string `yaml:"events,omitempty"`

	// Count is the expected number of occurrences (delta_count,
	// final_zone).
	Count int `yaml:"count,omitempty"`

	// Zone names the zone to inspect (final_zone). Per-player zones use
	// the instance key, e.g. "hand:0".
	Zone string `yaml:"zone,omitempty"`

	// Variable names the variable to read (final_variable).
	Variable string `yaml:"variable,omitempty"`

	// Player is the owning seat for scoped variables (final_variable).
	// Defaults to seat 0; ignored for globals.
	Player int `yaml:"player,omitempty"`

	// Value is the expected value (final_variable, terminal_result).
	Value any `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertDeltaContains  = "delta_contains"
	AssertDeltaOrder     = "delta_order"
	AssertDeltaCount     = "delta_count"
	AssertFinalZone      = "final_zone"
	AssertFinalVariable  = "final_variable"
	AssertTerminalResult = "terminal_result"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so that typos fail loudly instead of silently skipping checks.
// The document path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if !filepath.IsAbs(scenario.Document) {
		scenario.Document = filepath.Join(filepath.Dir(path), scenario.Document)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Document == "" {
		return fmt.Errorf("document is required")
	}
	if _, err := os.Stat(s.Document); os.IsNotExist(err) {
		return fmt.Errorf("document not found: %s", s.Document)
	}
	if s.Players < 1 {
		return fmt.Errorf("players must be at least 1")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, cmd := range s.Commands {
		if cmd.Event == "" {
			return fmt.Errorf("commands[%d]: event is required", i)
		}
		if cmd.Actor < 0 {
			return fmt.Errorf("commands[%d]: actor must be a seat index", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertDeltaContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for delta_contains", index)
		}
	case AssertDeltaOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for delta_order", index)
		}
	case AssertDeltaCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for delta_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertFinalZone:
		if a.Zone == "" {
			return fmt.Errorf("assertions[%d]: zone is required for final_zone", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertFinalVariable:
		if a.Variable == "" {
			return fmt.Errorf("assertions[%d]: variable is required for final_variable", index)
		}
	case AssertTerminalResult:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for terminal_result", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
