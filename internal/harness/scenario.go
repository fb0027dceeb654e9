package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/opencitations/time-agnostic-library-sub000/internal/provenance"
)

// Scenario defines a time-travel query test.
// A scenario loads a fixture, runs one query over every recorded state of
// the fixture dataset, and asserts on the per-instant results.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fixture is the path of a store fixture holding the present dataset
	// and its provenance. Relative paths are resolved against the
	// scenario file location.
	Fixture string `yaml:"fixture"`

	// Store selects the backend holding the fixture: "memory" (default)
	// or "sqlite".
	Store string `yaml:"store,omitempty"`

	// Cache selects the snapshot sink: empty keeps states in memory,
	// "sqlite" writes them as named graphs to a SQLite cache.
	Cache string `yaml:"cache,omitempty"`

	// Workers is the rebuild batch size above which entities are rebuilt
	// in parallel. Zero rebuilds sequentially.
	Workers int `yaml:"workers,omitempty"`

	// Query is the SELECT query to run.
	Query string `yaml:"query"`

	// At restricts the result to the snapshot in force at this instant.
	At string `yaml:"at,omitempty"`

	// Window requests binding maps for a range of instants. It excludes At.
	Window *WindowClause `yaml:"window,omitempty"`

	// Assertions validate the output.
	Assertions []Assertion `yaml:"assertions"`

	// SessionID is an optional fixed session id for deterministic tests.
	// If empty, defaults to "test-session-default".
	SessionID string `yaml:"session_id,omitempty"`
}

// WindowClause bounds a window. An empty bound is open.
type WindowClause struct {
	From string `yaml:"from,omitempty"`
	To   string `yaml:"to,omitempty"`
}

// Assertion validates the output of a run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "instants": Check the exact instant list
	// - "rows": Check the tuples of one instant (order-insensitive)
	// - "row_count": Check the number of tuples of one instant
	// - "error": Check the run failed with an error kind
	Type string `yaml:"type"`

	// Instants is the expected instant list (used by instants).
	Instants []string `yaml:"instants,omitempty"`

	// At names the instant (used by rows and row_count).
	At string `yaml:"at,omitempty"`

	// Rows are the expected tuples in canonical term encoding (used by
	// rows). Use "" for an unbound variable.
	Rows [][]string `yaml:"rows,omitempty"`

	// Count is the expected number of tuples (used by row_count).
	Count int `yaml:"count,omitempty"`

	// Kind is the expected error kind (used by error).
	Kind string `yaml:"kind,omitempty"`
}

// Assertion type constants.
const (
	AssertInstants = "instants"
	AssertRows     = "rows"
	AssertRowCount = "row_count"
	AssertError    = "error"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving the fixture path against
// dir.
func ParseScenario(data []byte, dir string) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Fixture != "" && !filepath.IsAbs(scenario.Fixture) && dir != "" {
		scenario.Fixture = filepath.Join(dir, scenario.Fixture)
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
	if s.Fixture == "" {
		return fmt.Errorf("fixture is required")
	}
	if _, err := os.Stat(s.Fixture); os.IsNotExist(err) {
		return fmt.Errorf("fixture file not found: %s", s.Fixture)
	}
	if s.Query == "" {
		return fmt.Errorf("query is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	switch s.Store {
	case "", "memory", "sqlite":
	default:
		return fmt.Errorf("unknown store %q (expected memory or sqlite)", s.Store)
	}
	switch s.Cache {
	case "", "sqlite":
	default:
		return fmt.Errorf("unknown cache %q (expected sqlite)", s.Cache)
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers must be non-negative")
	}
	if s.Window != nil && s.At != "" {
		return fmt.Errorf("at and window are mutually exclusive")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertInstants:
		for _, s := range a.Instants {
			if _, err := provenance.ParseInstant(s); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertRows, AssertRowCount:
		if a.At == "" {
			return fmt.Errorf("assertions[%d]: at is required for %s", index, a.Type)
		}
		if _, err := provenance.ParseInstant(a.At); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Type == AssertRowCount && a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	case AssertError:
		switch a.Kind {
		case ErrorQueryShape, ErrorNoSnapshot, ErrorInvalidInstant, ErrorUpstream:
		case "":
			return fmt.Errorf("assertions[%d]: kind is required for error", index)
		default:
			return fmt.Errorf("assertions[%d]: unknown error kind %q", index, a.Kind)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
