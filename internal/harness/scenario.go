package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/runcost/internal/ir"
)

// Scenario defines a conformance test scenario.
// A scenario computes one series over a window and asserts on the
// resulting sequences.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Series is an inline series definition.
	// Exactly one of Series and Definition must be set.
	Series *ir.SeriesSpec `yaml:"series,omitempty"`

	// Definition is a path to a CUE or YAML definition file.
	// Relative paths are resolved against the base path given to
	// LoadScenarioWithBasePath.
	Definition string `yaml:"definition,omitempty"`

	// Use names the series to compute from Definition.
	Use string `yaml:"use,omitempty"`

	// Window bounds the computation. When omitted the series or file window
	// is used.
	Window *ir.WindowSpec `yaml:"window,omitempty"`

	// Timezone is an IANA zone name for calendar arithmetic. Defaults to UTC.
	Timezone string `yaml:"timezone,omitempty"`

	// MaxSteps caps the number of processed events. 0 means unlimited.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// ExpectError is a substring the computation error must contain.
	// When set, assertions are skipped.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions validate the computed sequences.
	// Supported types: final_value, point_count, monotonic, datapoint, steps
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Assertion validates a computed sequence.
type Assertion struct {
	// Type specifies the assertion type:
	// - "final_value": last datapoint value equals Value within Tolerance
	// - "point_count": sequence has exactly Count datapoints
	// - "monotonic": values move in Direction ("increasing" or "decreasing", non-strict)
	// - "datapoint": a datapoint exists At the timestamp with Value
	// - "steps": the engine processed exactly Count events
	Type string `yaml:"type"`

	// Series selects "primary" (default) or "running_cost".
	Series string `yaml:"series,omitempty"`

	// Value is the expected value (final_value, datapoint).
	Value *float64 `yaml:"value,omitempty"`

	// Tolerance is the allowed absolute difference. Defaults to 1e-9.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Count is the expected count (point_count, steps).
	Count int `yaml:"count,omitempty"`

	// Direction is "increasing" or "decreasing" (monotonic).
	Direction string `yaml:"direction,omitempty"`

	// At is a timestamp in ParseTimestamp syntax (datapoint).
	At string `yaml:"at,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalValue = "final_value"
	AssertPointCount = "point_count"
	AssertMonotonic  = "monotonic"
	AssertDatapoint  = "datapoint"
	AssertSteps      = "steps"
)

// Series selectors.
const (
	SeriesPrimary     = "primary"
	SeriesRunningCost = "running_cost"
)

// Monotonic directions.
const (
	DirectionIncreasing = "increasing"
	DirectionDecreasing = "decreasing"
)

// LoadScenario reads and parses a scenario YAML file.
// Definition paths are resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the definition path relative to the provided base path.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve definition path relative to base path BEFORE validation
	if scenario.Definition != "" && !filepath.IsAbs(scenario.Definition) && basePath != "" {
		scenario.Definition = filepath.Join(basePath, scenario.Definition)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return scenario, nil
}

// ParseScenario decodes scenario YAML without validating file references.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
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

	switch {
	case s.Series == nil && s.Definition == "":
		return fmt.Errorf("one of series or definition is required")
	case s.Series != nil && s.Definition != "":
		return fmt.Errorf("series and definition are mutually exclusive")
	case s.Definition != "" && s.Use == "":
		return fmt.Errorf("use is required with definition")
	case s.Series != nil && s.Use != "":
		return fmt.Errorf("use is only valid with definition")
	}

	if s.Definition != "" {
		if _, err := os.Stat(s.Definition); os.IsNotExist(err) {
			return fmt.Errorf("definition file not found: %s", s.Definition)
		}
	}

	if s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative")
	}

	if s.ExpectError == "" && len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required unless expect_error is set")
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

	switch a.Series {
	case "", SeriesPrimary, SeriesRunningCost:
	default:
		return fmt.Errorf("assertions[%d]: unknown series %q", index, a.Series)
	}

	if a.Tolerance < 0 {
		return fmt.Errorf("assertions[%d]: tolerance must be non-negative", index)
	}

	switch a.Type {
	case AssertFinalValue:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for final_value", index)
		}
	case AssertPointCount, AssertSteps:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertMonotonic:
		if a.Direction != DirectionIncreasing && a.Direction != DirectionDecreasing {
			return fmt.Errorf("assertions[%d]: direction must be %q or %q for monotonic",
				index, DirectionIncreasing, DirectionDecreasing)
		}
	case AssertDatapoint:
		if a.At == "" {
			return fmt.Errorf("assertions[%d]: at is required for datapoint", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for datapoint", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
