package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/runcost/internal/ir"
)

// OutputSnapshot captures the rendered output of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type OutputSnapshot struct {
	ScenarioName string      `json:"scenario_name"`
	Steps        int         `json:"steps"`
	Series       []ir.Series `json:"series"`
	Err          string      `json:"error,omitempty"`
}

// NewSnapshot builds the snapshot of a result.
func NewSnapshot(scenarioName string, result *Result) OutputSnapshot {
	return OutputSnapshot{
		ScenarioName: scenarioName,
		Steps:        result.Steps,
		Series:       result.Output,
		Err:          result.Err,
	}
}

// toCanonicalMap converts a snapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles plain value trees.
func (s *OutputSnapshot) toCanonicalMap() map[string]any {
	seriesList := make([]any, len(s.Series))
	for i, series := range s.Series {
		data := make([]any, len(series.Data))
		for j, dp := range series.Data {
			data[j] = map[string]any{
				"timestamp": dp.Timestamp,
				"value":     dp.Value,
			}
		}
		seriesList[i] = map[string]any{
			"label": series.Label,
			"data":  data,
		}
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"steps":         s.Steps,
		"series":        seriesList,
	}
	if s.Err != "" {
		result["error"] = s.Err
	}
	return result
}

// MarshalCanonical renders the snapshot as canonical JSON.
func (s *OutputSnapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its output against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the output doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's output against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := NewSnapshot(scenarioName, result)
	data, err := snapshot.MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
