package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScenarioOutcome is the result of one scenario file in a suite.
type ScenarioOutcome struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated" or "none"
	Errors []string `json:"errors,omitempty"`
}

// SuiteResult summarizes a suite run.
type SuiteResult struct {
	Scenarios []ScenarioOutcome `json:"scenarios"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Total     int               `json:"total"`
}

// SuiteOptions configures RunSuite.
type SuiteOptions struct {
	// BasePath resolves relative definition paths. Empty means each
	// scenario's own directory.
	BasePath string

	// Update rewrites golden files instead of comparing against them.
	Update bool

	// Options are passed to Run for every scenario.
	Options []Option
}

// FindScenarios returns the YAML scenario files under dir, sorted by path.
// filter is a glob matched against the file name without extension.
// Files inside golden directories are skipped.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if info.Name() == "golden" {
				return filepath.SkipDir
			}
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

// GoldenPath returns the golden file for a scenario file:
// <dir>/golden/<name>.golden
func GoldenPath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// RunSuite loads and runs every scenario file.
//
// For each file:
//  1. Load the scenario
//  2. Run it
//  3. Compare against (or rewrite) its golden file when one exists or Update is set
//  4. Record the outcome
func RunSuite(paths []string, opts SuiteOptions) *SuiteResult {
	result := &SuiteResult{
		Scenarios: make([]ScenarioOutcome, 0, len(paths)),
		Total:     len(paths),
	}

	for _, path := range paths {
		outcome := runSuiteScenario(path, opts)
		result.Scenarios = append(result.Scenarios, outcome)
		if outcome.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	return result
}

func runSuiteScenario(path string, opts SuiteOptions) ScenarioOutcome {
	outcome := ScenarioOutcome{Name: filepath.Base(path), Path: path}

	basePath := opts.BasePath
	if basePath == "" {
		basePath = filepath.Dir(path)
	}

	scenario, err := LoadScenarioWithBasePath(path, basePath)
	if err != nil {
		outcome.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return outcome
	}
	outcome.Name = scenario.Name

	result, err := Run(scenario, opts.Options...)
	if err != nil {
		outcome.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return outcome
	}
	outcome.Errors = result.Errors

	snapshot := NewSnapshot(scenario.Name, result)
	data, err := snapshot.MarshalCanonical()
	if err != nil {
		outcome.Errors = append(outcome.Errors, fmt.Sprintf("failed to marshal output: %v", err))
		return outcome
	}

	goldenPath := GoldenPath(path)
	switch {
	case opts.Update:
		if err := writeGolden(goldenPath, data); err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("failed to update golden file: %v", err))
			return outcome
		}
		outcome.Golden = "updated"
	default:
		want, err := os.ReadFile(goldenPath)
		switch {
		case os.IsNotExist(err):
			outcome.Golden = "none"
		case err != nil:
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("failed to read golden file: %v", err))
			return outcome
		case !bytes.Equal(want, data):
			outcome.Errors = append(outcome.Errors, "output does not match golden file")
			return outcome
		default:
			outcome.Golden = "match"
		}
	}

	outcome.Pass = result.Pass
	return outcome
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
