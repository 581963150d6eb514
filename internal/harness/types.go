package harness

import "github.com/roach88/runcost/internal/ir"

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion holds and the expected error, if any, occurred.
	Pass bool `json:"pass"`

	// Primary is the computed primary series. Empty when the computation failed.
	Primary ir.Series `json:"primary"`

	// RunningCost is the derived running-cost series, nil unless tracked.
	RunningCost *ir.Series `json:"running_cost,omitempty"`

	// Output is the render-ordered series list used for golden comparison.
	Output []ir.Series `json:"output"`

	// Steps is the number of events the engine processed.
	Steps int `json:"steps"`

	// Err holds the computation error message when the scenario expects one.
	Err string `json:"error,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Output: []ir.Series{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Select returns the series an assertion targets. An empty name selects
// the primary series.
func (r *Result) Select(name string) (ir.Series, bool) {
	switch name {
	case "", SeriesPrimary:
		return r.Primary, true
	case SeriesRunningCost:
		if r.RunningCost == nil {
			return ir.Series{}, false
		}
		return *r.RunningCost, true
	default:
		return ir.Series{}, false
	}
}
