package harness

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/roach88/runcost/internal/ir"
)

// defaultTolerance is used when an assertion does not set one.
const defaultTolerance = 1e-9

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string    // Assertion type for categorization
	Expected string    // Human-readable expected outcome
	Actual   string    // Human-readable actual outcome
	Series   ir.Series // Asserted series for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Series.Data) > 0 {
		fmt.Fprintf(&buf, "\nSeries %q:\n", e.Series.Label)
		for i, dp := range e.Series.Data {
			fmt.Fprintf(&buf, "  [%d] %s %v\n", i, dp.Timestamp, dp.Value)
		}
	}

	return buf.String()
}

// assertFinalValue checks the last datapoint's value.
func assertFinalValue(series ir.Series, assertion Assertion) error {
	last, ok := series.Last()
	if !ok {
		return &AssertionError{
			Type:     AssertFinalValue,
			Expected: fmt.Sprintf("final value %v", *assertion.Value),
			Actual:   "series is empty",
		}
	}
	if !withinTolerance(last.Value, *assertion.Value, assertion.Tolerance) {
		return &AssertionError{
			Type:     AssertFinalValue,
			Expected: fmt.Sprintf("final value %v (±%v)", *assertion.Value, tolerance(assertion)),
			Actual:   fmt.Sprintf("%v at %s", last.Value, last.Timestamp),
			Series:   series,
		}
	}
	return nil
}

// assertPointCount checks the number of datapoints.
func assertPointCount(series ir.Series, assertion Assertion) error {
	if len(series.Data) != assertion.Count {
		return &AssertionError{
			Type:     AssertPointCount,
			Expected: fmt.Sprintf("%d datapoints", assertion.Count),
			Actual:   fmt.Sprintf("%d datapoints", len(series.Data)),
			Series:   series,
		}
	}
	return nil
}

// assertMonotonic checks that values never move against the direction.
// Equal consecutive values are allowed.
func assertMonotonic(series ir.Series, assertion Assertion) error {
	for i := 1; i < len(series.Data); i++ {
		prev, curr := series.Data[i-1].Value, series.Data[i].Value
		var broken bool
		switch assertion.Direction {
		case DirectionIncreasing:
			broken = curr < prev
		case DirectionDecreasing:
			broken = curr > prev
		}
		if broken {
			return &AssertionError{
				Type:     AssertMonotonic,
				Expected: fmt.Sprintf("%s values", assertion.Direction),
				Actual: fmt.Sprintf("%v at %s followed by %v at %s",
					prev, series.Data[i-1].Timestamp, curr, series.Data[i].Timestamp),
				Series: series,
			}
		}
	}
	return nil
}

// assertDatapoint checks the value recorded at a timestamp.
func assertDatapoint(series ir.Series, assertion Assertion, loc *time.Location) error {
	at, err := ir.ParseTimestamp(assertion.At, loc)
	if err != nil {
		return fmt.Errorf("datapoint: %w", err)
	}

	for _, dp := range series.Data {
		if dp.Timestamp != at {
			continue
		}
		if withinTolerance(dp.Value, *assertion.Value, assertion.Tolerance) {
			return nil
		}
		return &AssertionError{
			Type:     AssertDatapoint,
			Expected: fmt.Sprintf("value %v (±%v) at %s", *assertion.Value, tolerance(assertion), at),
			Actual:   fmt.Sprintf("value %v", dp.Value),
			Series:   series,
		}
	}

	return &AssertionError{
		Type:     AssertDatapoint,
		Expected: fmt.Sprintf("datapoint at %s", at),
		Actual:   "no datapoint at that timestamp",
		Series:   series,
	}
}

// assertSteps checks the number of processed events.
func assertSteps(steps int, assertion Assertion) error {
	if steps != assertion.Count {
		return &AssertionError{
			Type:     AssertSteps,
			Expected: fmt.Sprintf("%d steps", assertion.Count),
			Actual:   fmt.Sprintf("%d steps", steps),
		}
	}
	return nil
}

func tolerance(a Assertion) float64 {
	if a.Tolerance == 0 {
		return defaultTolerance
	}
	return a.Tolerance
}

func withinTolerance(actual, expected, tol float64) bool {
	if tol == 0 {
		tol = defaultTolerance
	}
	return math.Abs(actual-expected) <= tol
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	// Location parses datapoint timestamps. nil means UTC.
	Location *time.Location
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	loc := time.UTC
	if actx != nil && actx.Location != nil {
		loc = actx.Location
	}

	for i, assertion := range assertions {
		if assertion.Type == AssertSteps {
			if err := assertSteps(result.Steps, assertion); err != nil {
				errors = append(errors, err.Error())
			}
			continue
		}

		series, ok := result.Select(assertion.Series)
		if !ok {
			errors = append(errors, fmt.Sprintf("assertion[%d]: series %q is not available", i, assertion.Series))
			continue
		}

		var err error
		switch assertion.Type {
		case AssertFinalValue:
			err = assertFinalValue(series, assertion)
		case AssertPointCount:
			err = assertPointCount(series, assertion)
		case AssertMonotonic:
			err = assertMonotonic(series, assertion)
		case AssertDatapoint:
			err = assertDatapoint(series, assertion, loc)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
