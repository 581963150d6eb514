package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer counts processed events and enforces an optional limit.
//
// The window end bounds every computation; the quota additionally caps
// the number of events a single computation may process.
type QuotaEnforcer struct {
	maxSteps int // 0 means unlimited
	current  int
}

// NewQuotaEnforcer creates a quota enforcer. maxSteps <= 0 disables the limit.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check increments the step counter and validates against the limit.
func (q *QuotaEnforcer) Check(label string) error {
	q.current++
	if q.maxSteps > 0 && q.current > q.maxSteps {
		return &StepsExceededError{
			Label: label,
			Steps: q.current,
			Limit: q.maxSteps,
		}
	}
	return nil
}

// Current returns the current step count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the configured limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is returned when a computation processes more events
// than the configured limit.
type StepsExceededError struct {
	Label string // series label
	Steps int    // number of steps attempted
	Limit int    // maximum allowed steps
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("series %q exceeded max steps quota: %d steps > %d limit",
		e.Label, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if err is or wraps a StepsExceededError.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
