package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/runcost/internal/ir"
)

// ErrNoSchedule is wrapped by ConfigurationError when a schedule has
// neither a fixed interval nor a custom rule.
var ErrNoSchedule = errors.New("component has neither a fixed interval nor a custom rule")

// ConfigurationError reports a component or definition that cannot be
// computed. It aborts the whole computation; no partial result is returned.
type ConfigurationError struct {
	// Component is the index of the offending component, or -1 when the
	// error concerns the definition or window as a whole.
	Component int

	// Field names the offending setting (e.g. "interval", "unit").
	Field string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	var msg string
	switch {
	case e.Component >= 0 && e.Field != "":
		msg = fmt.Sprintf("configuration error: component %d: %s: %s", e.Component, e.Field, e.Message)
	case e.Component >= 0:
		msg = fmt.Sprintf("configuration error: component %d: %s", e.Component, e.Message)
	case e.Field != "":
		msg = fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
	default:
		msg = fmt.Sprintf("configuration error: %s", e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// InvariantViolation reports a component whose schedule failed to move time
// forward. Without this check such a component would never retire.
type InvariantViolation struct {
	Component int          // index of the offending component
	From      ir.Timestamp // time the schedule was asked from
	Next      ir.Timestamp // time the schedule returned
}

// Error implements the error interface.
func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: component %d scheduled from %d to %d, next fire time must be after %d",
		e.Component, e.From, e.Next, e.From)
}

// NonFiniteValueError reports a formula that produced NaN or an infinity.
// The computation stops at the offending event.
type NonFiniteValueError struct {
	Component int          // index of the component that fired
	Timestamp ir.Timestamp // firing time
	Previous  float64      // aggregate before the firing
	Value     float64      // value the formula returned
}

// Error implements the error interface.
func (e *NonFiniteValueError) Error() string {
	return fmt.Sprintf("non-finite value: component %d at %d produced %v from %v",
		e.Component, e.Timestamp, e.Value, e.Previous)
}

// IsNonFiniteValueError returns true if err is or wraps a NonFiniteValueError.
func IsNonFiniteValueError(err error) bool {
	var nf *NonFiniteValueError
	return errors.As(err, &nf)
}

// IsConfigurationError returns true if err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsInvariantViolation returns true if err is or wraps an InvariantViolation.
func IsInvariantViolation(err error) bool {
	var iv *InvariantViolation
	return errors.As(err, &iv)
}

// withComponent stamps a component index onto a ConfigurationError raised by
// a component that does not know its own position.
func withComponent(err error, index int) error {
	var ce *ConfigurationError
	if errors.As(err, &ce) && ce.Component < 0 {
		stamped := *ce
		stamped.Component = index
		return &stamped
	}
	return err
}
