package engine

import (
	"github.com/roach88/runcost/internal/ir"
)

// Component is one schedulable contributor to the shared aggregate value.
//
// Implementations must be pure: the same inputs always produce the same
// value and fire time. Compute relies on this for determinism.
type Component interface {
	// ComputeNext returns the new aggregate value when the component fires.
	ComputeNext(lastValue float64, step int, history History, firedAt ir.Timestamp) float64

	// NextFireTime returns the first fire time strictly after from.
	NextFireTime(from ir.Timestamp) (ir.Timestamp, error)
}

// Formula computes a new aggregate value from the previous one.
type Formula func(lastValue float64, step int, history History, firedAt ir.Timestamp) float64

// FuncComponent pairs a Formula with a Schedule.
type FuncComponent struct {
	Formula  Formula
	Schedule Schedule
}

// ComputeNext applies the formula. A nil formula leaves the value unchanged.
func (c FuncComponent) ComputeNext(lastValue float64, step int, history History, firedAt ir.Timestamp) float64 {
	if c.Formula == nil {
		return lastValue
	}
	return c.Formula(lastValue, step, history, firedAt)
}

// NextFireTime resolves the schedule.
func (c FuncComponent) NextFireTime(from ir.Timestamp) (ir.Timestamp, error) {
	return NextFireTime(c.Schedule, from)
}

// FixedInterval returns a component that fires every interval seconds.
func FixedInterval(interval int64, f Formula) FuncComponent {
	return FuncComponent{Formula: f, Schedule: Schedule{Interval: interval}}
}

// CustomRule returns a component whose fire times come from rule.
func CustomRule(rule Rule, f Formula) FuncComponent {
	return FuncComponent{Formula: f, Schedule: Schedule{Rule: rule}}
}

// History is a read-only view of the primary sequence computed so far.
type History struct {
	data []ir.Datapoint
}

// Len returns the number of datapoints.
func (h History) Len() int {
	return len(h.data)
}

// At returns the i-th datapoint. It panics if i is out of range.
func (h History) At(i int) ir.Datapoint {
	return h.data[i]
}

// Last returns the most recent datapoint. ok is false when the history is empty.
func (h History) Last() (ir.Datapoint, bool) {
	if len(h.data) == 0 {
		return ir.Datapoint{}, false
	}
	return h.data[len(h.data)-1], true
}
