package engine

import (
	"github.com/roach88/runcost/internal/ir"
)

// Rule computes the next fire time from a given time. Rules may perform
// calendar-aware arithmetic.
type Rule func(from ir.Timestamp) (ir.Timestamp, error)

// Schedule describes when a component fires. Exactly one of Interval or
// Rule should be set; if both are, Rule wins.
type Schedule struct {
	Interval int64 // seconds between firings
	Rule     Rule
}

// NextFireTime resolves the next fire time of a schedule from the given time.
//
//   - fixed interval: from + interval
//   - custom rule: rule(from)
//   - neither: ConfigurationError wrapping ErrNoSchedule
//
// NextFireTime does not check forward progress; Compute does.
func NextFireTime(s Schedule, from ir.Timestamp) (ir.Timestamp, error) {
	if s.Rule != nil {
		return s.Rule(from)
	}
	if s.Interval < 0 {
		return 0, &ConfigurationError{
			Component: -1,
			Field:     "interval",
			Message:   "interval must not be negative",
		}
	}
	if s.Interval == 0 {
		return 0, &ConfigurationError{
			Component: -1,
			Field:     "schedule",
			Message:   "no usable schedule",
			Err:       ErrNoSchedule,
		}
	}
	return from + ir.Timestamp(s.Interval), nil
}
