package formula

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/roach88/runcost/internal/calendar"
	"github.com/roach88/runcost/internal/engine"
	"github.com/roach88/runcost/internal/ir"
)

// Params configures CompoundInterest.
type Params struct {
	Rate     float64        // annual rate, e.g. 0.05 for 5%
	Period   int            // compounding period length, in Unit
	Unit     string         // seconds, days, weeks, months or years
	Location *time.Location // calendar location; nil means UTC
}

// Compounding grows a non-negative balance once per period.
// Build it with CompoundInterest; the zero value fails to schedule.
type Compounding struct {
	rate   float64
	period int
	unit   calendar.Unit
	cal    calendar.Calendar
}

var _ engine.Component = Compounding{}

// CompoundInterest builds a compounding component.
//
// Each firing multiplies the balance by 1 + Rate/PeriodsPerYear, where
// PeriodsPerYear counts Unit periods in the calendar year starting at the
// firing time. Negative balances are left unchanged.
func CompoundInterest(p Params) (Compounding, error) {
	unit, err := parseUnit(p.Unit)
	if err != nil {
		return Compounding{}, err
	}
	if err := checkPeriod(p.Period); err != nil {
		return Compounding{}, err
	}
	return Compounding{
		rate:   p.Rate,
		period: p.Period,
		unit:   unit,
		cal:    calendar.In(p.Location),
	}, nil
}

// ComputeNext applies one compounding step. A component without a valid
// unit returns NaN, which Compute rejects.
func (c Compounding) ComputeNext(lastValue float64, _ int, _ engine.History, firedAt ir.Timestamp) float64 {
	if lastValue < 0 {
		return lastValue
	}
	periods, err := c.cal.PeriodsPerYear(firedAt, c.unit)
	if err != nil || periods <= 0 {
		return math.NaN()
	}
	return lastValue * (1 + c.rate/periods)
}

// NextFireTime advances from by the period in calendar units.
func (c Compounding) NextFireTime(from ir.Timestamp) (ir.Timestamp, error) {
	return advance(c.cal, from, c.period, c.unit)
}

// advance adds period units to from, reporting a component that was not
// built by its constructor as a ConfigurationError.
func advance(cal calendar.Calendar, from ir.Timestamp, period int, unit calendar.Unit) (ir.Timestamp, error) {
	if !unit.Valid() {
		return 0, &engine.ConfigurationError{
			Component: -1,
			Field:     "unit",
			Message:   fmt.Sprintf("unrecognized unit %q", unit),
			Err:       calendar.ErrUnknownUnit,
		}
	}
	if err := checkPeriod(period); err != nil {
		return 0, err
	}
	next, err := cal.Add(from, period, unit)
	if err != nil {
		return 0, &engine.ConfigurationError{Component: -1, Field: "unit", Message: "cannot advance schedule", Err: err}
	}
	return next, nil
}

func parseUnit(s string) (calendar.Unit, error) {
	unit, err := calendar.ParseUnit(s)
	if err != nil {
		msg := fmt.Sprintf("unrecognized unit %q", s)
		if s == "" {
			msg = "must be provided a compounding period unit"
		}
		return "", &engine.ConfigurationError{
			Component: -1,
			Field:     "unit",
			Message:   msg,
			Err:       errors.Unwrap(err),
		}
	}
	return unit, nil
}

func checkPeriod(period int) error {
	if period <= 0 {
		return &engine.ConfigurationError{
			Component: -1,
			Field:     "every",
			Message:   fmt.Sprintf("period must be positive, got %d", period),
		}
	}
	return nil
}
