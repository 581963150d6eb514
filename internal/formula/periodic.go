package formula

import (
	"time"

	"github.com/roach88/runcost/internal/calendar"
	"github.com/roach88/runcost/internal/engine"
	"github.com/roach88/runcost/internal/ir"
)

// PeriodicParams configures Payment and Deposit.
type PeriodicParams struct {
	Amount   float64
	Period   int
	Unit     string
	Location *time.Location
}

// Periodic adds a fixed signed amount to the balance once per period.
// Payments carry a negative amount and so feed the running cost.
// Build it with Payment or Deposit; the zero value fails to schedule.
type Periodic struct {
	amount float64 // signed change applied per firing
	period int
	unit   calendar.Unit
	cal    calendar.Calendar
}

var _ engine.Component = Periodic{}

// Payment builds a component that subtracts p.Amount every period.
func Payment(p PeriodicParams) (Periodic, error) {
	return newPeriodic(p, -p.Amount)
}

// Deposit builds a component that adds p.Amount every period.
func Deposit(p PeriodicParams) (Periodic, error) {
	return newPeriodic(p, p.Amount)
}

func newPeriodic(p PeriodicParams, signed float64) (Periodic, error) {
	unit, err := parseUnit(p.Unit)
	if err != nil {
		return Periodic{}, err
	}
	if err := checkPeriod(p.Period); err != nil {
		return Periodic{}, err
	}
	return Periodic{
		amount: signed,
		period: p.Period,
		unit:   unit,
		cal:    calendar.In(p.Location),
	}, nil
}

// ComputeNext applies the amount.
func (c Periodic) ComputeNext(lastValue float64, _ int, _ engine.History, _ ir.Timestamp) float64 {
	return lastValue + c.amount
}

// NextFireTime advances from by the period in calendar units.
func (c Periodic) NextFireTime(from ir.Timestamp) (ir.Timestamp, error) {
	return advance(c.cal, from, c.period, c.unit)
}
