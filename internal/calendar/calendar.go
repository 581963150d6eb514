// Package calendar implements calendar-aware unit arithmetic over ir.Timestamp.
//
// Month and year addition clamp the day of month to the length of the target
// month, so Jan 31 + 1 month is the last day of February and Feb 29 + 1 year
// is Feb 28. Day and week addition preserve wall-clock time in the calendar's
// location across DST changes.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/runcost/internal/ir"
)

// ErrUnknownUnit is returned by ParseUnit for unrecognised unit names.
var ErrUnknownUnit = errors.New("unknown unit")

// Unit is a calendar period.
type Unit string

const (
	Seconds Unit = "seconds"
	Days    Unit = "days"
	Weeks   Unit = "weeks"
	Months  Unit = "months"
	Years   Unit = "years"
)

var unitAliases = map[string]Unit{
	"second":  Seconds,
	"seconds": Seconds,
	"day":     Days,
	"days":    Days,
	"week":    Weeks,
	"weeks":   Weeks,
	"month":   Months,
	"months":  Months,
	"year":    Years,
	"years":   Years,
}

// ParseUnit accepts singular or plural unit names, case-insensitively.
func ParseUnit(s string) (Unit, error) {
	u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w %q: must be one of seconds, days, weeks, months, years", ErrUnknownUnit, s)
	}
	return u, nil
}

// Valid reports whether u is one of the defined units.
func (u Unit) Valid() bool {
	switch u {
	case Seconds, Days, Weeks, Months, Years:
		return true
	}
	return false
}

// Calendar performs unit arithmetic in a fixed location.
type Calendar struct {
	Location *time.Location
}

// UTC is the default calendar.
var UTC = Calendar{Location: time.UTC}

// In returns a calendar for loc. A nil location means UTC.
func In(loc *time.Location) Calendar {
	if loc == nil {
		return UTC
	}
	return Calendar{Location: loc}
}

func (c Calendar) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// Add returns ts advanced by n units. n may be negative.
func (c Calendar) Add(ts ir.Timestamp, n int, unit Unit) (ir.Timestamp, error) {
	switch unit {
	case Seconds:
		return ts + ir.Timestamp(n), nil
	case Days:
		return ir.FromTime(ts.Time(c.loc()).AddDate(0, 0, n)), nil
	case Weeks:
		return ir.FromTime(ts.Time(c.loc()).AddDate(0, 0, 7*n)), nil
	case Months:
		return ir.FromTime(addMonthsClamped(ts.Time(c.loc()), n)), nil
	case Years:
		return ir.FromTime(addMonthsClamped(ts.Time(c.loc()), 12*n)), nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownUnit, unit)
	}
}

// PeriodsPerYear returns how many unit periods fit in the calendar year that
// starts at ts. Days are counted as calendar days, so the result is 365 or 366
// depending on whether the year ahead crosses Feb 29.
func (c Calendar) PeriodsPerYear(ts ir.Timestamp, unit Unit) (float64, error) {
	switch unit {
	case Seconds:
		next, err := c.Add(ts, 1, Years)
		if err != nil {
			return 0, err
		}
		return float64(next - ts), nil
	case Days:
		return float64(c.daysInYearFrom(ts)), nil
	case Weeks:
		return float64(c.daysInYearFrom(ts)) / 7, nil
	case Months:
		return 12, nil
	case Years:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownUnit, unit)
	}
}

func (c Calendar) daysInYearFrom(ts ir.Timestamp) int {
	start := ts.Time(c.loc())
	end := addMonthsClamped(start, 12)
	return civilDays(end) - civilDays(start)
}

// civilDays counts calendar days since the epoch for t's wall-clock date,
// ignoring the UTC offset.
func civilDays(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := DaysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
