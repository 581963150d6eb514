package testutil

import (
	"time"

	"github.com/roach88/runcost/internal/ir"
)

// Date returns midnight UTC on the given day as a timestamp.
func Date(year int, month time.Month, day int) ir.Timestamp {
	return ir.FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateIn returns midnight in loc on the given day as a timestamp.
func DateIn(year int, month time.Month, day int, loc *time.Location) ir.Timestamp {
	return ir.FromTime(time.Date(year, month, day, 0, 0, 0, 0, loc))
}

// Float returns a pointer to v, for optional float fields in fixtures.
func Float(v float64) *float64 {
	return &v
}
