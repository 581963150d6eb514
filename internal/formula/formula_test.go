package formula

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/runcost/internal/calendar"
	"github.com/roach88/runcost/internal/engine"
	"github.com/roach88/runcost/internal/ir"
)

func date(t *testing.T, s string) ir.Timestamp {
	t.Helper()
	ts, err := ir.ParseTimestamp(s, nil)
	require.NoError(t, err)
	return ts
}

func TestCompoundInterest_NegativeValueNoOp(t *testing.T) {
	for _, rate := range []float64{0, 0.05, 1, 25, -0.3} {
		c, err := CompoundInterest(Params{Rate: rate, Period: 1, Unit: "months"})
		require.NoError(t, err)

		got := c.ComputeNext(-250.75, 3, engine.History{}, date(t, "2024-01-01"))
		assert.Equal(t, -250.75, got, "rate %v", rate)
	}
}

func TestCompoundInterest_Growth(t *testing.T) {
	tests := []struct {
		name    string
		unit    string
		firedAt string
		want    float64
	}{
		{"monthly", "months", "2024-01-01", 1000 * (1 + 0.05/12)},
		{"yearly", "years", "2024-01-01", 1000 * 1.05},
		{"daily leap year", "days", "2024-01-01", 1000 * (1 + 0.05/366)},
		{"daily common year", "days", "2023-01-01", 1000 * (1 + 0.05/365)},
		{"weekly", "weeks", "2023-01-01", 1000 * (1 + 0.05/(365.0/7))},
		{"seconds", "seconds", "2023-01-01", 1000 * (1 + 0.05/(365*86400))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := CompoundInterest(Params{Rate: 0.05, Period: 1, Unit: tt.unit})
			require.NoError(t, err)

			got := c.ComputeNext(1000, 0, engine.History{}, date(t, tt.firedAt))
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCompoundInterest_ZeroBalanceStaysZero(t *testing.T) {
	c, err := CompoundInterest(Params{Rate: 0.05, Period: 1, Unit: "months"})
	require.NoError(t, err)
	assert.Equal(t, float64(0), c.ComputeNext(0, 0, engine.History{}, 0))
}

func TestCompoundInterest_CalendarSchedule(t *testing.T) {
	c, err := CompoundInterest(Params{Rate: 0.05, Period: 1, Unit: "month"})
	require.NoError(t, err)

	next, err := c.NextFireTime(date(t, "2024-01-31"))
	require.NoError(t, err)
	assert.Equal(t, date(t, "2024-02-29"), next)

	q, err := CompoundInterest(Params{Rate: 0.05, Period: 3, Unit: "Months"})
	require.NoError(t, err)
	next, err = q.NextFireTime(date(t, "2024-01-15"))
	require.NoError(t, err)
	assert.Equal(t, date(t, "2024-04-15"), next)

	s, err := CompoundInterest(Params{Rate: 0.05, Period: 30, Unit: "seconds"})
	require.NoError(t, err)
	next, err = s.NextFireTime(100)
	require.NoError(t, err)
	assert.Equal(t, ir.Timestamp(130), next)
}

func TestCompoundInterest_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		field   string
		message string
	}{
		{"unknown unit", Params{Rate: 0.05, Period: 1, Unit: "fortnights"}, "unit", `unrecognized unit "fortnights"`},
		{"missing unit", Params{Rate: 0.05, Period: 1}, "unit", "must be provided a compounding period unit"},
		{"zero period", Params{Rate: 0.05, Period: 0, Unit: "days"}, "every", "period must be positive"},
		{"negative period", Params{Rate: 0.05, Period: -2, Unit: "days"}, "every", "period must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompoundInterest(tt.params)
			require.Error(t, err)

			var ce *engine.ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
			assert.Contains(t, ce.Message, tt.message)
		})
	}
}

func TestCompoundInterest_UnknownUnitWrapsSentinel(t *testing.T) {
	_, err := CompoundInterest(Params{Period: 1, Unit: "eons"})
	assert.True(t, errors.Is(err, calendar.ErrUnknownUnit))
}

func TestCompoundInterest_ZeroRateIsNoOp(t *testing.T) {
	c, err := CompoundInterest(Params{Rate: 0, Period: 1, Unit: "days"})
	require.NoError(t, err)
	assert.Equal(t, 1234.5, c.ComputeNext(1234.5, 0, engine.History{}, date(t, "2024-02-29")))
}

func TestZeroValueComponentsFailToSchedule(t *testing.T) {
	tests := []struct {
		name string
		c    engine.Component
	}{
		{"compounding", Compounding{}},
		{"periodic", Periodic{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.c.NextFireTime(0)
			require.Error(t, err)
			assert.True(t, engine.IsConfigurationError(err))
			assert.True(t, errors.Is(err, calendar.ErrUnknownUnit))

			_, err = engine.Compute(engine.Definition{
				StartValue: 100,
				Components: []engine.Component{engine.FixedInterval(1, nil), tt.c},
			}, 0, 10)
			var ce *engine.ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, 1, ce.Component)
			assert.Equal(t, "unit", ce.Field)
		})
	}

	assert.True(t, math.IsNaN(Compounding{}.ComputeNext(10, 0, engine.History{}, 0)))
}

func TestPaymentAndDeposit(t *testing.T) {
	pay, err := Payment(PeriodicParams{Amount: 250, Period: 1, Unit: "months"})
	require.NoError(t, err)
	dep, err := Deposit(PeriodicParams{Amount: 100, Period: 2, Unit: "weeks"})
	require.NoError(t, err)

	assert.Equal(t, float64(750), pay.ComputeNext(1000, 0, engine.History{}, 0))
	assert.Equal(t, float64(-250), pay.ComputeNext(0, 0, engine.History{}, 0), "payments may overdraw")
	assert.Equal(t, float64(1100), dep.ComputeNext(1000, 0, engine.History{}, 0))

	next, err := dep.NextFireTime(date(t, "2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, date(t, "2024-01-15"), next)
}

func TestPeriodic_ConfigurationErrors(t *testing.T) {
	_, err := Payment(PeriodicParams{Amount: 1, Period: 1, Unit: "lunar cycles"})
	assert.True(t, engine.IsConfigurationError(err))

	_, err = Deposit(PeriodicParams{Amount: 1, Unit: "days"})
	assert.True(t, engine.IsConfigurationError(err))
}

func TestCompute_SavingsWithPayments(t *testing.T) {
	interest, err := CompoundInterest(Params{Rate: 0.06, Period: 1, Unit: "months"})
	require.NoError(t, err)
	payment, err := Payment(PeriodicParams{Amount: 100, Period: 1, Unit: "months"})
	require.NoError(t, err)

	def := engine.Definition{
		Label:       "Savings",
		StartValue:  10000,
		Components:  []engine.Component{interest, payment},
		RunningCost: engine.RunningCostConfig{Plot: ir.PlotAlongside, Prefix: "Paid: "},
	}

	res, err := engine.Compute(def, date(t, "2024-01-01"), date(t, "2025-01-01"))
	require.NoError(t, err)

	assert.Len(t, res.Primary.Data, 13, "start plus one coalesced point per month")
	assert.Equal(t, 24, res.Steps)

	first := res.Primary.Data[1]
	assert.Equal(t, date(t, "2024-02-01"), first.Timestamp)
	assert.InDelta(t, 10000*1.005-100, first.Value, 1e-9, "interest applies before the payment")

	require.NotNil(t, res.RunningCost)
	assert.Equal(t, "Paid: Savings", res.RunningCost.Label)
	last, _ := res.RunningCost.Last()
	assert.InDelta(t, 1200, last.Value, 1e-9)
}

func TestCompute_NegativeBalanceDoesNotCompound(t *testing.T) {
	interest, err := CompoundInterest(Params{Rate: 0.2, Period: 1, Unit: "days"})
	require.NoError(t, err)

	res, err := engine.Compute(engine.Definition{StartValue: -500, Components: []engine.Component{interest}},
		date(t, "2024-01-01"), date(t, "2024-01-10"))
	require.NoError(t, err)

	require.Len(t, res.Primary.Data, 10)
	for _, dp := range res.Primary.Data {
		assert.Equal(t, float64(-500), dp.Value)
	}
}
