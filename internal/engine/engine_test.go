package engine

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/runcost/internal/ir"
)

func add(n float64) Formula {
	return func(v float64, _ int, _ History, _ ir.Timestamp) float64 { return v + n }
}

func mul(n float64) Formula {
	return func(v float64, _ int, _ History, _ ir.Timestamp) float64 { return v * n }
}

func points(s ir.Series) [][2]float64 {
	out := make([][2]float64, len(s.Data))
	for i, dp := range s.Data {
		out[i] = [2]float64{dp.Value, float64(dp.Timestamp)}
	}
	return out
}

func TestCompute_SingleFixedInterval(t *testing.T) {
	def := Definition{
		Label:      "counter",
		StartValue: 0,
		Components: []Component{FixedInterval(5, add(1))},
	}

	res, err := Compute(def, 0, 15)
	require.NoError(t, err)

	assert.Equal(t, [][2]float64{{0, 0}, {1, 5}, {2, 10}, {3, 15}}, points(res.Primary))
	assert.Equal(t, "counter", res.Primary.Label)
	assert.Nil(t, res.RunningCost)
	assert.Equal(t, 3, res.Steps)
	assert.Len(t, res.Output(), 1)
}

func TestCompute_TwoComponentsDifferentIntervals(t *testing.T) {
	def := Definition{
		Label: "mixed",
		Components: []Component{
			FixedInterval(5, add(1)),
			FixedInterval(3, add(3)),
		},
	}

	res, err := Compute(def, 0, 15)
	require.NoError(t, err)

	// 15 is reached by both components and included by the <= boundary.
	assert.Equal(t, [][2]float64{
		{0, 0}, {3, 3}, {4, 5}, {7, 6}, {10, 9}, {11, 10}, {14, 12}, {18, 15},
	}, points(res.Primary))
}

func TestCompute_CoalescesSameInstant(t *testing.T) {
	def := Definition{
		Label:      "balance",
		StartValue: 50,
		Components: []Component{
			FixedInterval(5, add(-10)),
			FixedInterval(5, add(3)),
		},
		RunningCost: RunningCostConfig{Plot: ir.PlotAlongside},
	}

	res, err := Compute(def, 0, 5)
	require.NoError(t, err)

	assert.Equal(t, [][2]float64{{50, 0}, {43, 5}}, points(res.Primary), "one datapoint per instant")
	require.NotNil(t, res.RunningCost)
	assert.Equal(t, [][2]float64{{0, 0}, {10, 5}}, points(*res.RunningCost), "only the decrease is a cost")
	assert.Equal(t, 2, res.Steps)
}

func TestCompute_TieBreakFollowsDeclarationOrder(t *testing.T) {
	double := FixedInterval(10, mul(2))
	inc := FixedInterval(10, add(1))

	res, err := Compute(Definition{StartValue: 1, Components: []Component{double, inc}}, 0, 10)
	require.NoError(t, err)
	last, _ := res.Primary.Last()
	assert.Equal(t, float64(3), last.Value, "(1*2)+1")

	res, err = Compute(Definition{StartValue: 1, Components: []Component{inc, double}}, 0, 10)
	require.NoError(t, err)
	last, _ = res.Primary.Last()
	assert.Equal(t, float64(4), last.Value, "(1+1)*2")
}

func TestCompute_TieBreakStableAcrossReschedules(t *testing.T) {
	// Both fire at 6, 12, 18. Component 0 is rescheduled before component 1
	// each round, so it keeps popping first.
	var order []int
	record := func(id int) Formula {
		return func(v float64, _ int, _ History, _ ir.Timestamp) float64 {
			order = append(order, id)
			return v
		}
	}
	def := Definition{Components: []Component{
		FixedInterval(6, record(0)),
		FixedInterval(6, record(1)),
	}}

	_, err := Compute(def, 0, 18)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0, 1, 0, 1}, order)
}

func TestCompute_RunningCostAlongside(t *testing.T) {
	def := Definition{
		Label:       "Balance",
		StartValue:  100,
		Components:  []Component{FixedInterval(1, add(-10))},
		RunningCost: RunningCostConfig{Plot: ir.PlotAlongside, Prefix: "Cost: "},
	}

	res, err := Compute(def, 0, 3)
	require.NoError(t, err)

	out := res.Output()
	require.Len(t, out, 2)
	assert.Equal(t, "Cost: Balance", out[0].Label)
	assert.Equal(t, "Balance", out[1].Label)
	assert.Equal(t, [][2]float64{{0, 0}, {10, 1}, {20, 2}, {30, 3}}, points(out[0]))
	assert.Equal(t, [][2]float64{{100, 0}, {90, 1}, {80, 2}, {70, 3}}, points(out[1]))
}

func TestCompute_RunningCostOnly(t *testing.T) {
	def := Definition{
		Label:       "Balance",
		StartValue:  100,
		Components:  []Component{FixedInterval(1, add(-10))},
		RunningCost: RunningCostConfig{Plot: ir.PlotOnly, Prefix: "Cost: "},
	}

	res, err := Compute(def, 0, 3)
	require.NoError(t, err)

	out := res.Output()
	require.Len(t, out, 1)
	assert.Equal(t, "Cost: Balance", out[0].Label)
	assert.Equal(t, [][2]float64{{0, 0}, {10, 1}, {20, 2}, {30, 3}}, points(out[0]))
}

func TestCompute_RunningCostIgnoresIncreases(t *testing.T) {
	def := Definition{
		StartValue:  0,
		Components:  []Component{FixedInterval(1, add(5)), FixedInterval(2, add(-3))},
		RunningCost: RunningCostConfig{Plot: ir.PlotOnly},
	}

	res, err := Compute(def, 0, 4)
	require.NoError(t, err)

	cost := res.Output()[0]
	for i := 1; i < len(cost.Data); i++ {
		assert.GreaterOrEqual(t, cost.Data[i].Value, cost.Data[i-1].Value, "running cost never decreases")
	}
	last, _ := cost.Last()
	assert.Equal(t, float64(6), last.Value)
}

func TestCompute_Deterministic(t *testing.T) {
	def := Definition{
		Label:      "x",
		StartValue: 1000,
		Components: []Component{
			FixedInterval(7, mul(1.0123)),
			FixedInterval(3, add(-4.5)),
			FixedInterval(7, add(2)),
		},
		RunningCost: RunningCostConfig{Plot: ir.PlotAlongside},
	}

	a, err := Compute(def, 0, 500)
	require.NoError(t, err)
	b, err := Compute(def, 0, 500)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestCompute_WindowBoundary(t *testing.T) {
	def := Definition{StartValue: 7, Components: []Component{FixedInterval(20, add(1))}}

	res, err := Compute(def, 0, 15)
	require.NoError(t, err)
	assert.Equal(t, [][2]float64{{7, 0}}, points(res.Primary))
	assert.Equal(t, 0, res.Steps)
}

func TestCompute_EmptyWindow(t *testing.T) {
	def := Definition{StartValue: 3, Components: []Component{FixedInterval(1, add(1))}}

	res, err := Compute(def, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, [][2]float64{{3, 100}}, points(res.Primary))
}

func TestCompute_OutputSortedAndUnique(t *testing.T) {
	def := Definition{Components: []Component{
		FixedInterval(2, add(1)),
		FixedInterval(3, add(1)),
		FixedInterval(4, add(1)),
	}}

	res, err := Compute(def, 0, 60)
	require.NoError(t, err)

	for i := 1; i < len(res.Primary.Data); i++ {
		assert.Less(t, res.Primary.Data[i-1].Timestamp, res.Primary.Data[i].Timestamp)
	}
}

func TestCompute_FormulaSeesStepAndHistory(t *testing.T) {
	type call struct {
		step    int
		histLen int
		last    ir.Datapoint
		firedAt ir.Timestamp
	}
	var calls []call
	f := func(v float64, step int, h History, firedAt ir.Timestamp) float64 {
		last, _ := h.Last()
		calls = append(calls, call{step, h.Len(), last, firedAt})
		return v + 1
	}

	_, err := Compute(Definition{Components: []Component{FixedInterval(10, f)}}, 0, 20)
	require.NoError(t, err)

	assert.Equal(t, []call{
		{0, 1, ir.Datapoint{Value: 0, Timestamp: 0}, 10},
		{1, 2, ir.Datapoint{Value: 1, Timestamp: 10}, 20},
	}, calls)
}

func TestCompute_CustomRule(t *testing.T) {
	// Fires at 1, 3, 7, 15: doubles the gap each time.
	rule := func(from ir.Timestamp) (ir.Timestamp, error) { return 2*from + 1, nil }

	res, err := Compute(Definition{Components: []Component{CustomRule(rule, add(1))}}, 0, 15)
	require.NoError(t, err)
	assert.Equal(t, [][2]float64{{0, 0}, {1, 1}, {2, 3}, {3, 7}, {4, 15}}, points(res.Primary))
}

func TestCompute_InvariantViolation(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{"stalls", func(from ir.Timestamp) (ir.Timestamp, error) { return from, nil }},
		{"goes backwards", func(from ir.Timestamp) (ir.Timestamp, error) { return from - 1, nil }},
		{"stalls later", func(from ir.Timestamp) (ir.Timestamp, error) {
			if from >= 10 {
				return from, nil
			}
			return from + 5, nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := Definition{Components: []Component{
				FixedInterval(1, add(1)),
				CustomRule(tt.rule, add(1)),
			}}

			res, err := Compute(def, 0, 100)
			require.Error(t, err)
			assert.Nil(t, res, "no partial result")
			assert.True(t, IsInvariantViolation(err))

			var iv *InvariantViolation
			require.ErrorAs(t, err, &iv)
			assert.Equal(t, 1, iv.Component)
			assert.LessOrEqual(t, iv.Next, iv.From)
		})
	}
}

func TestCompute_NonFiniteValue(t *testing.T) {
	tests := []struct {
		name    string
		formula Formula
		start   float64
	}{
		{"overflow", mul(1e10), 1e300},
		{"negative overflow", mul(1e10), -1e300},
		{"nan", func(v float64, _ int, _ History, _ ir.Timestamp) float64 { return math.NaN() }, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := Definition{
				StartValue:  tt.start,
				Components:  []Component{FixedInterval(1, add(0)), FixedInterval(2, tt.formula)},
				RunningCost: RunningCostConfig{Plot: ir.PlotAlongside},
			}

			res, err := Compute(def, 0, 10)
			require.Error(t, err)
			assert.Nil(t, res, "no partial result")
			assert.True(t, IsNonFiniteValueError(err))

			var nf *NonFiniteValueError
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, 1, nf.Component)
			assert.Equal(t, ir.Timestamp(2), nf.Timestamp)
			assert.Equal(t, tt.start, nf.Previous)
			assert.Contains(t, err.Error(), "non-finite value")
		})
	}
}

func TestCompute_ConfigurationErrors(t *testing.T) {
	ok := FixedInterval(1, add(1))

	tests := []struct {
		name      string
		def       Definition
		start     ir.Timestamp
		end       ir.Timestamp
		field     string
		component int
	}{
		{"window reversed", Definition{Components: []Component{ok}}, 10, 5, "window", -1},
		{"no components", Definition{}, 0, 5, "components", -1},
		{"nil component", Definition{Components: []Component{ok, nil}}, 0, 5, "", 1},
		{"no schedule", Definition{Components: []Component{ok, FuncComponent{Formula: add(1)}}}, 0, 5, "schedule", 1},
		{"negative interval", Definition{Components: []Component{FixedInterval(-5, add(1))}}, 0, 5, "interval", 0},
		{"bad plot", Definition{Components: []Component{ok}, RunningCost: RunningCostConfig{Plot: "sideways"}}, 0, 5, "running_cost.plot", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Compute(tt.def, tt.start, tt.end)
			require.Error(t, err)
			assert.Nil(t, res)

			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
			assert.Equal(t, tt.component, ce.Component)
			assert.False(t, IsInvariantViolation(err))
		})
	}
}

func TestCompute_NoScheduleWrapsSentinel(t *testing.T) {
	_, err := Compute(Definition{Components: []Component{FuncComponent{}}}, 0, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSchedule))
	assert.Contains(t, err.Error(), "component 0")
}

func TestCompute_RuleErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	rule := func(from ir.Timestamp) (ir.Timestamp, error) {
		if from > 0 {
			return 0, boom
		}
		return 1, nil
	}

	res, err := Compute(Definition{Components: []Component{CustomRule(rule, add(1))}}, 0, 10)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, boom)
}

func TestCompute_MaxSteps(t *testing.T) {
	def := Definition{Label: "busy", Components: []Component{FixedInterval(1, add(1))}}

	_, err := Compute(def, 0, 100, WithMaxSteps(10))
	require.Error(t, err)
	assert.True(t, IsStepsExceededError(err))

	var se *StepsExceededError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "busy", se.Label)
	assert.Equal(t, 11, se.Steps)
	assert.Equal(t, 10, se.Limit)

	res, err := Compute(def, 0, 10, WithMaxSteps(10))
	require.NoError(t, err, "exactly at the limit is allowed")
	assert.Equal(t, 10, res.Steps)
}

func TestCompute_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Compute(Definition{Label: "traced", Components: []Component{FixedInterval(5, add(1))}}, 0, 10, WithLogger(logger))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "series=traced")
	assert.Contains(t, out, "msg=event")
	assert.Contains(t, out, "msg=\"component retired\"")
	assert.Contains(t, out, "steps=2 max_steps=0 last_seq=2")
}

func TestResult_ZeroPlotIsOff(t *testing.T) {
	res, err := Compute(Definition{Components: []Component{FixedInterval(5, add(1))}}, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, ir.PlotOff, res.Plot, "zero plot type behaves as off")
}
