package engine

import (
	"io"
	"log/slog"
	"math"

	"github.com/roach88/runcost/internal/ir"
)

// RunningCostConfig selects whether a running-cost series is derived and
// how it is labelled.
type RunningCostConfig struct {
	Plot   ir.PlotType
	Prefix string
}

// Definition describes one series computation.
//
// Components are seeded in declaration order; that order breaks ties
// between components firing at the same instant.
type Definition struct {
	Label       string
	StartValue  float64
	Components  []Component
	RunningCost RunningCostConfig
}

// Result holds the sequences produced by Compute.
type Result struct {
	Primary     ir.Series
	RunningCost *ir.Series // nil unless the plot type tracks running cost
	Plot        ir.PlotType
	Steps       int // number of events processed
}

// Output returns the series to render, in render order:
//
//   - off: [primary]
//   - alongside: [runningCost, primary]
//   - only: [runningCost]
func (r *Result) Output() []ir.Series {
	switch r.Plot {
	case ir.PlotAlongside:
		return []ir.Series{*r.RunningCost, r.Primary}
	case ir.PlotOnly:
		return []ir.Series{*r.RunningCost}
	default:
		return []ir.Series{r.Primary}
	}
}

// options configures a single Compute call.
type options struct {
	logger   *slog.Logger
	maxSteps int
}

// Option configures Compute.
type Option func(*options)

// WithLogger routes the per-event debug trace to logger.
// By default the trace is discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMaxSteps limits the number of events a computation may process.
//
// Default: 0 (unlimited). The window end already bounds well-formed
// definitions; use a limit when definitions come from user files.
func WithMaxSteps(maxSteps int) Option {
	return func(o *options) {
		o.maxSteps = maxSteps
	}
}

// Compute runs the merge loop for def over [windowStart, windowEnd].
//
// The primary series starts with {StartValue, windowStart}. Each popped
// event applies its component's formula to the aggregate value. An event at
// the same timestamp as the previous one merges into the last datapoint
// instead of appending. A component is rescheduled only while its next fire
// time is <= windowEnd; the same check applies to the first fire time.
//
// A formula result that is NaN or infinite aborts with a
// NonFiniteValueError. Any error aborts the computation with no partial
// result.
func Compute(def Definition, windowStart, windowEnd ir.Timestamp, opts ...Option) (*Result, error) {
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := checkPreconditions(def, windowStart, windowEnd); err != nil {
		return nil, err
	}

	plot := def.RunningCost.Plot
	if plot == "" {
		plot = ir.PlotOff
	}

	m := newMerger(def.Label, def.StartValue, windowStart, plot.Tracked())
	clock := NewClock()
	queue := newEventQueue(clock, len(def.Components))
	quota := NewQuotaEnforcer(o.maxSteps)
	log := o.logger.With("series", def.Label)

	log.Debug("seeding", "components", len(def.Components), "window_start", windowStart, "window_end", windowEnd)

	for i, c := range def.Components {
		next, err := scheduleNext(c, i, windowStart)
		if err != nil {
			return nil, err
		}
		if next > windowEnd {
			log.Debug("component retired before first firing", "component", i, "next", next)
			continue
		}
		queue.Push(next, i)
	}

	step := 0
	for {
		ev, ok := queue.Pop()
		if !ok {
			break
		}
		if err := quota.Check(def.Label); err != nil {
			return nil, err
		}

		c := def.Components[ev.Component]
		prev := m.aggregate
		newValue := c.ComputeNext(prev, step, m.history(), ev.Timestamp)
		if math.IsNaN(newValue) || math.IsInf(newValue, 0) {
			return nil, &NonFiniteValueError{
				Component: ev.Component,
				Timestamp: ev.Timestamp,
				Previous:  prev,
				Value:     newValue,
			}
		}
		merged := m.apply(ev.Timestamp, newValue)

		log.Debug("event",
			"step", step,
			"component", ev.Component,
			"timestamp", ev.Timestamp,
			"seq", ev.Seq,
			"value", newValue,
			"delta", newValue-prev,
			"merged", merged,
		)

		next, err := scheduleNext(c, ev.Component, ev.Timestamp)
		if err != nil {
			return nil, err
		}
		if next <= windowEnd {
			queue.Push(next, ev.Component)
		} else {
			log.Debug("component retired", "component", ev.Component, "next", next)
		}

		step++
	}

	log.Debug("computed",
		"steps", quota.Current(),
		"max_steps", quota.MaxSteps(),
		"last_seq", clock.Current(),
		"points", len(m.primary.Data),
		"final", m.aggregate,
	)

	result := &Result{
		Primary: m.primary,
		Plot:    plot,
		Steps:   step,
	}
	if m.cost != nil {
		cost := m.cost.Clone()
		cost.Label = def.RunningCost.Prefix + def.Label
		result.RunningCost = &cost
	}
	return result, nil
}

func checkPreconditions(def Definition, windowStart, windowEnd ir.Timestamp) error {
	if windowEnd < windowStart {
		return &ConfigurationError{
			Component: -1,
			Field:     "window",
			Message:   "window end is before window start",
		}
	}
	if len(def.Components) == 0 {
		return &ConfigurationError{
			Component: -1,
			Field:     "components",
			Message:   "definition has no components",
		}
	}
	for i, c := range def.Components {
		if c == nil {
			return &ConfigurationError{
				Component: i,
				Message:   "component is nil",
			}
		}
	}
	if p := def.RunningCost.Plot; p != "" && !ir.ValidPlotTypes[p] {
		return &ConfigurationError{
			Component: -1,
			Field:     "running_cost.plot",
			Message:   "unknown plot type " + string(p),
		}
	}
	if math.IsNaN(def.StartValue) || math.IsInf(def.StartValue, 0) {
		return &ConfigurationError{
			Component: -1,
			Field:     "start_value",
			Message:   "start value must be finite",
		}
	}
	return nil
}

// scheduleNext resolves and checks a component's next fire time.
func scheduleNext(c Component, index int, from ir.Timestamp) (ir.Timestamp, error) {
	next, err := c.NextFireTime(from)
	if err != nil {
		return 0, withComponent(err, index)
	}
	if next <= from {
		return 0, &InvariantViolation{Component: index, From: from, Next: next}
	}
	return next, nil
}
