package compiler

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/runcost/internal/engine"
	"github.com/roach88/runcost/internal/formula"
	"github.com/roach88/runcost/internal/ir"
)

// Build turns a validated series spec into an engine definition.
// Components are built in declaration order, which the engine uses to
// break ties between simultaneous firings.
func Build(spec ir.SeriesSpec, loc *time.Location) (engine.Definition, error) {
	def := engine.Definition{
		Label:      spec.Label,
		StartValue: spec.StartValue,
		Components: make([]engine.Component, 0, len(spec.Components)),
	}
	if def.Label == "" {
		def.Label = spec.Name
	}

	if spec.RunningCost != nil {
		plot, err := ir.ParsePlotType(string(spec.RunningCost.Plot))
		if err != nil {
			return engine.Definition{}, &engine.ConfigurationError{
				Component: -1,
				Field:     "running_cost.plot",
				Message:   err.Error(),
			}
		}
		def.RunningCost = engine.RunningCostConfig{Plot: plot, Prefix: spec.RunningCost.Prefix}
	}

	for i, c := range spec.Components {
		comp, err := buildComponent(c, loc)
		if err != nil {
			return engine.Definition{}, fmt.Errorf("series %q: %w", spec.Name, stampComponent(err, i))
		}
		def.Components = append(def.Components, comp)
	}

	return def, nil
}

func buildComponent(c ir.ComponentSpec, loc *time.Location) (engine.Component, error) {
	switch c.Kind {
	case ir.KindCompoundInterest:
		return formula.CompoundInterest(formula.Params{
			Rate:     c.Rate,
			Period:   c.Every,
			Unit:     c.Unit,
			Location: loc,
		})
	case ir.KindPayment:
		return formula.Payment(formula.PeriodicParams{
			Amount:   c.Amount,
			Period:   c.Every,
			Unit:     c.Unit,
			Location: loc,
		})
	case ir.KindDeposit:
		return formula.Deposit(formula.PeriodicParams{
			Amount:   c.Amount,
			Period:   c.Every,
			Unit:     c.Unit,
			Location: loc,
		})
	default:
		return nil, &engine.ConfigurationError{
			Component: -1,
			Field:     "kind",
			Message:   fmt.Sprintf("unknown kind %q", c.Kind),
		}
	}
}

func stampComponent(err error, index int) error {
	var ce *engine.ConfigurationError
	if errors.As(err, &ce) && ce.Component < 0 {
		stamped := *ce
		stamped.Component = index
		return &stamped
	}
	return err
}

// ResolveWindow parses a window into timestamps. start and end override the
// window's bounds when non-empty.
func ResolveWindow(w *ir.WindowSpec, start, end string, loc *time.Location) (ir.Timestamp, ir.Timestamp, error) {
	var spec ir.WindowSpec
	if w != nil {
		spec = *w
	}
	if start != "" {
		spec.Start = start
	}
	if end != "" {
		spec.End = end
	}
	if spec.Start == "" || spec.End == "" {
		return 0, 0, fmt.Errorf("window requires both start and end")
	}

	from, err := ir.ParseTimestamp(spec.Start, loc)
	if err != nil {
		return 0, 0, fmt.Errorf("window start: %w", err)
	}
	to, err := ir.ParseTimestamp(spec.End, loc)
	if err != nil {
		return 0, 0, fmt.Errorf("window end: %w", err)
	}
	return from, to, nil
}
