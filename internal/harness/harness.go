package harness

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/runcost/internal/compiler"
	"github.com/roach88/runcost/internal/engine"
	"github.com/roach88/runcost/internal/ir"
	"github.com/roach88/runcost/internal/testutil"
)

// Harness is the test execution engine.
// It resolves a scenario's series, computes it and evaluates assertions.
type Harness struct {
	logger   *slog.Logger
	location *time.Location
}

// Option configures a Harness run.
type Option func(*Harness)

// WithLogger routes the engine's debug trace to logger.
// Logs are discarded by default.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Resolve the series from the inline spec or definition file
//  2. Validate and build it into an engine definition
//  3. Resolve the window and compute
//  4. Check the expected error or evaluate assertions
//
// Errors that prevent the scenario from running at all (unknown timezone,
// unreadable definition file, missing series) are returned. Validation,
// build and compute failures are matched against ExpectError when set and
// returned otherwise.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		logger:   testutil.DiscardLogger(),
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(h)
	}

	if scenario.Timezone != "" {
		loc, err := time.LoadLocation(scenario.Timezone)
		if err != nil {
			return nil, fmt.Errorf("failed to load timezone: %w", err)
		}
		h.location = loc
	}

	spec, window, err := h.resolveSeries(scenario)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	computed, err := h.compute(spec, window, scenario.MaxSteps)
	if err != nil {
		if scenario.ExpectError == "" {
			return nil, fmt.Errorf("failed to compute: %w", err)
		}
		result.Err = err.Error()
		if !strings.Contains(err.Error(), scenario.ExpectError) {
			result.AddError(fmt.Sprintf("expected error containing %q, got %q", scenario.ExpectError, err.Error()))
		}
		return result, nil
	}

	result.Primary = computed.Primary
	result.RunningCost = computed.RunningCost
	result.Output = computed.Output()
	result.Steps = computed.Steps

	if scenario.ExpectError != "" {
		result.AddError(fmt.Sprintf("expected error containing %q, computation succeeded", scenario.ExpectError))
	}

	actx := &AssertionContext{Location: h.location}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// resolveSeries returns the spec to compute and the window to compute it
// over. The scenario window overrides the series and file windows.
func (h *Harness) resolveSeries(scenario *Scenario) (ir.SeriesSpec, *ir.WindowSpec, error) {
	var (
		spec   ir.SeriesSpec
		window *ir.WindowSpec
	)

	if scenario.Series != nil {
		spec = *scenario.Series
		if spec.Name == "" {
			spec.Name = scenario.Name
		}
		window = spec.Window
	} else {
		f, err := compiler.LoadFile(scenario.Definition)
		if err != nil {
			return ir.SeriesSpec{}, nil, fmt.Errorf("failed to load definition: %w", err)
		}
		s, ok := f.Lookup(scenario.Use)
		if !ok {
			return ir.SeriesSpec{}, nil, fmt.Errorf("series %q not found in %s (have %s)",
				scenario.Use, scenario.Definition, strings.Join(f.Names(), ", "))
		}
		spec = s
		window = f.WindowFor(s)
	}

	if scenario.Window != nil {
		window = scenario.Window
	}
	return spec, window, nil
}

func (h *Harness) compute(spec ir.SeriesSpec, window *ir.WindowSpec, maxSteps int) (*engine.Result, error) {
	if verrs := compiler.Validate(spec, h.location); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, ve := range verrs {
			errs[i] = ve
		}
		return nil, errors.Join(errs...)
	}

	def, err := compiler.Build(spec, h.location)
	if err != nil {
		return nil, err
	}

	start, end, err := compiler.ResolveWindow(window, "", "", h.location)
	if err != nil {
		return nil, err
	}

	return engine.Compute(def, start, end,
		engine.WithLogger(h.logger),
		engine.WithMaxSteps(maxSteps),
	)
}
