package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/runcost/internal/ir"
)

var (
	seriesFields      = fieldSet("label", "start_value", "running_cost", "components", "window")
	componentFields   = fieldSet("kind", "rate", "amount", "every", "unit")
	runningCostFields = fieldSet("plot", "prefix")
	windowFields      = fieldSet("start", "end")
	fileFields        = fieldSet("series", "window")
)

func fieldSet(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// CompileCUE compiles CUE source into a definition file.
// Uses the CUE SDK's Go API directly, not a CLI subprocess.
//
// The source is expected to look like:
//
//	series: savings: {
//		label:       "Savings"
//		start_value: 10000
//		components: [{kind: "compound_interest", rate: 0.05, every: 1, unit: "months"}]
//	}
//	window: {start: "2024-01-01", end: "2026-01-01"}
func CompileCUE(path string, data []byte) (*File, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := checkFields(v, fileFields, ""); err != nil {
		return nil, err
	}

	file := &File{Path: path}

	seriesVal := v.LookupPath(cue.ParsePath("series"))
	if !seriesVal.Exists() {
		return nil, &CompileError{
			Field:   "series",
			Message: "at least one series is required",
			File:    path,
		}
	}

	iter, err := seriesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		spec, err := CompileSeries(iter.Value())
		if err != nil {
			return nil, err
		}
		file.Series = append(file.Series, *spec)
	}
	if len(file.Series) == 0 {
		return nil, &CompileError{
			Field:   "series",
			Message: "at least one series is required",
			Pos:     seriesVal.Pos(),
		}
	}
	sortSeries(file.Series)

	windowVal := v.LookupPath(cue.ParsePath("window"))
	if windowVal.Exists() {
		w, err := compileWindow(windowVal)
		if err != nil {
			return nil, err
		}
		file.Window = w
	}

	return file, nil
}

// CompileSeries parses a CUE value into a SeriesSpec.
//
// The CUE value should be the series struct itself; its name is taken from
// the last path selector:
//
//	v := ctx.CompileString(`series: savings: { ... }`)
//	spec, err := CompileSeries(v.LookupPath(cue.ParsePath("series.savings")))
func CompileSeries(v cue.Value) (*ir.SeriesSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := checkFields(v, seriesFields, "series"); err != nil {
		return nil, err
	}

	spec := &ir.SeriesSpec{Line: v.Pos().Line()}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].Unquoted()
	}

	label, ok, err := optionalString(v, "label")
	if err != nil {
		return nil, err
	}
	spec.Label = label
	if !ok {
		spec.Label = spec.Name
	}

	startVal := v.LookupPath(cue.ParsePath("start_value"))
	if !startVal.Exists() {
		return nil, &CompileError{
			Field:   "start_value",
			Message: "start_value is required",
			Pos:     v.Pos(),
		}
	}
	if spec.StartValue, err = startVal.Float64(); err != nil {
		return nil, formatCUEError(err)
	}

	rcVal := v.LookupPath(cue.ParsePath("running_cost"))
	if rcVal.Exists() {
		rc, err := compileRunningCost(rcVal)
		if err != nil {
			return nil, err
		}
		spec.RunningCost = rc
	}

	spec.Components, err = compileComponents(v)
	if err != nil {
		return nil, err
	}
	if len(spec.Components) == 0 {
		return nil, &CompileError{
			Field:   "components",
			Message: "at least one component is required",
			Pos:     v.Pos(),
		}
	}

	windowVal := v.LookupPath(cue.ParsePath("window"))
	if windowVal.Exists() {
		if spec.Window, err = compileWindow(windowVal); err != nil {
			return nil, err
		}
	}

	return spec, nil
}

func compileComponents(v cue.Value) ([]ir.ComponentSpec, error) {
	listVal := v.LookupPath(cue.ParsePath("components"))
	if !listVal.Exists() {
		return nil, nil
	}

	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var components []ir.ComponentSpec
	for iter.Next() {
		c, err := compileComponent(iter.Value())
		if err != nil {
			return nil, err
		}
		components = append(components, c)
	}
	return components, nil
}

func compileComponent(v cue.Value) (ir.ComponentSpec, error) {
	c := ir.ComponentSpec{Line: v.Pos().Line()}
	if err := checkFields(v, componentFields, "component"); err != nil {
		return c, err
	}

	kind, ok, err := optionalString(v, "kind")
	if err != nil {
		return c, err
	}
	if !ok {
		return c, &CompileError{
			Field:   "kind",
			Message: "component kind is required",
			Pos:     v.Pos(),
		}
	}
	c.Kind = kind

	if c.Rate, _, err = optionalFloat(v, "rate"); err != nil {
		return c, err
	}
	if c.Amount, _, err = optionalFloat(v, "amount"); err != nil {
		return c, err
	}

	everyVal := v.LookupPath(cue.ParsePath("every"))
	if everyVal.Exists() {
		every, err := everyVal.Int64()
		if err != nil {
			return c, formatCUEError(err)
		}
		c.Every = int(every)
	}

	if c.Unit, _, err = optionalString(v, "unit"); err != nil {
		return c, err
	}
	return c, nil
}

func compileRunningCost(v cue.Value) (*ir.RunningCostSpec, error) {
	if err := checkFields(v, runningCostFields, "running_cost"); err != nil {
		return nil, err
	}
	plot, _, err := optionalString(v, "plot")
	if err != nil {
		return nil, err
	}
	prefix, _, err := optionalString(v, "prefix")
	if err != nil {
		return nil, err
	}
	return &ir.RunningCostSpec{Plot: ir.PlotType(plot), Prefix: prefix}, nil
}

func compileWindow(v cue.Value) (*ir.WindowSpec, error) {
	if err := checkFields(v, windowFields, "window"); err != nil {
		return nil, err
	}
	w := &ir.WindowSpec{}
	var err error
	if w.Start, err = timestampString(v, "start"); err != nil {
		return nil, err
	}
	if w.End, err = timestampString(v, "end"); err != nil {
		return nil, err
	}
	return w, nil
}

// timestampString accepts a string or an integer epoch.
func timestampString(v cue.Value, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", &CompileError{
			Field:   "window." + field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	if f.IncompleteKind() == cue.IntKind {
		n, err := f.Int64()
		if err != nil {
			return "", formatCUEError(err)
		}
		return fmt.Sprintf("%d", n), nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, bool, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", false, nil
	}
	s, err := f.String()
	if err != nil {
		return "", true, formatCUEError(err)
	}
	return s, true, nil
}

func optionalFloat(v cue.Value, field string) (float64, bool, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return 0, false, nil
	}
	n, err := f.Float64()
	if err != nil {
		return 0, true, formatCUEError(err)
	}
	return n, true, nil
}

// checkFields rejects fields outside allowed so typos do not silently
// become defaults.
func checkFields(v cue.Value, allowed map[string]bool, context string) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		if !allowed[name] {
			field := name
			if context != "" {
				field = context + "." + name
			}
			return &CompileError{
				Field:   field,
				Message: fmt.Sprintf("unknown field %q", name),
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}
