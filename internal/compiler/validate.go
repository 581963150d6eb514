package compiler

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/roach88/runcost/internal/calendar"
	"github.com/roach88/runcost/internal/ir"
)

// Validation error codes (E200-E299)
const (
	// Series errors (E201-E209)
	ErrSeriesNameEmpty   = "E201" // series name is required
	ErrSeriesNoComponent = "E202" // at least one component required
	ErrStartValue        = "E203" // start value must be finite
	ErrInvalidPlot       = "E204" // unknown running-cost plot type
	ErrInvalidWindow     = "E205" // window bound unparseable or reversed

	// Component errors (E210-E219)
	ErrUnknownKind     = "E210" // unknown component kind
	ErrInvalidUnit     = "E211" // unknown period unit
	ErrInvalidEvery    = "E212" // period must be positive
	ErrInvalidRate     = "E213" // rate not finite
	ErrInvalidAmount   = "E214" // amount missing, negative or not finite
	ErrFieldNotAllowed = "E215" // field does not apply to this kind
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a series spec. Returns all errors found (does not
// fail-fast). loc is used to parse window bounds; nil means UTC.
func Validate(spec ir.SeriesSpec, loc *time.Location) []ValidationError {
	var errs []ValidationError
	prefix := "series." + spec.Name

	if strings.TrimSpace(spec.Name) == "" {
		prefix = "series"
		errs = append(errs, ValidationError{
			Field:   "series.name",
			Message: "series name is required",
			Code:    ErrSeriesNameEmpty,
			Line:    spec.Line,
		})
	}

	if math.IsNaN(spec.StartValue) || math.IsInf(spec.StartValue, 0) {
		errs = append(errs, ValidationError{
			Field:   prefix + ".start_value",
			Message: "start_value must be a finite number",
			Code:    ErrStartValue,
			Line:    spec.Line,
		})
	}

	if spec.RunningCost != nil {
		if _, err := ir.ParsePlotType(string(spec.RunningCost.Plot)); err != nil {
			errs = append(errs, ValidationError{
				Field:   prefix + ".running_cost.plot",
				Message: err.Error(),
				Code:    ErrInvalidPlot,
				Line:    spec.Line,
			})
		}
	}

	if len(spec.Components) == 0 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".components",
			Message: "at least one component is required",
			Code:    ErrSeriesNoComponent,
			Line:    spec.Line,
		})
	}

	for i, c := range spec.Components {
		errs = append(errs, validateComponent(c, fmt.Sprintf("%s.components[%d]", prefix, i))...)
	}

	if spec.Window != nil {
		errs = append(errs, ValidateWindow(*spec.Window, loc, prefix+".window", spec.Line)...)
	}

	return errs
}

func validateComponent(c ir.ComponentSpec, field string) []ValidationError {
	var errs []ValidationError
	add := func(suffix, code, msg string) {
		errs = append(errs, ValidationError{
			Field:   field + suffix,
			Message: msg,
			Code:    code,
			Line:    c.Line,
		})
	}

	if !ir.ValidKinds[c.Kind] {
		add(".kind", ErrUnknownKind, fmt.Sprintf("unknown kind %q: must be compound_interest, payment or deposit", c.Kind))
	}
	if _, err := calendar.ParseUnit(c.Unit); err != nil {
		add(".unit", ErrInvalidUnit, fmt.Sprintf("unknown unit %q: must be seconds, days, weeks, months or years", c.Unit))
	}
	if c.Every <= 0 {
		add(".every", ErrInvalidEvery, fmt.Sprintf("every must be positive, got %d", c.Every))
	}

	switch c.Kind {
	case ir.KindCompoundInterest:
		if math.IsNaN(c.Rate) || math.IsInf(c.Rate, 0) {
			add(".rate", ErrInvalidRate, "rate must be a finite number")
		}
		if c.Amount != 0 {
			add(".amount", ErrFieldNotAllowed, "amount does not apply to compound_interest")
		}
	case ir.KindPayment, ir.KindDeposit:
		if c.Amount <= 0 || math.IsInf(c.Amount, 0) || math.IsNaN(c.Amount) {
			add(".amount", ErrInvalidAmount, "amount must be a finite, positive number")
		}
		if c.Rate != 0 {
			add(".rate", ErrFieldNotAllowed, fmt.Sprintf("rate does not apply to %s", c.Kind))
		}
	}

	return errs
}

// ValidateWindow checks that both bounds parse and end is not before start.
func ValidateWindow(w ir.WindowSpec, loc *time.Location, field string, line int) []ValidationError {
	var errs []ValidationError
	start, startErr := ir.ParseTimestamp(w.Start, loc)
	if startErr != nil {
		errs = append(errs, ValidationError{Field: field + ".start", Message: startErr.Error(), Code: ErrInvalidWindow, Line: line})
	}
	end, endErr := ir.ParseTimestamp(w.End, loc)
	if endErr != nil {
		errs = append(errs, ValidationError{Field: field + ".end", Message: endErr.Error(), Code: ErrInvalidWindow, Line: line})
	}
	if startErr == nil && endErr == nil && end < start {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("end %s is before start %s", end, start),
			Code:    ErrInvalidWindow,
			Line:    line,
		})
	}
	return errs
}

// ValidateFile validates every series in a file plus the file window.
func ValidateFile(f *File, loc *time.Location) []ValidationError {
	var errs []ValidationError
	if f.Window != nil {
		errs = append(errs, ValidateWindow(*f.Window, loc, "window", 0)...)
	}
	for _, s := range f.Series {
		errs = append(errs, Validate(s, loc)...)
	}
	return errs
}
