package ir

// Component kinds understood by the compiler.
const (
	KindCompoundInterest = "compound_interest"
	KindPayment          = "payment"
	KindDeposit          = "deposit"
)

// ValidKinds lists the component kinds a spec may name.
var ValidKinds = map[string]bool{
	KindCompoundInterest: true,
	KindPayment:          true,
	KindDeposit:          true,
}

// SeriesSpec is the declarative form of one series definition.
type SeriesSpec struct {
	Name        string           `json:"name" yaml:"name"`
	Label       string           `json:"label" yaml:"label"`
	StartValue  float64          `json:"start_value" yaml:"start_value"`
	RunningCost *RunningCostSpec `json:"running_cost,omitempty" yaml:"running_cost,omitempty"`
	Components  []ComponentSpec  `json:"components" yaml:"components"`
	Window      *WindowSpec      `json:"window,omitempty" yaml:"window,omitempty"`
	Line        int              `json:"-" yaml:"-"` // source line for error messages
}

// ComponentSpec declares one contributor to a series.
//
// Rate is used by compound_interest; Amount by payment and deposit.
type ComponentSpec struct {
	Kind   string  `json:"kind" yaml:"kind"`
	Rate   float64 `json:"rate,omitempty" yaml:"rate,omitempty"`
	Amount float64 `json:"amount,omitempty" yaml:"amount,omitempty"`
	Every  int     `json:"every" yaml:"every"`
	Unit   string  `json:"unit" yaml:"unit"`
	Line   int     `json:"-" yaml:"-"`
}

// RunningCostSpec configures the auxiliary running-cost series.
type RunningCostSpec struct {
	Plot   PlotType `json:"plot" yaml:"plot"`
	Prefix string   `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// WindowSpec bounds a computation. Values use ParseTimestamp syntax.
type WindowSpec struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// Canonical returns the spec as a plain value tree suitable for
// MarshalCanonical. Optional fields that are unset are omitted so that
// adding an optional field later does not change existing hashes.
func (s SeriesSpec) Canonical() map[string]any {
	components := make([]any, len(s.Components))
	for i, c := range s.Components {
		components[i] = c.Canonical()
	}

	obj := map[string]any{
		"name":        s.Name,
		"label":       s.Label,
		"start_value": s.StartValue,
		"components":  components,
	}
	if s.RunningCost != nil {
		rc := map[string]any{"plot": string(s.RunningCost.Plot)}
		if s.RunningCost.Prefix != "" {
			rc["prefix"] = s.RunningCost.Prefix
		}
		obj["running_cost"] = rc
	}
	if s.Window != nil {
		obj["window"] = map[string]any{
			"start": s.Window.Start,
			"end":   s.Window.End,
		}
	}
	return obj
}

// Canonical returns the component as a plain value tree.
func (c ComponentSpec) Canonical() map[string]any {
	obj := map[string]any{
		"kind":  c.Kind,
		"every": c.Every,
		"unit":  c.Unit,
	}
	if c.Rate != 0 {
		obj["rate"] = c.Rate
	}
	if c.Amount != 0 {
		obj["amount"] = c.Amount
	}
	return obj
}
