package engine

import (
	"github.com/roach88/runcost/internal/ir"
)

// merger owns the aggregate value and the output sequences of one
// computation. Each event either appends a new datapoint or merges into the
// current one; which depends only on whether its timestamp equals the last
// processed timestamp.
type merger struct {
	aggregate     float64
	lastProcessed ir.Timestamp
	primary       ir.Series
	cost          *ir.Series
}

func newMerger(label string, startValue float64, windowStart ir.Timestamp, trackCost bool) *merger {
	m := &merger{
		aggregate:     startValue,
		lastProcessed: windowStart,
		primary: ir.Series{
			Label: label,
			Data:  []ir.Datapoint{{Value: startValue, Timestamp: windowStart}},
		},
	}
	if trackCost {
		m.cost = &ir.Series{
			Data: []ir.Datapoint{{Value: 0, Timestamp: windowStart}},
		}
	}
	return m
}

// history exposes the primary sequence to formulas without copying.
func (m *merger) history() History {
	return History{data: m.primary.Data}
}

// apply records newValue at ts and reports whether it merged into the last
// datapoint.
func (m *merger) apply(ts ir.Timestamp, newValue float64) bool {
	delta := newValue - m.aggregate
	m.aggregate = newValue

	contribution := 0.0
	if delta < 0 {
		contribution = -delta
	}

	merged := ts == m.lastProcessed
	if merged {
		m.mergeLast(contribution)
	} else {
		m.appendPoint(ts, contribution)
	}
	m.lastProcessed = ts
	return merged
}

func (m *merger) mergeLast(contribution float64) {
	m.primary.Data[len(m.primary.Data)-1].Value = m.aggregate
	if m.cost != nil {
		m.cost.Data[len(m.cost.Data)-1].Value += contribution
	}
}

func (m *merger) appendPoint(ts ir.Timestamp, contribution float64) {
	m.primary.Data = append(m.primary.Data, ir.Datapoint{Value: m.aggregate, Timestamp: ts})
	if m.cost != nil {
		total := m.cost.Data[len(m.cost.Data)-1].Value + contribution
		m.cost.Data = append(m.cost.Data, ir.Datapoint{Value: total, Timestamp: ts})
	}
}
