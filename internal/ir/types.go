package ir

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timestamp is a count of seconds since the Unix epoch.
type Timestamp int64

// FromTime converts a time.Time to a Timestamp, dropping sub-second precision.
func FromTime(t time.Time) Timestamp {
	return Timestamp(t.Unix())
}

// Time returns the instant in the given location. A nil location means UTC.
func (ts Timestamp) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(int64(ts), 0).In(loc)
}

// String formats the timestamp as RFC 3339 in UTC.
func (ts Timestamp) String() string {
	return ts.Time(time.UTC).Format(time.RFC3339)
}

// dateLayouts are tried in order after epoch digits.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses epoch seconds ("1700000000"), RFC 3339, or a plain
// date ("2024-01-31"). Layouts without a zone are interpreted in loc; a nil
// location means UTC.
func ParseTimestamp(s string, loc *time.Location) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	if loc == nil {
		loc = time.UTC
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Timestamp(n), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return FromTime(t), nil
		}
	}

	return 0, fmt.Errorf("invalid timestamp %q: want epoch seconds, RFC 3339 or YYYY-MM-DD", s)
}

// Datapoint is a single computed value at a point in time.
type Datapoint struct {
	Value     float64   `json:"value"`
	Timestamp Timestamp `json:"timestamp"`
}

// Series is a labelled, timestamp-ascending sequence of datapoints.
//
// A finished Series never holds two datapoints with the same timestamp.
type Series struct {
	Label string      `json:"label"`
	Data  []Datapoint `json:"data"`
}

// Last returns the final datapoint. ok is false for an empty series.
func (s Series) Last() (Datapoint, bool) {
	if len(s.Data) == 0 {
		return Datapoint{}, false
	}
	return s.Data[len(s.Data)-1], true
}

// Clone returns a deep copy of the series.
func (s Series) Clone() Series {
	data := make([]Datapoint, len(s.Data))
	copy(data, s.Data)
	return Series{Label: s.Label, Data: data}
}

// PlotType selects which series a computation returns.
type PlotType string

const (
	// PlotOff returns only the primary series. The zero value behaves as PlotOff.
	PlotOff PlotType = "off"
	// PlotAlongside returns the running-cost series followed by the primary series.
	PlotAlongside PlotType = "alongside"
	// PlotOnly returns only the running-cost series.
	PlotOnly PlotType = "only"
)

// ValidPlotTypes lists the accepted plot type names.
var ValidPlotTypes = map[PlotType]bool{
	PlotOff:       true,
	PlotAlongside: true,
	PlotOnly:      true,
}

// ParsePlotType parses a plot type name. The empty string parses as PlotOff.
func ParsePlotType(s string) (PlotType, error) {
	p := PlotType(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PlotOff, nil
	}
	if !ValidPlotTypes[p] {
		return "", fmt.Errorf("invalid plot type %q: must be off, alongside or only", s)
	}
	return p, nil
}

// Tracked reports whether a running-cost series is computed for this plot type.
func (p PlotType) Tracked() bool {
	return p == PlotAlongside || p == PlotOnly
}
