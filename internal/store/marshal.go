package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/runcost/internal/ir"
)

// marshalSpec serializes a spec to canonical JSON and computes its hash.
func marshalSpec(spec ir.SeriesSpec) (data string, hash string, err error) {
	canonical, err := ir.MarshalCanonical(spec.Canonical())
	if err != nil {
		return "", "", fmt.Errorf("marshal spec: %w", err)
	}
	hash, err = ir.SpecHash(spec)
	if err != nil {
		return "", "", err
	}
	return string(canonical), hash, nil
}

// unmarshalSpec parses a stored spec.
func unmarshalSpec(data string) (ir.SeriesSpec, error) {
	var spec ir.SeriesSpec
	if err := json.Unmarshal([]byte(data), &spec); err != nil {
		return ir.SeriesSpec{}, fmt.Errorf("unmarshal spec: %w", err)
	}
	return spec, nil
}
