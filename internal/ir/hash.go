package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for a future algorithm migration.
const (
	DomainSeriesSpec = "runcost/series/v1"
	DomainResult     = "runcost/result/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SpecHash computes the content hash of a series spec.
// Two specs with the same hash describe the same computation.
func SpecHash(spec SeriesSpec) (string, error) {
	canonical, err := MarshalCanonical(spec.Canonical())
	if err != nil {
		return "", fmt.Errorf("SpecHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSeriesSpec, canonical), nil
}

// ResultHash fingerprints computed output series. The CLI prints it so two
// runs can be compared without diffing every datapoint.
func ResultHash(series []Series) (string, error) {
	arr := make([]any, len(series))
	for i, s := range series {
		data := make([]any, len(s.Data))
		for j, dp := range s.Data {
			data[j] = map[string]any{
				"timestamp": dp.Timestamp,
				"value":     dp.Value,
			}
		}
		arr[i] = map[string]any{
			"label": s.Label,
			"data":  data,
		}
	}

	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("ResultHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainResult, canonical), nil
}
