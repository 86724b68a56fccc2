package catalog

import (
	"fmt"
	"strings"
)

// Layer value types.
const (
	QuantileLow  = "Q0.05"
	MeanValue    = "mean"
	QuantileHigh = "Q0.95"
	Uncertainty  = "uncertainty"
)

// DefaultTypes is the set the CLI requests when none is given.
var DefaultTypes = []string{QuantileLow, MeanValue, QuantileHigh, Uncertainty}

// Layer is a parsed coverage id. Depth and Quantile are empty when the id
// does not carry them (e.g. "ocs_0-30cm" has no quantile).
type Layer struct {
	Product  string
	Depth    string
	Quantile string
}

func (l Layer) String() string {
	parts := []string{l.Product}
	for _, s := range []string{l.Depth, l.Quantile} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "_")
}

// WithQuantile returns the layer id for another value type at the same depth.
func (l Layer) WithQuantile(q string) Layer {
	l.Quantile = q
	return l
}

func ParseLayer(id string) (Layer, error) {
	parts := strings.Split(strings.TrimSpace(id), "_")
	if parts[0] == "" {
		return Layer{}, fmt.Errorf("catalog: empty layer id")
	}
	l := Layer{Product: parts[0]}
	rest := parts[1:]
	if len(rest) > 0 && isDepth(rest[0]) {
		l.Depth = rest[0]
		rest = rest[1:]
	}
	if len(rest) > 0 {
		l.Quantile = strings.Join(rest, "_")
	}
	return l, nil
}

func isDepth(s string) bool {
	top, bottom, ok := strings.Cut(strings.TrimSuffix(s, "cm"), "-")
	if !ok || !strings.HasSuffix(s, "cm") {
		return false
	}
	return isDigits(top) && isDigits(bottom)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
