// Package stats reduces sampled cell values to summary statistics.
package stats

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrEmptySample is returned when no values survive sampling and filtering.
var ErrEmptySample = errors.New("stats: no values to summarize")

var ErrUnknownKind = errors.New("stats: unknown statistic")

type Kind int

const (
	Mean Kind = iota
	Min
	Max
	Std
)

var kindNames = [...]string{Mean: "mean", Min: "min", Max: "max", Std: "std"}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// All lists every statistic in response order.
func All() []Kind { return []Kind{Mean, Min, Max, Std} }

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mean", "avg":
		return Mean, nil
	case "min":
		return Min, nil
	case "max":
		return Max, nil
	case "std", "stddev":
		return Std, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

type reducer func([]float64) float64

var reducers = map[Kind]reducer{
	Mean: mean,
	Min:  minimum,
	Max:  maximum,
	Std:  stddev,
}

// Compute applies each requested reducer. With no kinds it computes all.
func Compute(values []float64, kinds ...Kind) (map[Kind]float64, error) {
	if len(values) == 0 {
		return nil, ErrEmptySample
	}
	if len(kinds) == 0 {
		kinds = All()
	}
	out := make(map[Kind]float64, len(kinds))
	for _, k := range kinds {
		fn, ok := reducers[k]
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnknownKind, k)
		}
		out[k] = fn(values)
	}
	return out, nil
}

// Summary is the response shape for one polygon.
type Summary struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Std  float64 `json:"std"`
}

// Value returns the field of s that holds k.
func (s Summary) Value(k Kind) float64 {
	switch k {
	case Min:
		return s.Min
	case Max:
		return s.Max
	case Std:
		return s.Std
	default:
		return s.Mean
	}
}

func Summarize(values []float64) (Summary, error) {
	m, err := Compute(values)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Mean: m[Mean], Min: m[Min], Max: m[Max], Std: m[Std]}, nil
}

func mean(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func minimum(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		m = math.Min(m, x)
	}
	return m
}

func maximum(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		m = math.Max(m, x)
	}
	return m
}

// stddev is the population standard deviation (divides by N).
func stddev(v []float64) float64 {
	mu := mean(v)
	var ss float64
	for _, x := range v {
		d := x - mu
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(v)))
}
