package calculator

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrZeroBase is returned when a relative change would divide by zero.
	ErrZeroBase = errors.New("base value is zero")
	// ErrNoValues is returned when an average is requested over nothing.
	ErrNoValues = errors.New("no values")
)

// PercentChange returns (now/before - 1) * 100.
func PercentChange(now, before float64) (float64, error) {
	if before == 0 {
		return 0, ErrZeroBase
	}
	chg := (now/before - 1) * 100
	if math.IsNaN(chg) || math.IsInf(chg, 0) {
		return 0, ErrZeroBase
	}
	return chg, nil
}

// Mean computes the arithmetic mean of values.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrNoValues
	}
	return stat.Mean(values, nil), nil
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
