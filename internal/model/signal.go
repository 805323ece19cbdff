package model

import (
	"fmt"
	"strings"
)

// Rating pairs the metric a criterion looked at with the points it earned.
// A nil Value means the metric was not available.
type Rating struct {
	Value  []float64 `json:"value"`
	Points int       `json:"points"`
}

// NewRating builds a Rating, copying values so the caller cannot mutate it later.
func NewRating(points int, values ...float64) Rating {
	if len(values) == 0 {
		return Rating{Points: points}
	}
	v := make([]float64, len(values))
	copy(v, values)
	return Rating{Value: v, Points: points}
}

// ZeroRating is the neutral fallback used when a criterion cannot be computed.
func ZeroRating() Rating {
	return NewRating(0, 0)
}

// Scalar returns the first value, if any.
func (r Rating) Scalar() (float64, bool) {
	if len(r.Value) == 0 {
		return 0, false
	}
	return r.Value[0], true
}

// FormatValue renders the value with the given verb, joining tuples with ", ".
func (r Rating) FormatValue(verb, suffix string) string {
	if len(r.Value) == 0 {
		return "n/a"
	}
	parts := make([]string, len(r.Value))
	for i, v := range r.Value {
		parts[i] = fmt.Sprintf(verb, v) + suffix
	}
	return strings.Join(parts, ", ")
}

// Recommendation is the action derived from a Levermann score.
type Recommendation string

const (
	RecommendationNone Recommendation = "NONE"
	RecommendationBuy  Recommendation = "BUY"
	RecommendationHold Recommendation = "HOLD"
	RecommendationSell Recommendation = "SELL"
)
