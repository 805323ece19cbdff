package levermann

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// band classifies a value against an inclusive neutral range:
// below low -> -1, low..high -> 0, above high -> +1.
type band struct {
	low  decimal.Decimal
	high decimal.Decimal
}

func newBand(low, high int64) band {
	return band{low: decimal.NewFromInt(low), high: decimal.NewFromInt(high)}
}

var (
	roeBand         = newBand(10, 20)
	equityRatioBand = newBand(15, 25)
	ebitMarginBand  = newBand(6, 12)
	changeBand      = newBand(-5, 5)

	perCheap     = decimal.NewFromInt(12)
	perExpensive = decimal.NewFromInt(16)

	reactionLow  = decimal.NewFromInt(-1)
	reactionHigh = decimal.NewFromInt(1)
)

// toDecimal converts through the shortest decimal representation of v, so
// 9.999 compares as exactly 9.999.
func toDecimal(v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidValue, v)
	}
	return decimal.NewFromFloat(v), nil
}

func (b band) classify(v float64) (int, error) {
	d, err := toDecimal(v)
	if err != nil {
		return 0, err
	}
	switch {
	case d.LessThan(b.low):
		return -1, nil
	case d.GreaterThan(b.high):
		return 1, nil
	default:
		return 0, nil
	}
}

// classifyPER: 0 < per < 12 -> +1, 12..16 -> 0, otherwise -1.
func classifyPER(per float64) (int, error) {
	d, err := toDecimal(per)
	if err != nil {
		return 0, err
	}
	switch {
	case d.IsPositive() && d.LessThan(perCheap):
		return 1, nil
	case d.GreaterThanOrEqual(perCheap) && d.LessThanOrEqual(perExpensive):
		return 0, nil
	default:
		return -1, nil
	}
}

// classifyReaction: -1 <= chg < 1 -> 0, chg >= 1 -> +1, chg < -1 -> -1.
func classifyReaction(chg float64) (int, error) {
	d, err := toDecimal(chg)
	if err != nil {
		return 0, err
	}
	switch {
	case d.GreaterThanOrEqual(reactionHigh):
		return 1, nil
	case d.LessThan(reactionLow):
		return -1, nil
	default:
		return 0, nil
	}
}
