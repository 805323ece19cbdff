package levermann

import "StockSentinel/internal/model"

// Score buckets per cap tier. A score at or below sellAt is SELL, below buyFrom
// is HOLD, anything else BUY.
type buckets struct {
	sellAt  int
	buyFrom int
}

var (
	largeCapBuckets = buckets{sellAt: 2, buyFrom: 4}
	otherCapBuckets = buckets{sellAt: 4, buyFrom: 7}
)

// dropSell is the score decrease against the previous result that forces SELL.
const dropSell = -2

// Recommend maps the current result, and optionally the previous one, to an
// action for a stock of the given cap tier.
func Recommend(current, previous *model.EvaluationResult, capType model.CapType) model.Recommendation {
	if current == nil {
		return model.RecommendationNone
	}
	score := current.Score()
	if previous != nil && score-previous.Score() <= dropSell {
		return model.RecommendationSell
	}

	var b buckets
	switch capType {
	case model.CapLarge:
		b = largeCapBuckets
	case model.CapMid, model.CapSmall:
		b = otherCapBuckets
	default:
		return model.RecommendationNone
	}

	switch {
	case score <= b.sellAt:
		return model.RecommendationSell
	case score < b.buyFrom:
		return model.RecommendationHold
	default:
		return model.RecommendationBuy
	}
}
