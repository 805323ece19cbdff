package levermann

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"StockSentinel/internal/model"
)

// resultWithScore spreads score over the first |score| criteria.
func resultWithScore(score int) *model.EvaluationResult {
	r := &model.EvaluationResult{}
	p := 1
	if score < 0 {
		p, score = -1, -score
	}
	fields := []*model.Rating{
		&r.ROE, &r.EquityRatio, &r.EBITMargin, &r.PriceEarningsRatio,
		&r.FiveYearsPriceEarningsRatio, &r.EarningGrowth, &r.ThreeMonthReversal,
		&r.Momentum, &r.QuoteChg6Month, &r.QuoteChg1Year, &r.EarningRevision,
		&r.QuarterlyFiguresReaction, &r.AnalystRating,
	}
	for i := 0; i < score; i++ {
		*fields[i] = model.NewRating(p, 0)
	}
	return r
}

func TestRecommendLargeCap(t *testing.T) {
	tests := []struct {
		score int
		want  model.Recommendation
	}{
		{-4, model.RecommendationSell},
		{2, model.RecommendationSell},
		{3, model.RecommendationHold},
		{4, model.RecommendationBuy},
		{5, model.RecommendationBuy},
		{13, model.RecommendationBuy},
	}
	for _, tt := range tests {
		got := Recommend(resultWithScore(tt.score), nil, model.CapLarge)
		assert.Equal(t, tt.want, got, "score %d", tt.score)
	}
}

func TestRecommendLargeCapMonotonic(t *testing.T) {
	for s := 5; s <= 13; s++ {
		assert.Equal(t, model.RecommendationBuy, Recommend(resultWithScore(s), nil, model.CapLarge))
	}
	for s := -13; s <= 2; s++ {
		assert.NotEqual(t, model.RecommendationBuy, Recommend(resultWithScore(s), nil, model.CapLarge))
	}
}

func TestRecommendSmallAndMidCap(t *testing.T) {
	tests := []struct {
		score int
		want  model.Recommendation
	}{
		{0, model.RecommendationSell},
		{4, model.RecommendationSell},
		{5, model.RecommendationHold},
		{6, model.RecommendationHold},
		{7, model.RecommendationBuy},
	}
	for _, tt := range tests {
		for _, c := range []model.CapType{model.CapMid, model.CapSmall} {
			got := Recommend(resultWithScore(tt.score), nil, c)
			assert.Equal(t, tt.want, got, "score %d cap %s", tt.score, c)
		}
	}
}

func TestRecommendDropOverride(t *testing.T) {
	assert.Equal(t, model.RecommendationSell,
		Recommend(resultWithScore(5), resultWithScore(8), model.CapLarge))
	assert.Equal(t, model.RecommendationSell,
		Recommend(resultWithScore(9), resultWithScore(11), model.CapMid))
	// A drop of one keeps the bucket result.
	assert.Equal(t, model.RecommendationBuy,
		Recommend(resultWithScore(7), resultWithScore(8), model.CapLarge))
}

func TestRecommendNone(t *testing.T) {
	assert.Equal(t, model.RecommendationNone, Recommend(nil, nil, model.CapLarge))
	assert.Equal(t, model.RecommendationNone, Recommend(resultWithScore(5), nil, model.CapUnknown))
}
