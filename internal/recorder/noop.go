package recorder

import (
	"context"

	"StockSentinel/internal/model"
)

// NoopRecorder is a no-op implementation used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) SaveFundamentals(context.Context, *model.StockSnapshot) (int64, error) {
	return 0, nil
}

func (n *NoopRecorder) SaveYearlyMetrics(context.Context, *model.StockSnapshot) (int64, error) {
	return 0, nil
}

func (n *NoopRecorder) SaveEvaluationValues(context.Context, *model.EvaluationValues) (int64, error) {
	return 0, nil
}

func (n *NoopRecorder) SaveEvaluationPoints(context.Context, *model.EvaluationResult) (int64, error) {
	return 0, nil
}

func (n *NoopRecorder) ScoreHistory(context.Context, string) ([]PointsRow, error) {
	return nil, nil
}

func (n *NoopRecorder) Close() error { return nil }
