package collector

import (
	"context"
	"fmt"
	"time"

	"StockSentinel/internal/model"
)

// Fetcher loads daily bars for a symbol or index.
type Fetcher interface {
	// FetchDailyBars returns bars from the given day up to today, oldest first.
	// Bar times are truncated to their calendar day in UTC.
	FetchDailyBars(ctx context.Context, symbol string, from time.Time) ([]model.OHLCV, error)
	Name() string
}

// APIError is a non-success answer from a quote provider.
type APIError struct {
	Provider   string
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error: %s (status: %d, endpoint: %s)", e.Provider, e.Message, e.StatusCode, e.Endpoint)
}
