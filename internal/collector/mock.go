package collector

import (
	"context"
	"sync"
	"time"

	"StockSentinel/internal/calculator"
	"StockSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price  float64
	Series map[string][]model.OHLCV
	Err    error

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol string, from time.Time) ([]model.OHLCV, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if bars, ok := m.Series[symbol]; ok {
		return bars, nil
	}
	return generateMockBars(m.Price, calculator.Day(from), calculator.Day(time.Now())), nil
}

// Calls returns how often symbol was fetched.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// generateMockBars emits one bar per weekday between from and to with a
// slowly rising close around basePrice.
func generateMockBars(basePrice float64, from, to time.Time) []model.OHLCV {
	var bars []model.OHLCV
	i := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if !calculator.IsWeekday(d) {
			continue
		}
		p := basePrice * (1 + float64(i)*0.001)
		bars = append(bars, model.OHLCV{
			Time:   d,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		})
		i++
	}
	return bars
}
