package model

import "time"

// OHLCV represents a single daily candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds the daily bars fetched for one symbol or index, oldest first.
type PriceSeries struct {
	Symbol    string
	DailyBars []OHLCV
	// From is the first day that was requested. It may precede the first bar
	// when the symbol did not trade yet.
	From      time.Time
	FetchedAt time.Time
}

// Covers reports whether the series reaches back to day.
func (s *PriceSeries) Covers(day time.Time) bool {
	if s == nil || len(s.DailyBars) == 0 {
		return false
	}
	if !s.From.IsZero() && !s.From.After(day) {
		return true
	}
	return !s.DailyBars[0].Time.After(day)
}

// CloseOn returns the close of the latest bar on or before day, along with the
// bar's date. ok is false when no such bar exists.
func (s *PriceSeries) CloseOn(day time.Time) (close float64, at time.Time, ok bool) {
	if s == nil {
		return 0, time.Time{}, false
	}
	for i := len(s.DailyBars) - 1; i >= 0; i-- {
		b := s.DailyBars[i]
		if b.Time.After(day) {
			continue
		}
		return b.Close, b.Time, true
	}
	return 0, time.Time{}, false
}
