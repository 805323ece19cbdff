package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"StockSentinel/internal/calculator"
	"StockSentinel/internal/model"
)

// ErrNoQuote is returned when no close exists near the requested day.
var ErrNoQuote = errors.New("no quote")

const (
	defaultLookback = 400 * 24 * time.Hour
	defaultMaxGap   = 7 * 24 * time.Hour
)

// Collector answers historic quote lookups from cached daily series,
// fetching a series once per symbol and cache lifetime.
type Collector struct {
	fetcher  Fetcher
	cache    *QuoteCache
	log      zerolog.Logger
	lookback time.Duration
	maxGap   time.Duration
	now      func() time.Time

	fetchMu sync.Mutex
}

// NewCollector creates a Collector. A nil cache disables caching.
func NewCollector(fetcher Fetcher, cache *QuoteCache, log zerolog.Logger) *Collector {
	if cache == nil {
		cache = NewQuoteCache(time.Nanosecond, 1)
	}
	return &Collector{
		fetcher:  fetcher,
		cache:    cache,
		log:      log.With().Str("component", "collector").Str("fetcher", fetcher.Name()).Logger(),
		lookback: defaultLookback,
		maxGap:   defaultMaxGap,
		now:      time.Now,
	}
}

// HistoricQuote returns the close of symbol on day, or of the latest trading
// day before it when day was not a trading day.
func (c *Collector) HistoricQuote(ctx context.Context, symbol string, day time.Time) (float64, error) {
	day = calculator.Day(day)
	series, err := c.series(ctx, symbol, day)
	if err != nil {
		return 0, err
	}
	price, at, ok := series.CloseOn(day)
	if !ok || day.Sub(at) > c.maxGap {
		return 0, fmt.Errorf("%w for %s on %s", ErrNoQuote, symbol, day.Format("2006-01-02"))
	}
	if !at.Equal(day) {
		c.log.Debug().Str("symbol", symbol).Time("requested", day).Time("used", at).Msg("using earlier trading day")
	}
	return price, nil
}

func (c *Collector) series(ctx context.Context, symbol string, day time.Time) (*model.PriceSeries, error) {
	if s, ok := c.cache.Get(symbol); ok && s.Covers(day) {
		return s, nil
	}

	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()
	if s, ok := c.cache.Get(symbol); ok && s.Covers(day) {
		return s, nil
	}

	from := calculator.Day(c.now().Add(-c.lookback))
	if day.Before(from) {
		from = day
	}
	from = from.Add(-c.maxGap)

	c.log.Info().Str("symbol", symbol).Time("from", from).Msg("fetching daily bars")
	bars, err := c.fetcher.FetchDailyBars(ctx, symbol, from)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s returned no bars for %s", ErrNoQuote, c.fetcher.Name(), symbol)
	}
	s := &model.PriceSeries{Symbol: symbol, DailyBars: bars, From: from, FetchedAt: c.now()}
	c.cache.Put(s)
	return s, nil
}

// LastQuarterlyRelease returns the most recent quarterly figures date of the
// snapshot that is not after today.
func (c *Collector) LastQuarterlyRelease(snap *model.StockSnapshot, today time.Time) (time.Time, error) {
	d, ok := snap.LastQuarterlyRelease(calculator.Day(today))
	if !ok {
		return time.Time{}, fmt.Errorf("no released quarterly figures for %s", snap.ID())
	}
	return d, nil
}
