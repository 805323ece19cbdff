package collector

import (
	"sync"
	"time"

	"StockSentinel/internal/model"
)

// QuoteCache keeps fetched price series per symbol. Entries expire after ttl;
// when full, the entry fetched longest ago is evicted.
type QuoteCache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]*model.PriceSeries
	now        func() time.Time
}

// NewQuoteCache creates a cache. ttl <= 0 disables expiry, maxEntries <= 0
// disables eviction.
func NewQuoteCache(ttl time.Duration, maxEntries int) *QuoteCache {
	return &QuoteCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*model.PriceSeries),
		now:        time.Now,
	}
}

// Get returns the cached series for symbol if it has not expired.
func (c *QuoteCache) Get(symbol string) (*model.PriceSeries, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.entries[symbol]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(s.FetchedAt) > c.ttl {
		delete(c.entries, symbol)
		return nil, false
	}
	return s, true
}

// Put stores a series, replacing any previous one for the same symbol.
func (c *QuoteCache) Put(s *model.PriceSeries) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[s.Symbol]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[s.Symbol] = s
}

func (c *QuoteCache) evictOldest() {
	var oldest string
	var oldestAt time.Time
	for sym, s := range c.entries {
		if oldest == "" || s.FetchedAt.Before(oldestAt) {
			oldest, oldestAt = sym, s.FetchedAt
		}
	}
	delete(c.entries, oldest)
}

// Len returns the number of cached series.
func (c *QuoteCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *QuoteCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*model.PriceSeries)
}
