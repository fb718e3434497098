// Package rates provides a cached exchange-rate lookup for dashboard
// display. Engine arithmetic never depends on it; all reconciled amounts
// are sterling.
package rates

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Fetcher looks up the current rate for one unit of base in quote currency.
type Fetcher interface {
	Fetch(base, quote string) (decimal.Decimal, error)
}

// fallbackRates are used when no fetcher is configured or a fetch fails and
// nothing fresher is cached. Approximate 2024 sterling crosses.
var fallbackRates = map[string]decimal.Decimal{
	"GBP/EUR": decimal.RequireFromString("1.17"),
	"GBP/USD": decimal.RequireFromString("1.27"),
	"GBP/GBP": decimal.RequireFromString("1"),
}

type entry struct {
	rate      decimal.Decimal
	fetchedAt time.Time
	fallback  bool
}

// Cache is a process-wide rate cache: each pair carries (value, fetchedAt).
// A read inside the TTL returns the cached value; otherwise the fetcher is
// called, and on error the previous or fallback value is served under a
// shorter retry TTL so the next read tries again sooner.
type Cache struct {
	mu       sync.Mutex
	fetcher  Fetcher
	ttl      time.Duration
	retryTTL time.Duration
	now      func() time.Time
	entries  map[string]entry
}

// New creates a Cache. fetcher may be nil, in which case only the fallback
// table is served.
func New(fetcher Fetcher, ttl time.Duration) *Cache {
	retry := ttl / 4
	if retry < time.Minute {
		retry = time.Minute
	}
	return &Cache{
		fetcher:  fetcher,
		ttl:      ttl,
		retryTTL: retry,
		now:      time.Now,
		entries:  make(map[string]entry),
	}
}

// Rate returns the rate for one unit of base in quote currency.
func (c *Cache) Rate(base, quote string) (decimal.Decimal, error) {
	key := base + "/" + quote

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		ttl := c.ttl
		if e.fallback {
			ttl = c.retryTTL
		}
		if c.now().Sub(e.fetchedAt) < ttl {
			return e.rate, nil
		}
	}

	if c.fetcher != nil {
		rate, err := c.fetcher.Fetch(base, quote)
		if err == nil {
			c.entries[key] = entry{rate: rate, fetchedAt: c.now()}
			return rate, nil
		}
		// Fall back to the stale value if we have one, on the retry TTL.
		if e, ok := c.entries[key]; ok {
			c.entries[key] = entry{rate: e.rate, fetchedAt: c.now(), fallback: true}
			return e.rate, nil
		}
	}

	if rate, ok := fallbackRates[key]; ok {
		c.entries[key] = entry{rate: rate, fetchedAt: c.now(), fallback: true}
		return rate, nil
	}
	return decimal.Zero, fmt.Errorf("unsupported currency pair: %s", key)
}
