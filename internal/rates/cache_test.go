package rates

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	rate  decimal.Decimal
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(base, quote string) (decimal.Decimal, error) {
	f.calls++
	return f.rate, f.err
}

func TestCacheServesWithinTTL(t *testing.T) {
	f := &fakeFetcher{rate: decimal.RequireFromString("1.20")}
	c := New(f, time.Hour)

	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	r1, err := c.Rate("GBP", "EUR")
	require.NoError(t, err)
	assert.Equal(t, "1.2", r1.String())
	assert.Equal(t, 1, f.calls)

	// Still fresh: no refetch.
	now = now.Add(30 * time.Minute)
	_, err = c.Rate("GBP", "EUR")
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls)

	// Stale: refetched.
	now = now.Add(31 * time.Minute)
	_, err = c.Rate("GBP", "EUR")
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls)
}

func TestCacheFallsBackToStaleValueOnFetchError(t *testing.T) {
	f := &fakeFetcher{rate: decimal.RequireFromString("1.20")}
	c := New(f, time.Hour)

	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.Rate("GBP", "EUR")
	require.NoError(t, err)

	// Upstream starts failing after expiry: serve the stale value.
	f.err = errors.New("upstream down")
	now = now.Add(2 * time.Hour)
	r, err := c.Rate("GBP", "EUR")
	require.NoError(t, err)
	assert.Equal(t, "1.2", r.String())

	// Fallback values live on the shorter retry TTL, so the next read
	// after it elapses tries upstream again.
	calls := f.calls
	now = now.Add(16 * time.Minute)
	_, err = c.Rate("GBP", "EUR")
	require.NoError(t, err)
	assert.Greater(t, f.calls, calls)
}

func TestCacheStaticFallbackWithoutFetcher(t *testing.T) {
	c := New(nil, time.Hour)

	r, err := c.Rate("GBP", "EUR")
	require.NoError(t, err)
	assert.False(t, r.IsZero())

	_, err = c.Rate("GBP", "JPY")
	assert.Error(t, err)
}

func TestCacheFallbackTableOnFirstFetchError(t *testing.T) {
	f := &fakeFetcher{err: errors.New("upstream down")}
	c := New(f, time.Hour)

	r, err := c.Rate("GBP", "USD")
	require.NoError(t, err)
	assert.Equal(t, "1.27", r.String())
}
