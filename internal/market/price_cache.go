package market

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// HourlyPrice is one (hour bucket, USD price) sample for a token.
type HourlyPrice struct {
	Hour  time.Time // truncated to the hour, UTC
	Price float64
}

// PriceCache is the in-memory (token, hour) -> USD price cache described for
// the price oracle, guarded by a single RWMutex over a plain map: readers
// share the lock with each other, and a writer holds it exclusively.
type PriceCache struct {
	mu     sync.RWMutex
	prices map[string][]HourlyPrice // key: lowercase token address
}

// NewPriceCache builds an empty cache.
func NewPriceCache() *PriceCache {
	return &PriceCache{prices: make(map[string][]HourlyPrice)}
}

// Load replaces the cached series for a token wholesale (used to warm the
// cache from persisted history at startup).
func (c *PriceCache) Load(token string, prices []HourlyPrice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sorted := append([]HourlyPrice(nil), prices...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Hour.Before(sorted[j].Hour) })
	c.prices[strings.ToLower(token)] = sorted
}

// Put records a single (hour, price) sample, de-duplicating by hour.
func (c *PriceCache) Put(token string, hour time.Time, price float64) {
	hour = hour.UTC().Truncate(time.Hour)
	key := strings.ToLower(token)

	c.mu.Lock()
	defer c.mu.Unlock()

	existing := c.prices[key]
	idx := sort.Search(len(existing), func(i int) bool { return !existing[i].Hour.Before(hour) })
	if idx < len(existing) && existing[idx].Hour.Equal(hour) {
		existing[idx].Price = price
		return
	}
	existing = append(existing, HourlyPrice{})
	copy(existing[idx+1:], existing[idx:])
	existing[idx] = HourlyPrice{Hour: hour, Price: price}
	c.prices[key] = existing
}

// Get returns the cached price for (token, hour) exactly, the unit the price
// oracle is keyed on per its (token, hour) cache contract.
func (c *PriceCache) Get(token string, hour time.Time) (float64, bool) {
	hour = hour.UTC().Truncate(time.Hour)
	c.mu.RLock()
	defer c.mu.RUnlock()

	ps := c.prices[strings.ToLower(token)]
	idx := sort.Search(len(ps), func(i int) bool { return !ps[i].Hour.Before(hour) })
	if idx < len(ps) && ps[idx].Hour.Equal(hour) {
		return ps[idx].Price, true
	}
	return 0, false
}

// Nearest returns the price for the hour bucket closest to ts, within a 48h
// window, for use when an exact-hour sample is missing.
func (c *PriceCache) Nearest(token string, ts time.Time) (float64, bool) {
	target := ts.UTC().Truncate(time.Hour)
	c.mu.RLock()
	defer c.mu.RUnlock()

	ps := c.prices[strings.ToLower(token)]
	if len(ps) == 0 {
		return 0, false
	}

	idx := sort.Search(len(ps), func(i int) bool { return !ps[i].Hour.Before(target) })

	best := -1
	bestDelta := time.Duration(1<<63 - 1)
	for _, i := range []int{idx - 1, idx} {
		if i < 0 || i >= len(ps) {
			continue
		}
		delta := ps[i].Hour.Sub(target)
		if delta < 0 {
			delta = -delta
		}
		if delta < bestDelta {
			bestDelta = delta
			best = i
		}
	}
	if best < 0 || bestDelta > 48*time.Hour {
		return 0, false
	}
	return ps[best].Price, true
}

// LatestPrice returns the most recent cached sample for token, regardless of age.
func (c *PriceCache) LatestPrice(token string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ps := c.prices[strings.ToLower(token)]
	if len(ps) == 0 {
		return 0, false
	}
	return ps[len(ps)-1].Price, true
}
