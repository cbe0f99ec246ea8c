package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Oracle answers priceOf(token, timestamp) -> USD, backed by an in-memory
// (token, hour) cache and a pluggable HTTP backend for cache misses.
type Oracle struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	cache   *PriceCache
}

// NewOracle builds an Oracle against baseURL (an HTTP price service expected
// to answer GET /price?token=...&timestamp=... with {"usd": ...}).
func NewOracle(baseURL string, timeout time.Duration, cache *PriceCache) *Oracle {
	return &Oracle{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout + 2*time.Second},
		timeout: timeout,
		cache:   cache,
	}
}

// PriceOf returns the USD price of token at the given timestamp, checking the
// cache for the exact hour first, then a live fetch (cached for subsequent
// lookups at that hour), then the nearest cached sample within 48h if the
// fetch fails.
func (o *Oracle) PriceOf(ctx context.Context, token string, at time.Time) (float64, error) {
	token = strings.ToLower(token)
	hour := at.UTC().Truncate(time.Hour)

	if p, ok := o.cache.Get(token, hour); ok {
		return p, nil
	}

	price, err := o.fetch(ctx, token, hour)
	if err != nil {
		if p, ok := o.cache.Nearest(token, at); ok {
			return p, nil
		}
		return 0, fmt.Errorf("price oracle: %s at %s: %w", token, at, err)
	}

	o.cache.Put(token, hour, price)
	return price, nil
}

type priceResponse struct {
	USD float64 `json:"usd"`
}

func (o *Oracle) fetch(ctx context.Context, token string, hour time.Time) (float64, error) {
	q := url.Values{}
	q.Set("token", token)
	q.Set("timestamp", hour.Format(time.RFC3339))

	reqURL := o.baseURL + "/price?" + q.Encode()

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := o.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("status %s", resp.Status)
	}

	var out priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}
	return out.USD, nil
}
