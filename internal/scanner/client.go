// Package scanner wraps the external block-explorer-style transactions-by-address
// pagination API used by the discovery worker's full-tx mode.
package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client queries a single scanner base URL for a contract's transaction
// history, paginating via an opaque "next" token.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// NewClient builds a scanner Client bound to baseURL with the given per-call
// deadline.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout + 2*time.Second},
		timeout: timeout,
	}
}

// Item is one transaction as reported by the scanner, already tx-hash keyed;
// callers still fetch the receipt/logs via the RPC pool for full enrichment.
type Item struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	BlockNumber uint64 `json:"blockNumber"`
	Timestamp   int64  `json:"timestamp"`
	IsError     bool   `json:"isError"`
}

// Page is one page of the transactions-by-address listing.
type Page struct {
	Items []Item `json:"items"`
	Count int    `json:"count"`
	Link  struct {
		NextToken string `json:"nextToken"`
	} `json:"link"`
}

// HasMore reports whether a follow-up page exists.
func (p Page) HasMore() bool {
	return p.Link.NextToken != ""
}

// TransactionsByAddress fetches one page of transactions involving address,
// starting at fromBlock, continuing from the given pagination token (pass ""
// for the first page).
func (c *Client) TransactionsByAddress(ctx context.Context, address string, fromBlock uint64, pageToken string, pageSize int) (Page, error) {
	if pageSize <= 0 || pageSize > 10_000 {
		pageSize = 1000
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("fromBlock", strconv.FormatUint(fromBlock, 10))
	q.Set("pageSize", strconv.Itoa(pageSize))
	if pageToken != "" {
		q.Set("next", pageToken)
	}

	reqURL := c.baseURL + "/transactions?" + q.Encode()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("scanner: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("scanner: request for %s: %w", address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("scanner: %s returned status %d", address, resp.StatusCode)
	}

	var page Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return Page{}, fmt.Errorf("scanner: decode response for %s: %w", address, err)
	}
	return page, nil
}
