package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// endpoint is one configured JSON-RPC URL plus its own token-bucket limiter,
// following the same per-entity rate.Limiter pattern used for the API's
// per-IP limiter.
type endpoint struct {
	url      string
	limiter  *rate.Limiter
	errCount int64 // atomic; reset on success and when the endpoint enters cooldown
}

// Pool round-robins requests across N endpoints, applying a per-endpoint
// request deadline and backing off an endpoint that is erroring heavily.
type Pool struct {
	http      *http.Client
	endpoints []*endpoint
	next      uint64 // atomic round-robin cursor
	timeout   time.Duration

	mu             sync.Mutex
	degraded       map[int]time.Time // endpoint index -> cooldown-until
}

// NewPool builds a Pool over the given endpoint URLs. rps is the per-endpoint
// request budget; timeout bounds every individual outbound call.
func NewPool(urls []string, rps float64, timeout time.Duration) (*Pool, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("rpc: at least one endpoint URL is required")
	}
	if rps <= 0 {
		rps = 20
	}

	eps := make([]*endpoint, len(urls))
	for i, u := range urls {
		eps[i] = &endpoint{
			url:     u,
			limiter: rate.NewLimiter(rate.Limit(rps), int(rps*2)+1),
		}
	}

	return &Pool{
		http:      &http.Client{Timeout: timeout + 2*time.Second},
		endpoints: eps,
		timeout:   timeout,
		degraded:  make(map[int]time.Time),
	}, nil
}

// pick returns the next live endpoint index using round-robin, skipping any
// endpoint currently in cooldown.
func (p *Pool) pick() int {
	n := len(p.endpoints)
	start := int(atomic.AddUint64(&p.next, 1)) % n

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < n; i++ {
		idx := (start + i) % n
		until, cooling := p.degraded[idx]
		if !cooling || time.Now().After(until) {
			delete(p.degraded, idx)
			return idx
		}
	}
	// All endpoints degraded; use the round-robin pick anyway.
	return start
}

func (p *Pool) markError(idx int) {
	ep := p.endpoints[idx]
	count := atomic.AddInt64(&ep.errCount, 1)
	if count >= 5 {
		p.mu.Lock()
		p.degraded[idx] = time.Now().Add(30 * time.Second)
		p.mu.Unlock()
		atomic.StoreInt64(&ep.errCount, 0)
		log.Printf("[rpc] endpoint %s cooling down after repeated errors", ep.url)
	}
}

func (p *Pool) markSuccess(idx int) {
	atomic.StoreInt64(&p.endpoints[idx].errCount, 0)
}

// ErrorRate reports the fraction of currently degraded endpoints, used by the
// discovery worker to decide whether to halve its scan window.
func (p *Pool) ErrorRate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.degraded) == 0 {
		return 0
	}
	live := 0
	for idx, until := range p.degraded {
		if time.Now().Before(until) {
			live++
		}
		_ = idx
	}
	return float64(live) / float64(len(p.endpoints))
}

// call sends a single JSON-RPC request, round-robining over the pool and
// respecting the configured per-call deadline.
func (p *Pool) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	idx := p.pick()
	ep := p.endpoints[idx]

	if err := ep.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rpc: rate limiter wait: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req := jsonrpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("rpc: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, ep.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rpc: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(httpReq)
	if err != nil {
		p.markError(idx)
		return nil, fmt.Errorf("rpc: %s call to %s: %w", method, ep.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		p.markError(idx)
		return nil, fmt.Errorf("rpc: %s call to %s: rate limited (429)", method, ep.url)
	}

	var out jsonrpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		p.markError(idx)
		return nil, fmt.Errorf("rpc: decode response from %s: %w", ep.url, err)
	}
	if out.Error != nil {
		p.markError(idx)
		return nil, fmt.Errorf("rpc: %s error %d: %s", method, out.Error.Code, out.Error.Message)
	}

	p.markSuccess(idx)
	return out.Result, nil
}

// batchCall sends a JSON-RPC batch to a single endpoint. Batches are not
// split across endpoints: the point of batching is fewer round trips to one
// node, not fan-out.
func (p *Pool) batchCall(ctx context.Context, reqs []jsonrpcRequest) ([]jsonrpcResponse, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	idx := p.pick()
	ep := p.endpoints[idx]

	if err := ep.limiter.WaitN(ctx, len(reqs)); err != nil {
		return nil, fmt.Errorf("rpc: rate limiter wait: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body, err := json.Marshal(reqs)
	if err != nil {
		return nil, fmt.Errorf("rpc: marshal batch: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, ep.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rpc: build batch request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(httpReq)
	if err != nil {
		p.markError(idx)
		return nil, fmt.Errorf("rpc: batch call to %s: %w", ep.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		p.markError(idx)
		return nil, fmt.Errorf("rpc: batch call to %s: rate limited (429)", ep.url)
	}

	var out []jsonrpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		p.markError(idx)
		return nil, fmt.Errorf("rpc: decode batch response from %s: %w", ep.url, err)
	}

	p.markSuccess(idx)
	return out, nil
}
