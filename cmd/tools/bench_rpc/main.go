// Command bench_rpc compares single-call vs batched JSON-RPC latency across
// the configured pool of EVM endpoints. Useful when tuning DISCOVERY_CONCURRENCY
// and deciding how many endpoints a pool needs before batching pays for itself.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	raw := strings.TrimSpace(os.Getenv("RPC_URLS"))
	if raw == "" {
		raw = os.Getenv("RPC_URL")
	}
	if raw == "" {
		fmt.Println("set RPC_URLS (comma-separated) or RPC_URL")
		return
	}
	endpoints := strings.Split(raw, ",")

	client := &http.Client{Timeout: 15 * time.Second}

	for i, ep := range endpoints {
		ep = strings.TrimSpace(ep)
		if ep == "" {
			continue
		}
		fmt.Printf("\n========== endpoint %d: %s ==========\n", i, ep)
		benchSingle(client, ep)
		benchBatch(client, ep, 10)
		benchBatch(client, ep, 100)
	}
}

func benchSingle(client *http.Client, endpoint string) {
	t0 := time.Now()
	_, err := call(client, endpoint, rpcRequest{JSONRPC: "2.0", ID: 1, Method: "eth_blockNumber"})
	d := time.Since(t0)
	if err != nil {
		fmt.Printf("  eth_blockNumber: FAIL (%v) [%v]\n", err, d)
		return
	}
	fmt.Printf("  eth_blockNumber: OK [%v]\n", d)
}

func benchBatch(client *http.Client, endpoint string, n int) {
	reqs := make([]rpcRequest, n)
	for i := range reqs {
		reqs[i] = rpcRequest{JSONRPC: "2.0", ID: i, Method: "eth_blockNumber"}
	}

	t0 := time.Now()
	body, err := json.Marshal(reqs)
	if err != nil {
		fmt.Printf("  batch(%d): FAIL marshal: %v\n", n, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		fmt.Printf("  batch(%d): FAIL building request: %v\n", n, err)
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		fmt.Printf("  batch(%d): FAIL: %v [%v]\n", n, err, time.Since(t0))
		return
	}
	defer resp.Body.Close()

	var out []rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Printf("  batch(%d): FAIL decode: %v\n", n, err)
		return
	}
	d := time.Since(t0)
	fmt.Printf("  batch(%d): OK [%v] avg=%v/call results=%d\n", n, d, d/time.Duration(n), len(out))
}

func call(client *http.Client, endpoint string, req rpcRequest) (*rpcResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", out.Error.Code, out.Error.Message)
	}
	return &out, nil
}
