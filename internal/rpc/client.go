package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// Client is the domain-facing API over a Pool: typed methods instead of raw
// method-name/params pairs.
type Client struct {
	pool *Pool
}

// NewClient wraps a Pool.
func NewClient(pool *Pool) *Client {
	return &Client{pool: pool}
}

// ErrorRate proxies the underlying pool's degraded-endpoint fraction, used by
// the discovery worker's backpressure check.
func (c *Client) ErrorRate() float64 {
	return c.pool.ErrorRate()
}

// BlockNumber returns the chain's current head block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	raw, err := c.pool.call(ctx, "eth_blockNumber", nil)
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber: %w", err)
	}
	return decodeHexUint(raw)
}

// ChainID returns the configured chain's ID.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	raw, err := c.pool.call(ctx, "eth_chainId", nil)
	if err != nil {
		return 0, fmt.Errorf("eth_chainId: %w", err)
	}
	return decodeHexUint(raw)
}

// GetLogs fetches logs for the given filter in a single call. Callers are
// responsible for window sizing (see internal/discovery's adaptive window).
func (c *Client) GetLogs(ctx context.Context, q FilterQuery) ([]Log, error) {
	raw, err := c.pool.call(ctx, "eth_getLogs", []any{q})
	if err != nil {
		return nil, err
	}
	var logs []Log
	if err := json.Unmarshal(raw, &logs); err != nil {
		return nil, fmt.Errorf("eth_getLogs: decode: %w", err)
	}
	return logs, nil
}

// TxWithReceipt pairs a transaction with its receipt, the unit the enrichment
// and full-tx discovery paths operate on.
type TxWithReceipt struct {
	Hash    string
	Tx      *Transaction
	Receipt *Receipt
}

// GetTransactionsByHash batches eth_getTransactionByHash + eth_getTransactionReceipt
// for every hash in one JSON-RPC batch (2*N requests, 1 round trip).
func (c *Client) GetTransactionsByHash(ctx context.Context, hashes []string) (map[string]TxWithReceipt, error) {
	if len(hashes) == 0 {
		return map[string]TxWithReceipt{}, nil
	}

	reqs := make([]jsonrpcRequest, 0, len(hashes)*2)
	for i, h := range hashes {
		reqs = append(reqs,
			jsonrpcRequest{JSONRPC: "2.0", ID: i*2 + 1, Method: "eth_getTransactionByHash", Params: []any{h}},
			jsonrpcRequest{JSONRPC: "2.0", ID: i*2 + 2, Method: "eth_getTransactionReceipt", Params: []any{h}},
		)
	}

	resps, err := c.pool.batchCall(ctx, reqs)
	if err != nil {
		return nil, fmt.Errorf("batch getTransactionByHash/Receipt: %w", err)
	}

	byID := make(map[int]jsonrpcResponse, len(resps))
	for _, r := range resps {
		byID[r.ID] = r
	}

	out := make(map[string]TxWithReceipt, len(hashes))
	for i, h := range hashes {
		entry := TxWithReceipt{Hash: h}

		if r, ok := byID[i*2+1]; ok && r.Error == nil && len(r.Result) > 0 && string(r.Result) != "null" {
			var tx Transaction
			if err := json.Unmarshal(r.Result, &tx); err == nil {
				entry.Tx = &tx
			}
		}
		if r, ok := byID[i*2+2]; ok && r.Error == nil && len(r.Result) > 0 && string(r.Result) != "null" {
			var rcpt Receipt
			if err := json.Unmarshal(r.Result, &rcpt); err == nil {
				entry.Receipt = &rcpt
			}
		}
		out[h] = entry
	}
	return out, nil
}

// blockHeader is the subset of eth_getBlockByNumber fields we need.
type blockHeader struct {
	Number    string `json:"number"`
	Timestamp string `json:"timestamp"`
}

// BlockTimestamp fetches a block's header (without full transaction bodies)
// and returns its timestamp, used by event-mode discovery to stamp
// transaction_details rows derived from eth_getLogs results.
func (c *Client) BlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error) {
	raw, err := c.pool.call(ctx, "eth_getBlockByNumber", []any{fmt.Sprintf("0x%x", blockNumber), false})
	if err != nil {
		return time.Time{}, fmt.Errorf("eth_getBlockByNumber %d: %w", blockNumber, err)
	}
	var h blockHeader
	if err := json.Unmarshal(raw, &h); err != nil {
		return time.Time{}, fmt.Errorf("eth_getBlockByNumber %d: decode: %w", blockNumber, err)
	}
	ts, err := HexToUint64(h.Timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("eth_getBlockByNumber %d: parse timestamp: %w", blockNumber, err)
	}
	return time.Unix(int64(ts), 0).UTC(), nil
}

// HexToUint64 parses a "0x"-prefixed hex quantity string.
func HexToUint64(s string) (uint64, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hex quantity %q: %w", s, err)
	}
	return n, nil
}

// HexToDecimalString parses a "0x"-prefixed hex wei quantity into its base-10
// decimal string representation, the form transaction_details.eth_value is stored in.
func HexToDecimalString(s string) (string, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return "0", nil
	}
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return "", fmt.Errorf("parse hex wei quantity %q", s)
	}
	return n.String(), nil
}

func decodeHexUint(raw json.RawMessage) (uint64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("decode hex quantity: %w", err)
	}
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hex quantity %q: %w", s, err)
	}
	return n, nil
}
