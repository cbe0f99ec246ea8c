// Package rpc is a JSON-RPC client pool for a single EVM-compatible chain.
// It batches eth_getTransactionByHash/eth_getTransactionReceipt calls, issues
// eth_getLogs as single calls, round-robins across configured endpoints, and rotates away from an
// endpoint that is erroring or rate-limiting the pool.
package rpc

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
)

type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type jsonrpcResponse struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *jsonrpcError   `json:"error"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Transaction is the subset of eth_getTransactionByHash fields we persist.
type Transaction struct {
	Hash        common.Hash    `json:"hash"`
	From        common.Address `json:"from"`
	To          *common.Address `json:"to"`
	Value       string         `json:"value"` // hex-encoded wei
	Input       string         `json:"input"`
	BlockNumber string         `json:"blockNumber"` // hex
	BlockHash   common.Hash    `json:"blockHash"`
}

// Receipt is the subset of eth_getTransactionReceipt fields we persist.
type Receipt struct {
	TransactionHash common.Hash `json:"transactionHash"`
	Status          string      `json:"status"` // hex "0x0" or "0x1"
	GasUsed         string      `json:"gasUsed"`
	Logs            []Log       `json:"logs"`
}

// Log mirrors the eth_getLogs / receipt log shape.
type Log struct {
	Address         common.Address `json:"address"`
	Topics          []common.Hash  `json:"topics"`
	Data            string         `json:"data"`
	BlockNumber     string         `json:"blockNumber"`
	TransactionHash common.Hash    `json:"transactionHash"`
	LogIndex        string         `json:"logIndex"`
	Removed         bool           `json:"removed"`
}

// FilterQuery mirrors the eth_getLogs params object.
type FilterQuery struct {
	FromBlock string           `json:"fromBlock"`
	ToBlock   string           `json:"toBlock"`
	Address   []common.Address `json:"address,omitempty"`
	Topics    [][]common.Hash  `json:"topics,omitempty"`
}
