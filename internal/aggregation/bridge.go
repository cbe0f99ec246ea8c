package aggregation

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/medfata/inkscore-sub000/internal/config"
)

// BridgeLeg tags which side of a bridge crossing a matched log represents.
type BridgeLeg int

const (
	legOut BridgeLeg = iota // OFTSent: funds leaving this chain
	legIn                   // OFTReceived: funds arriving on this chain
)

// BridgePlatformBreakdown is one platform's (or sub-platform's) contribution
// to a wallet's bridge activity.
type BridgePlatformBreakdown struct {
	Platform        string  `json:"platform"`
	SubPlatform     string  `json:"subPlatform,omitempty"`
	EthValue        float64 `json:"ethValue"`
	USDValue        float64 `json:"usdValue"`
	TxCount         int64   `json:"txCount"`
	BridgedInUSD    float64 `json:"bridgedInUsd,omitempty"`
	BridgedInCount  int64   `json:"bridgedInCount,omitempty"`
	BridgedOutUSD   float64 `json:"bridgedOutUsd,omitempty"`
	BridgedOutCount int64   `json:"bridgedOutCount,omitempty"`
}

// BridgeResult is the shape served by /api/wallet/{wallet}/bridge. Field
// names are camelCase here (unlike the rest of the package) because this
// endpoint's wire shape is a fixed external contract.
type BridgeResult struct {
	TotalEth        float64                   `json:"totalEth"`
	TotalUSD        float64                   `json:"totalUsd"`
	TxCount         int64                     `json:"txCount"`
	BridgedInUSD    float64                   `json:"bridgedInUsd"`
	BridgedInCount  int64                     `json:"bridgedInCount"`
	BridgedOutUSD   float64                   `json:"bridgedOutUsd"`
	BridgedOutCount int64                     `json:"bridgedOutCount"`
	ByPlatform      []BridgePlatformBreakdown `json:"byPlatform"`
}

// hotWallet is the resolved, lowercased form of config.CatalogHotWallet.
type hotWallet struct {
	address           string
	platform          string
	sentTopic         string
	receivedTopic     string
	decimals          int
	selectorPlatforms map[string]string
}

// BridgeEvaluator attributes OFTSent/OFTReceived-shaped logs to bridged-in vs
// bridged-out volume, keyed off a curated list of bridge hot wallet contracts.
type BridgeEvaluator struct {
	engine  *Engine
	wallets []hotWallet
}

func NewBridgeEvaluator(engine *Engine, catalog []config.CatalogHotWallet) *BridgeEvaluator {
	wallets := make([]hotWallet, 0, len(catalog))
	for _, c := range catalog {
		decimals := c.Decimals
		if decimals == 0 {
			decimals = 6
		}
		wallets = append(wallets, hotWallet{
			address:           strings.ToLower(c.Address),
			platform:          c.Platform,
			sentTopic:         strings.ToLower(c.SentTopic),
			receivedTopic:     strings.ToLower(c.ReceivedTopic),
			decimals:          decimals,
			selectorPlatforms: c.SelectorPlatforms,
		})
	}
	return &BridgeEvaluator{engine: engine, wallets: wallets}
}

// Evaluate scans every enriched transaction the wallet appears in for logs
// emitted by a known bridge hot wallet, sums bridged-in/bridged-out volume
// by topic role, and attributes sub-platform via the triggering tx's
// function selector.
func (b *BridgeEvaluator) Evaluate(ctx context.Context, wallet string) (*BridgeResult, error) {
	if len(b.wallets) == 0 {
		return &BridgeResult{}, nil
	}

	rows, err := b.engine.repo.TransactionsForWallet(ctx, wallet, nil)
	if err != nil {
		return nil, fmt.Errorf("bridge evaluate: %w", err)
	}

	type key struct{ platform, sub string }
	byKey := make(map[key]*BridgePlatformBreakdown)
	result := &BridgeResult{}
	seenTx := make(map[string]bool)

	for _, tx := range rows {
		if tx.Status != 1 {
			continue
		}
		for _, l := range tx.Logs {
			hw := b.findWallet(l.Address)
			if hw == nil || len(l.Topics) == 0 {
				continue
			}

			var leg BridgeLeg
			switch strings.ToLower(l.Topics[0]) {
			case hw.sentTopic:
				leg = legOut
			case hw.receivedTopic:
				leg = legIn
			default:
				continue
			}

			amount, ok := amountFromWord(l.Data, 1, hw.decimals)
			if !ok {
				continue
			}

			sub := hw.selectorPlatforms[strings.ToLower(tx.InputSelector)]
			k := key{platform: hw.platform, sub: sub}
			agg, ok := byKey[k]
			if !ok {
				agg = &BridgePlatformBreakdown{Platform: hw.platform, SubPlatform: sub}
				byKey[k] = agg
			}

			agg.USDValue += amount
			agg.TxCount++
			result.TotalUSD += amount
			if !seenTx[tx.TxHash] {
				seenTx[tx.TxHash] = true
				result.TxCount++
			}

			switch leg {
			case legOut:
				agg.BridgedOutUSD += amount
				agg.BridgedOutCount++
				result.BridgedOutUSD += amount
				result.BridgedOutCount++
			case legIn:
				agg.BridgedInUSD += amount
				agg.BridgedInCount++
				result.BridgedInUSD += amount
				result.BridgedInCount++
			}
		}
	}

	for _, agg := range byKey {
		result.ByPlatform = append(result.ByPlatform, *agg)
	}
	sort.Slice(result.ByPlatform, func(i, j int) bool {
		return result.ByPlatform[i].USDValue > result.ByPlatform[j].USDValue
	})

	return result, nil
}

func (b *BridgeEvaluator) findWallet(logAddress string) *hotWallet {
	logAddress = strings.ToLower(logAddress)
	for i := range b.wallets {
		if b.wallets[i].address == logAddress {
			return &b.wallets[i]
		}
	}
	return nil
}

// amountFromWord extracts the wordIndex'th 32-byte word (0-indexed) from
// ABI-encoded log data and scales it by decimals, treating the result as an
// already-USD-pegged amount (bridge tokens here are stablecoin-denominated).
func amountFromWord(data string, wordIndex, decimals int) (float64, bool) {
	data = strings.TrimPrefix(data, "0x")
	start := wordIndex * 64
	end := start + 64
	if len(data) < end {
		return 0, false
	}
	word := data[start:end]

	n, ok := new(big.Int).SetString(word, 16)
	if !ok {
		return 0, false
	}
	divisor := new(big.Float).SetFloat64(1)
	ten := big.NewFloat(10)
	for i := 0; i < decimals; i++ {
		divisor.Mul(divisor, ten)
	}
	f := new(big.Float).Quo(new(big.Float).SetInt(n), divisor)
	out, _ := f.Float64()
	return out, true
}
