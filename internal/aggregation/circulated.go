package aggregation

import (
	"context"
	"fmt"
)

// CirculatedResult is the wallet's total circulated volume: every native and
// ERC-20 transfer, incoming or outgoing, that touches the wallet.
type CirculatedResult struct {
	TotalEth    float64 `json:"totalEth"`
	TotalUSD    float64 `json:"totalUsd"`
	IncomingEth float64 `json:"incomingEth"`
	IncomingUSD float64 `json:"incomingUsd"`
	OutgoingEth float64 `json:"outgoingEth"`
	OutgoingUSD float64 `json:"outgoingUsd"`
	TxCount     int64   `json:"txCount"`
}

// CirculatedVolume sums incoming + outgoing native and ERC-20 transfers
// touching wallet, across every contract it has interacted with (not
// scoped to any one platform's metrics, unlike EvaluateMetric). A row's
// direction is outgoing when wallet is the tx sender, incoming when wallet
// was only matched as an indexed log recipient (see
// repository.TransactionsForWallet); per-tx value comes from the same
// eth_value_derived/usd_value the enrichment worker already computed.
func (e *Engine) CirculatedVolume(ctx context.Context, wallet string) (*CirculatedResult, error) {
	rows, err := e.repo.TransactionsForWallet(ctx, wallet, nil)
	if err != nil {
		return nil, fmt.Errorf("circulated volume: %w", err)
	}

	result := &CirculatedResult{}
	for _, tx := range rows {
		if tx.Status != 1 {
			continue
		}

		var eth, usd float64
		if tx.EthValueDerived != nil {
			eth = *tx.EthValueDerived
		}
		if tx.USDValue != nil {
			usd = *tx.USDValue
		}
		if eth == 0 && usd == 0 {
			continue
		}

		result.TotalEth += eth
		result.TotalUSD += usd
		result.TxCount++

		if tx.WalletAddress == wallet {
			result.OutgoingEth += eth
			result.OutgoingUSD += usd
		} else {
			result.IncomingEth += eth
			result.IncomingUSD += usd
		}
	}

	return result, nil
}
