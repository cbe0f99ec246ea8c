package aggregation

import (
	"context"
	"fmt"
	"strings"
)

// LendingPosition is a wallet's derived state on a lending-pool platform,
// replayed from deposit/withdraw/borrow/repay call history rather than read
// from pool storage directly.
type LendingPosition struct {
	Platform       string  `json:"platform"`
	CurrentSupply  float64 `json:"current_supply"`
	CurrentBorrow  float64 `json:"current_borrow"`
	TotalDeposited float64 `json:"total_deposited"`
	TotalWithdrawn float64 `json:"total_withdrawn"`
	TotalBorrowed  float64 `json:"total_borrowed"`
	TotalRepaid    float64 `json:"total_repaid"`
	DepositCount   int64   `json:"deposit_count"`
	WithdrawCount  int64   `json:"withdraw_count"`
	BorrowCount    int64   `json:"borrow_count"`
	RepayCount     int64   `json:"repay_count"`
}

// LendingEvaluator replays deposit/withdraw/borrow/repay events for a wallet
// against a platform's pool contracts to derive its current position.
type LendingEvaluator struct {
	engine       *Engine
	platformSlug string
}

func NewLendingEvaluator(engine *Engine, platformSlug string) *LendingEvaluator {
	return &LendingEvaluator{engine: engine, platformSlug: platformSlug}
}

// Evaluate replays wallet W's calls into the platform's pool contracts:
// current supply/borrow is deposits-minus-withdrawals and borrows-minus-repayments,
// decoded function name classifies each call into one of the four actions.
func (l *LendingEvaluator) Evaluate(ctx context.Context, wallet string) (*LendingPosition, error) {
	contracts, err := l.engine.repo.ContractsForPlatform(ctx, l.platformSlug)
	if err != nil {
		return nil, fmt.Errorf("lending evaluate %s: %w", l.platformSlug, err)
	}
	if len(contracts) == 0 {
		return &LendingPosition{Platform: l.platformSlug}, nil
	}

	contractIDs := make([]int64, len(contracts))
	for i, c := range contracts {
		contractIDs[i] = c.ID
	}

	rows, err := l.engine.repo.TransactionsForWallet(ctx, wallet, contractIDs)
	if err != nil {
		return nil, fmt.Errorf("lending evaluate %s: %w", l.platformSlug, err)
	}

	pos := &LendingPosition{Platform: l.platformSlug}
	for _, tx := range rows {
		if tx.Status != 1 || tx.FunctionName == nil {
			continue
		}
		amount := 0.0
		if tx.USDValue != nil {
			amount = *tx.USDValue
		} else if tx.EthValueDerived != nil {
			amount = *tx.EthValueDerived
		}

		switch {
		case strings.Contains(strings.ToLower(*tx.FunctionName), "deposit"):
			pos.TotalDeposited += amount
			pos.DepositCount++
		case strings.Contains(strings.ToLower(*tx.FunctionName), "withdraw"):
			pos.TotalWithdrawn += amount
			pos.WithdrawCount++
		case strings.Contains(strings.ToLower(*tx.FunctionName), "borrow"):
			pos.TotalBorrowed += amount
			pos.BorrowCount++
		case strings.Contains(strings.ToLower(*tx.FunctionName), "repay"):
			pos.TotalRepaid += amount
			pos.RepayCount++
		}
	}

	pos.CurrentSupply = pos.TotalDeposited - pos.TotalWithdrawn
	pos.CurrentBorrow = pos.TotalBorrowed - pos.TotalRepaid
	return pos, nil
}
