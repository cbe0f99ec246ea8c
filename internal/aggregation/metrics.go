package aggregation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/medfata/inkscore-sub000/internal/models"
	"github.com/medfata/inkscore-sub000/internal/repository"
)

// Engine evaluates metrics and dashboard cards against wallet activity.
type Engine struct {
	repo *repository.Repository
}

func NewEngine(repo *repository.Repository) *Engine {
	return &Engine{repo: repo}
}

// FunctionBreakdown counts calls to one decoded function name.
type FunctionBreakdown struct {
	Count int `json:"count"`
}

// SubAggregate is one contract's contribution to a metric total.
type SubAggregate struct {
	ContractAddress string                        `json:"contract_address"`
	ContractName    string                         `json:"contract_name,omitempty"`
	Count           int64                          `json:"count"`
	USDValue        float64                        `json:"usd_value"`
	ByFunction      map[string]FunctionBreakdown   `json:"by_function,omitempty"`
}

// MetricResult is one metric's evaluated totals for a wallet.
type MetricResult struct {
	Slug          string          `json:"slug"`
	Name          string          `json:"name"`
	Currency      string          `json:"currency"`
	TotalValue    float64         `json:"total_value"`
	TotalCount    int64           `json:"total_count"`
	SubAggregates []SubAggregate  `json:"sub_aggregates,omitempty"`
}

// EvaluateMetric computes one metric's totals for a wallet: total_count is
// always the count of matching rows; total_value depends on aggregation_type:
// the USD sum (sum_usd), the ETH sum (sum_eth), the matching row count (count)
// or the distinct tx count (count_distinct_tx), treating NULL usd/eth values as 0.
func (e *Engine) EvaluateMetric(ctx context.Context, metric models.Metric, wallet string) (MetricResult, error) {
	result := MetricResult{Slug: metric.Slug, Name: metric.Name, Currency: string(metric.Currency)}

	rows, err := e.repo.TransactionsForWallet(ctx, wallet, metric.ContractIDs)
	if err != nil {
		return result, fmt.Errorf("metric %s: %w", metric.Slug, err)
	}

	contractNames, err := e.contractNameIndex(ctx)
	if err != nil {
		return result, fmt.Errorf("metric %s: %w", metric.Slug, err)
	}

	perContract := make(map[string]*SubAggregate)
	distinctTx := make(map[string]struct{})

	for _, tx := range rows {
		if tx.Status != 1 {
			continue
		}
		if !matches(tx, wallet, metric.Predicate) {
			continue
		}

		sub, ok := perContract[tx.ContractAddress]
		if !ok {
			sub = &SubAggregate{
				ContractAddress: tx.ContractAddress,
				ContractName:    contractNames[tx.ContractAddress],
				ByFunction:      make(map[string]FunctionBreakdown),
			}
			perContract[tx.ContractAddress] = sub
		}

		sub.Count++
		if tx.USDValue != nil {
			sub.USDValue += *tx.USDValue
		}
		if tx.FunctionName != nil {
			fb := sub.ByFunction[*tx.FunctionName]
			fb.Count++
			sub.ByFunction[*tx.FunctionName] = fb
		}

		distinctTx[tx.TxHash] = struct{}{}
		result.TotalCount++

		switch metric.Aggregation {
		case models.AggSumUSD:
			if tx.USDValue != nil {
				result.TotalValue += *tx.USDValue
			}
		case models.AggSumETH:
			if tx.EthValueDerived != nil {
				result.TotalValue += *tx.EthValueDerived
			}
		}
	}

	if metric.Aggregation == models.AggCountDistinctTx {
		result.TotalValue = float64(len(distinctTx))
	} else if metric.Aggregation == models.AggCount {
		result.TotalValue = float64(result.TotalCount)
	}

	for _, sub := range perContract {
		result.SubAggregates = append(result.SubAggregates, *sub)
	}
	sort.Slice(result.SubAggregates, func(i, j int) bool {
		return result.SubAggregates[i].USDValue > result.SubAggregates[j].USDValue
	})

	return result, nil
}

// EvaluateAll evaluates every configured metric for a wallet.
func (e *Engine) EvaluateAll(ctx context.Context, wallet string) ([]MetricResult, error) {
	metrics, err := e.repo.ListMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("evaluate all metrics: %w", err)
	}

	out := make([]MetricResult, 0, len(metrics))
	for _, m := range metrics {
		r, err := e.EvaluateMetric(ctx, m, wallet)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// MetricBySlug finds the metric whose stored slug equals the lowercased input,
// used to resolve the dashboard's fixed named fields (gmCount, marvk, etc.)
// generically from admin-configured metrics rather than hardcoded per-platform code.
func (e *Engine) MetricBySlug(ctx context.Context, slug string) (*models.Metric, error) {
	m, err := e.repo.GetMetric(ctx, strings.ToLower(slug))
	if err != nil {
		return nil, fmt.Errorf("metric by slug %s: %w", slug, err)
	}
	return m, nil
}

func (e *Engine) contractNameIndex(ctx context.Context) (map[string]string, error) {
	contracts, err := e.repo.ListContracts(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(contracts))
	for _, c := range contracts {
		out[c.Address] = c.Name
	}
	return out, nil
}
