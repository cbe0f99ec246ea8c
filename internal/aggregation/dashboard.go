package aggregation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/medfata/inkscore-sub000/internal/models"
)

// namedDashboardFields are the dashboard's fixed per-platform counters.
// Rather than one hardcoded Go field and query per platform, each name is
// resolved generically against an admin-configured metric of the same slug
// (lowercased) — an unconfigured slug is left out of the response, it is never an error.
var namedDashboardFields = []string{
	"swap", "volume",
	"marvk", "nado", "copink", "nft2me",
	"gmCount", "inkypumpCreatedTokens", "inkypumpBuyVolume", "inkypumpSellVolume",
	"nftTraded", "zns", "shelliesJoinedRaffles", "shelliesPayToPlay", "shelliesStaking",
	"openseaBuyCount", "mintCount", "openseaSaleCount",
}

// CardPlatformValue is one platform's contribution to a dashboard card.
type CardPlatformValue struct {
	Platform string  `json:"platform"`
	Value    float64 `json:"value"`
	Count    int64   `json:"count"`
}

// CardResult is one dashboard card's evaluated rollup.
type CardResult struct {
	ID           int64               `json:"id"`
	Row          models.DashboardRow `json:"row"`
	CardType     models.DashboardCardType `json:"card_type"`
	Title        string              `json:"title"`
	Subtitle     string              `json:"subtitle,omitempty"`
	Color        string              `json:"color,omitempty"`
	DisplayOrder int                 `json:"display_order"`
	TotalValue   float64             `json:"total_value"`
	TotalCount   int64               `json:"total_count"`
	ByPlatform   []CardPlatformValue `json:"by_platform"`
}

// EvaluateCards computes totalValue/totalCount/byPlatform for every active
// dashboard card, ordered row3 then row4 by display_order.
func (e *Engine) EvaluateCards(ctx context.Context, wallet string) ([]CardResult, error) {
	cards, err := e.repo.ListDashboardCards(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("evaluate cards: %w", err)
	}

	platforms, err := e.repo.ListPlatforms(ctx)
	if err != nil {
		return nil, fmt.Errorf("evaluate cards: %w", err)
	}
	platformByID := make(map[int64]models.Platform, len(platforms))
	for _, p := range platforms {
		platformByID[p.ID] = p
	}

	metrics, err := e.repo.ListMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("evaluate cards: %w", err)
	}
	metricByID := make(map[int64]models.Metric, len(metrics))
	for _, m := range metrics {
		metricByID[m.ID] = m
	}

	out := make([]CardResult, 0, len(cards))
	for _, card := range cards {
		cr, err := e.evaluateCard(ctx, card, wallet, platformByID, metricByID)
		if err != nil {
			return nil, err
		}
		out = append(out, cr)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].DisplayOrder < out[j].DisplayOrder
	})
	return out, nil
}

func (e *Engine) evaluateCard(ctx context.Context, card models.DashboardCard, wallet string, platformByID map[int64]models.Platform, metricByID map[int64]models.Metric) (CardResult, error) {
	cr := CardResult{
		ID: card.ID, Row: card.Row, CardType: card.CardType,
		Title: card.Title, Subtitle: card.Subtitle, Color: card.Color,
		DisplayOrder: card.DisplayOrder,
	}
	if len(card.PlatformIDs) == 1 {
		cr.CardType = models.CardSingle
	}

	// contractsByPlatform maps each card platform to its contract address set,
	// so a metric's per-contract sub-aggregates can be attributed back to a platform.
	contractsByPlatform := make(map[int64]map[string]bool, len(card.PlatformIDs))
	for _, pid := range card.PlatformIDs {
		p, ok := platformByID[pid]
		if !ok {
			continue
		}
		contracts, err := e.repo.ContractsForPlatform(ctx, p.Slug)
		if err != nil {
			return cr, fmt.Errorf("card %d: contracts for platform %s: %w", card.ID, p.Slug, err)
		}
		set := make(map[string]bool, len(contracts))
		for _, c := range contracts {
			set[c.Address] = true
		}
		contractsByPlatform[pid] = set
	}

	perPlatform := make(map[int64]*CardPlatformValue)
	for _, mid := range card.MetricIDs {
		metric, ok := metricByID[mid]
		if !ok {
			continue
		}
		result, err := e.EvaluateMetric(ctx, metric, wallet)
		if err != nil {
			return cr, fmt.Errorf("card %d: %w", card.ID, err)
		}

		for _, sub := range result.SubAggregates {
			for pid, addrs := range contractsByPlatform {
				if !addrs[sub.ContractAddress] {
					continue
				}
				pv, ok := perPlatform[pid]
				if !ok {
					pv = &CardPlatformValue{Platform: platformByID[pid].Slug}
					perPlatform[pid] = pv
				}
				value := sub.USDValue
				if metric.Currency == models.CurrencyCOUNT {
					value = float64(sub.Count)
				}
				pv.Value += value
				pv.Count += sub.Count
				cr.TotalValue += value
				cr.TotalCount += sub.Count
			}
		}
	}

	for _, pv := range perPlatform {
		cr.ByPlatform = append(cr.ByPlatform, *pv)
	}
	sort.Slice(cr.ByPlatform, func(i, j int) bool {
		return cr.ByPlatform[i].Value > cr.ByPlatform[j].Value
	})
	return cr, nil
}

// DashboardResult is the consolidated payload for GET /api/{wallet}/dashboard.
// A nil field paired with an entry in Errors means that sub-aggregate failed;
// a nil field with no matching Errors entry means it was never configured.
type DashboardResult struct {
	Stats        map[string]float64      `json:"stats,omitempty"`
	Bridge       *BridgeResult           `json:"bridge"`
	Score        *models.NFTMintRecord  `json:"score"`
	Tydro        *LendingPosition        `json:"tydro"`
	Circulated   *CirculatedResult       `json:"circulated"`
	Analytics    []MetricResult          `json:"analytics"`
	Cards        map[string][]CardResult `json:"cards"`
	NamedMetrics map[string]float64      `json:"-"`
	Errors       []string                `json:"errors"`
}

// MarshalNamed exposes NamedMetrics as top-level fields (marvk, gmCount, ...)
// for handlers that flatten DashboardResult into the final JSON object; kept
// separate from json.Marshal since Go structs can't splice a map's keys into
// their own top level without a second encoding pass.
func (d *DashboardResult) MarshalNamed() map[string]float64 {
	return d.NamedMetrics
}

// Dashboard computes every sub-aggregate for wallet; a failure in one
// sub-aggregate is recorded in Errors and that field left nil rather than
// failing the whole response.
func (e *Engine) Dashboard(ctx context.Context, wallet string, bridge *BridgeEvaluator, lending *LendingEvaluator) (*DashboardResult, error) {
	d := &DashboardResult{
		NamedMetrics: make(map[string]float64, len(namedDashboardFields)),
		Cards:        make(map[string][]CardResult, 2),
	}

	if bridge != nil {
		b, err := bridge.Evaluate(ctx, wallet)
		if err != nil {
			d.Errors = append(d.Errors, "bridge: "+classifyError(err))
		} else {
			d.Bridge = b
		}
	}

	if score, err := e.repo.GetNFTRecordByWallet(ctx, wallet); err != nil {
		d.Errors = append(d.Errors, "score: "+classifyError(err))
	} else {
		d.Score = score
	}

	if lending != nil {
		t, err := lending.Evaluate(ctx, wallet)
		if err != nil {
			d.Errors = append(d.Errors, "tydro: "+classifyError(err))
		} else {
			d.Tydro = t
		}
	}

	if circulated, err := e.CirculatedVolume(ctx, wallet); err != nil {
		d.Errors = append(d.Errors, "circulated: "+classifyError(err))
	} else {
		d.Circulated = circulated
	}

	analytics, err := e.EvaluateAll(ctx, wallet)
	if err != nil {
		d.Errors = append(d.Errors, "analytics: "+classifyError(err))
	} else {
		d.Analytics = analytics
	}

	cards, err := e.EvaluateCards(ctx, wallet)
	if err != nil {
		d.Errors = append(d.Errors, "cards: "+classifyError(err))
	} else {
		for _, c := range cards {
			row := string(c.Row)
			d.Cards[row] = append(d.Cards[row], c)
		}
	}

	for _, field := range namedDashboardFields {
		metric, err := e.MetricBySlug(ctx, field)
		if err != nil || metric == nil {
			continue // unconfigured, not a failure
		}
		result, err := e.EvaluateMetric(ctx, *metric, wallet)
		if err != nil {
			d.Errors = append(d.Errors, field+": "+classifyError(err))
			continue
		}
		d.NamedMetrics[field] = result.TotalValue
	}

	d.Stats = map[string]float64{
		"txCount": float64(sumAnalyticsCount(analytics)),
	}

	return d, nil
}

func sumAnalyticsCount(results []MetricResult) int64 {
	var total int64
	for _, r := range results {
		total += r.TotalCount
	}
	return total
}

// classifyError reduces an error to a short machine-readable tag where a
// known cause is recognizable (e.g. the price oracle's deadline-exceeded
// wrapping), falling back to the raw error text otherwise.
func classifyError(err error) string {
	msg := err.Error()
	if strings.Contains(msg, "context deadline exceeded") || strings.Contains(msg, "price oracle") {
		return "oracle_timeout"
	}
	return msg
}
