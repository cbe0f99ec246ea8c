package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/medfata/inkscore-sub000/internal/models"
)

// UpsertMetric inserts or updates a metric by slug and replaces its
// metric_contracts links.
func (r *Repository) UpsertMetric(ctx context.Context, m models.Metric) (int64, error) {
	predicate, err := json.Marshal(m.Predicate)
	if err != nil {
		return 0, fmt.Errorf("marshal predicate for metric %s: %w", m.Slug, err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("upsert metric %s: begin: %w", m.Slug, err)
	}
	defer tx.Rollback(ctx)

	var id int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO analytics_metrics (slug, name, currency, aggregation_type, predicate, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name, currency = EXCLUDED.currency,
			aggregation_type = EXCLUDED.aggregation_type, predicate = EXCLUDED.predicate
		RETURNING id
	`, m.Slug, m.Name, string(m.Currency), string(m.Aggregation), predicate).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert metric %s: %w", m.Slug, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM metric_contracts WHERE metric_id = $1`, id); err != nil {
		return 0, fmt.Errorf("clear metric_contracts for metric %d: %w", id, err)
	}
	for _, cid := range m.ContractIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO metric_contracts (metric_id, contract_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, id, cid); err != nil {
			return 0, fmt.Errorf("link metric %d to contract %d: %w", id, cid, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("upsert metric %s: commit: %w", m.Slug, err)
	}
	return id, nil
}

// GetMetric fetches a metric and its resolved contract IDs by slug.
func (r *Repository) GetMetric(ctx context.Context, slug string) (*models.Metric, error) {
	var m models.Metric
	var currency, agg string
	var predicateRaw []byte
	err := r.db.QueryRow(ctx, `
		SELECT id, slug, name, currency, aggregation_type, predicate, created_at
		FROM analytics_metrics WHERE slug = $1
	`, slug).Scan(&m.ID, &m.Slug, &m.Name, &currency, &agg, &predicateRaw, &m.CreatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get metric %s: %w", slug, err)
	}
	m.Currency = models.MetricCurrency(currency)
	m.Aggregation = models.AggregationType(agg)
	if len(predicateRaw) > 0 {
		_ = json.Unmarshal(predicateRaw, &m.Predicate)
	}

	ids, err := r.metricContractIDs(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	m.ContractIDs = ids
	return &m, nil
}

// ListMetrics returns every metric with its resolved contract IDs.
func (r *Repository) ListMetrics(ctx context.Context) ([]models.Metric, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, slug, name, currency, aggregation_type, predicate, created_at
		FROM analytics_metrics ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	defer rows.Close()

	var out []models.Metric
	for rows.Next() {
		var m models.Metric
		var currency, agg string
		var predicateRaw []byte
		if err := rows.Scan(&m.ID, &m.Slug, &m.Name, &currency, &agg, &predicateRaw, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Currency = models.MetricCurrency(currency)
		m.Aggregation = models.AggregationType(agg)
		if len(predicateRaw) > 0 {
			_ = json.Unmarshal(predicateRaw, &m.Predicate)
		}
		out = append(out, m)
	}

	for i := range out {
		ids, err := r.metricContractIDs(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].ContractIDs = ids
	}
	return out, nil
}

func (r *Repository) metricContractIDs(ctx context.Context, metricID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT contract_id FROM metric_contracts WHERE metric_id = $1`, metricID)
	if err != nil {
		return nil, fmt.Errorf("metric contract ids for %d: %w", metricID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// UpsertDashboardCard inserts or updates a card by ID (0 = insert new) and
// replaces its metric/platform links.
func (r *Repository) UpsertDashboardCard(ctx context.Context, c models.DashboardCard) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("upsert dashboard card: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	if c.ID == 0 {
		if err := tx.QueryRow(ctx, `
			INSERT INTO dashboard_cards (row, card_type, title, subtitle, color, display_order, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
			RETURNING id
		`, string(c.Row), string(c.CardType), c.Title, c.Subtitle, c.Color, c.DisplayOrder, c.IsActive).Scan(&id); err != nil {
			return 0, fmt.Errorf("insert dashboard card: %w", err)
		}
	} else {
		id = c.ID
		if _, err := tx.Exec(ctx, `
			UPDATE dashboard_cards SET row = $2, card_type = $3, title = $4, subtitle = $5,
				color = $6, display_order = $7, is_active = $8, updated_at = NOW()
			WHERE id = $1
		`, id, string(c.Row), string(c.CardType), c.Title, c.Subtitle, c.Color, c.DisplayOrder, c.IsActive); err != nil {
			return 0, fmt.Errorf("update dashboard card %d: %w", id, err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM dashboard_card_metrics WHERE card_id = $1`, id); err != nil {
		return 0, fmt.Errorf("clear card metrics for %d: %w", id, err)
	}
	for _, mid := range c.MetricIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO dashboard_card_metrics (card_id, metric_id) VALUES ($1, $2)`, id, mid); err != nil {
			return 0, fmt.Errorf("link card %d to metric %d: %w", id, mid, err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM dashboard_card_platforms WHERE card_id = $1`, id); err != nil {
		return 0, fmt.Errorf("clear card platforms for %d: %w", id, err)
	}
	for _, pid := range c.PlatformIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO dashboard_card_platforms (card_id, platform_id) VALUES ($1, $2)`, id, pid); err != nil {
			return 0, fmt.Errorf("link card %d to platform %d: %w", id, pid, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("upsert dashboard card: commit: %w", err)
	}
	return id, nil
}

// DeleteDashboardCard removes a card and its links.
func (r *Repository) DeleteDashboardCard(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM dashboard_cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete dashboard card %d: %w", id, err)
	}
	return nil
}

// ListDashboardCards returns every card (only active ones when activeOnly is
// set) ordered for display, with resolved metric/platform IDs.
func (r *Repository) ListDashboardCards(ctx context.Context, activeOnly bool) ([]models.DashboardCard, error) {
	query := `
		SELECT id, row, card_type, title, subtitle, color, display_order, is_active, created_at, updated_at
		FROM dashboard_cards
	`
	if activeOnly {
		query += ` WHERE is_active = true `
	}
	query += ` ORDER BY row ASC, display_order ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list dashboard cards: %w", err)
	}
	defer rows.Close()

	var out []models.DashboardCard
	for rows.Next() {
		var c models.DashboardCard
		var row, cardType string
		if err := rows.Scan(&c.ID, &row, &cardType, &c.Title, &c.Subtitle, &c.Color, &c.DisplayOrder, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Row = models.DashboardRow(row)
		c.CardType = models.DashboardCardType(cardType)
		out = append(out, c)
	}

	for i := range out {
		mids, err := r.cardMetricIDs(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].MetricIDs = mids

		pids, err := r.cardPlatformIDs(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].PlatformIDs = pids
	}
	return out, nil
}

func (r *Repository) cardMetricIDs(ctx context.Context, cardID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT metric_id FROM dashboard_card_metrics WHERE card_id = $1`, cardID)
	if err != nil {
		return nil, fmt.Errorf("card metric ids for %d: %w", cardID, err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *Repository) cardPlatformIDs(ctx context.Context, cardID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT platform_id FROM dashboard_card_platforms WHERE card_id = $1`, cardID)
	if err != nil {
		return nil, fmt.Errorf("card platform ids for %d: %w", cardID, err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GetNFTRecordByWallet fetches one wallet's mint record, used by the
// dashboard's "score" field. Returns nil, nil when the wallet has no record
// (not every wallet has minted the score NFT).
func (r *Repository) GetNFTRecordByWallet(ctx context.Context, wallet string) (*models.NFTMintRecord, error) {
	var n models.NFTMintRecord
	err := r.db.QueryRow(ctx, `
		SELECT wallet_address, token_id, score, rank, image_url, minted_at, updated_at
		FROM wallet_nft_records WHERE wallet_address = $1
	`, wallet).Scan(&n.WalletAddress, &n.TokenID, &n.Score, &n.Rank, &n.ImageURL, &n.MintedAt, &n.UpdatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("nft record for %s: %w", wallet, err)
	}
	return &n, nil
}

// NFTLeaderboard returns the top N wallet_nft_records by score descending.
func (r *Repository) NFTLeaderboard(ctx context.Context, limit int) ([]models.NFTMintRecord, error) {
	records, _, err := r.NFTLeaderboardPage(ctx, limit, 0)
	return records, err
}

// NFTLeaderboardPage returns one page of wallet_nft_records ordered by score
// descending, plus the total row count for pagination metadata.
func (r *Repository) NFTLeaderboardPage(ctx context.Context, limit, offset int) ([]models.NFTMintRecord, int, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM wallet_nft_records`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("nft leaderboard count: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT wallet_address, token_id, score, rank, image_url, minted_at, updated_at
		FROM wallet_nft_records
		ORDER BY score DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("nft leaderboard: %w", err)
	}
	defer rows.Close()

	var out []models.NFTMintRecord
	for rows.Next() {
		var n models.NFTMintRecord
		if err := rows.Scan(&n.WalletAddress, &n.TokenID, &n.Score, &n.Rank, &n.ImageURL, &n.MintedAt, &n.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, nil
}
