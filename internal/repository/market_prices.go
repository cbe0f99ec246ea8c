package repository

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PriceSample is one persisted (token, hour) -> USD observation, the
// durable backing store behind the in-memory price cache.
type PriceSample struct {
	Token     string
	Hour      time.Time
	USD       float64
	Source    string
	CreatedAt time.Time
}

// UpsertPriceSample idempotently records a price sample for (token, hour).
// A later write for the same bucket overwrites the price, on the assumption
// that a closer-to-real-time fetch is more accurate than a stale one.
func (r *Repository) UpsertPriceSample(ctx context.Context, s PriceSample) error {
	token := strings.ToLower(strings.TrimSpace(s.Token))
	hour := s.Hour.UTC().Truncate(time.Hour)

	_, err := r.db.Exec(ctx, `
		INSERT INTO price_samples (token, hour, usd, source, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (token, hour) DO UPDATE SET
			usd = EXCLUDED.usd,
			source = EXCLUDED.source
	`, token, hour, s.USD, s.Source)
	if err != nil {
		return fmt.Errorf("upsert price sample for %s at %s: %w", token, hour, err)
	}
	return nil
}

// GetPriceSample returns the exact (token, hour) sample, if persisted.
func (r *Repository) GetPriceSample(ctx context.Context, token string, hour time.Time) (*PriceSample, error) {
	token = strings.ToLower(strings.TrimSpace(token))
	hour = hour.UTC().Truncate(time.Hour)

	var s PriceSample
	err := r.db.QueryRow(ctx, `
		SELECT token, hour, usd, source, created_at
		FROM price_samples
		WHERE token = $1 AND hour = $2
	`, token, hour).Scan(&s.Token, &s.Hour, &s.USD, &s.Source, &s.CreatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get price sample for %s at %s: %w", token, hour, err)
	}
	return &s, nil
}

// PriceHistory returns up to limit recent hourly samples for token, oldest first.
func (r *Repository) PriceHistory(ctx context.Context, token string, limit int) ([]PriceSample, error) {
	if limit <= 0 || limit > 8760 {
		limit = 168 // 7 days of hourly data
	}
	token = strings.ToLower(strings.TrimSpace(token))

	rows, err := r.db.Query(ctx, `
		SELECT token, hour, usd, source, created_at
		FROM price_samples
		WHERE token = $1
		ORDER BY hour DESC
		LIMIT $2
	`, token, limit)
	if err != nil {
		return nil, fmt.Errorf("price history for %s: %w", token, err)
	}
	defer rows.Close()

	var out []PriceSample
	for rows.Next() {
		var s PriceSample
		if err := rows.Scan(&s.Token, &s.Hour, &s.USD, &s.Source, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
