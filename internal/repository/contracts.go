package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/medfata/inkscore-sub000/internal/models"
)

// UpsertContract inserts a contract or, if the address already exists,
// updates its mutable fields. The address is the unique key (lowercase,
// enforced by the caller via chainutil.NormalizeAddress).
func (r *Repository) UpsertContract(ctx context.Context, c models.Contract) (int64, error) {
	address := strings.ToLower(c.Address)

	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO contracts (
			address, name, deploy_block, kind, indexing_enabled, fetch_transactions,
			creation_date, abi, indexed_through_block, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $3, NOW(), NOW())
		ON CONFLICT (address) DO UPDATE SET
			name = EXCLUDED.name,
			kind = EXCLUDED.kind,
			indexing_enabled = EXCLUDED.indexing_enabled,
			fetch_transactions = EXCLUDED.fetch_transactions,
			abi = EXCLUDED.abi,
			updated_at = NOW()
		RETURNING id
	`, address, c.Name, c.DeployBlock, string(c.Kind), c.IndexingEnabled, c.FetchTransactions,
		nullableTime(c.CreationDate), nullableJSON(c.ABI)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert contract %s: %w", address, err)
	}
	return id, nil
}

// GetContract fetches a contract by its canonical address.
func (r *Repository) GetContract(ctx context.Context, address string) (*models.Contract, error) {
	address = strings.ToLower(address)
	row := r.db.QueryRow(ctx, contractSelectColumns+" WHERE address = $1", address)
	c, err := scanContract(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contract %s: %w", address, err)
	}
	return c, nil
}

// GetContractByID fetches a contract by its primary key.
func (r *Repository) GetContractByID(ctx context.Context, id int64) (*models.Contract, error) {
	row := r.db.QueryRow(ctx, contractSelectColumns+" WHERE id = $1", id)
	c, err := scanContract(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contract id=%d: %w", id, err)
	}
	return c, nil
}

// ListContracts returns every contract, optionally filtered to indexing-enabled only.
func (r *Repository) ListContracts(ctx context.Context, enabledOnly bool) ([]models.Contract, error) {
	query := contractSelectColumns
	if enabledOnly {
		query += " WHERE indexing_enabled = true"
	}
	query += " ORDER BY id ASC"

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	var out []models.Contract
	for rows.Next() {
		c, err := scanContractRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

// UpdateIndexedThrough advances a contract's discovery watermark. Callers
// must only ever increase it except during PruneFromBlock's reorg rewind.
func (r *Repository) UpdateIndexedThrough(ctx context.Context, contractID int64, block uint64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE contracts SET indexed_through_block = $2, updated_at = NOW()
		WHERE id = $1 AND $2 > indexed_through_block
	`, contractID, block)
	if err != nil {
		return fmt.Errorf("advance watermark for contract %d: %w", contractID, err)
	}
	return nil
}

// RecordContractFailure increments the consecutive-failure counter and
// returns the new count, so the caller can decide whether to disable
// indexing after the 5th consecutive failure.
func (r *Repository) RecordContractFailure(ctx context.Context, contractID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		UPDATE contracts SET consecutive_failures = consecutive_failures + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING consecutive_failures
	`, contractID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("record failure for contract %d: %w", contractID, err)
	}
	return count, nil
}

// ResetContractFailures clears the consecutive-failure counter after a
// successful pass.
func (r *Repository) ResetContractFailures(ctx context.Context, contractID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE contracts SET consecutive_failures = 0 WHERE id = $1`, contractID)
	if err != nil {
		return fmt.Errorf("reset failures for contract %d: %w", contractID, err)
	}
	return nil
}

// SetContractIndexingEnabled flips the indexing_enabled flag, used both by
// the discovery worker's failure-isolation promotion and by the admin API.
func (r *Repository) SetContractIndexingEnabled(ctx context.Context, contractID int64, enabled bool) error {
	_, err := r.db.Exec(ctx, `UPDATE contracts SET indexing_enabled = $2, updated_at = NOW() WHERE id = $1`, contractID, enabled)
	if err != nil {
		return fmt.Errorf("set indexing_enabled for contract %d: %w", contractID, err)
	}
	return nil
}

// UpsertPlatform inserts or updates a platform by slug.
func (r *Repository) UpsertPlatform(ctx context.Context, p models.Platform) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO platforms (slug, name, logo_url, website_url, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name, logo_url = EXCLUDED.logo_url, website_url = EXCLUDED.website_url
		RETURNING id
	`, p.Slug, p.Name, p.LogoURL, p.WebsiteURL).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert platform %s: %w", p.Slug, err)
	}
	return id, nil
}

// LinkContractPlatform associates a contract with a platform (idempotent).
func (r *Repository) LinkContractPlatform(ctx context.Context, contractID, platformID int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO contract_platforms (contract_id, platform_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, contractID, platformID)
	if err != nil {
		return fmt.Errorf("link contract %d to platform %d: %w", contractID, platformID, err)
	}
	return nil
}

// ListPlatforms returns every platform.
func (r *Repository) ListPlatforms(ctx context.Context) ([]models.Platform, error) {
	rows, err := r.db.Query(ctx, `SELECT id, slug, name, logo_url, website_url, created_at FROM platforms ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	defer rows.Close()

	var out []models.Platform
	for rows.Next() {
		var p models.Platform
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.LogoURL, &p.WebsiteURL, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ContractsForPlatform returns every contract linked to the named platform,
// used by aggregation paths that need "all lending pool contracts" or
// similar platform-scoped contract sets rather than a single metric's list.
func (r *Repository) ContractsForPlatform(ctx context.Context, platformSlug string) ([]models.Contract, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.address, c.name, c.deploy_block, c.kind, c.indexing_enabled, c.fetch_transactions,
			c.creation_date, c.abi, c.indexed_through_block, c.consecutive_failures, c.created_at, c.updated_at
		FROM contracts c
		JOIN contract_platforms cp ON cp.contract_id = c.id
		JOIN platforms p ON p.id = cp.platform_id
		WHERE p.slug = $1
		ORDER BY c.id ASC
	`, platformSlug)
	if err != nil {
		return nil, fmt.Errorf("contracts for platform %s: %w", platformSlug, err)
	}
	defer rows.Close()

	var out []models.Contract
	for rows.Next() {
		c, err := scanContractRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

const contractSelectColumns = `
	SELECT id, address, name, deploy_block, kind, indexing_enabled, fetch_transactions,
		creation_date, abi, indexed_through_block, consecutive_failures, created_at, updated_at
	FROM contracts
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (*models.Contract, error) {
	return scanContractRows(row)
}

func scanContractRows(row rowScanner) (*models.Contract, error) {
	var c models.Contract
	var kind string
	var abi []byte
	if err := row.Scan(&c.ID, &c.Address, &c.Name, &c.DeployBlock, &kind, &c.IndexingEnabled, &c.FetchTransactions,
		&c.CreationDate, &abi, &c.IndexedThroughBlock, &c.ConsecutiveFailures, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Kind = models.ContractKind(kind)
	if len(abi) > 0 {
		c.ABI = json.RawMessage(abi)
	}
	return &c, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
