package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/medfata/inkscore-sub000/internal/chainutil"
	"github.com/medfata/inkscore-sub000/internal/models"
)

// UpsertTransactionDetails bulk-inserts discovered transactions, skipping any
// tx_hash already present: discovery must be safely re-runnable over an
// overlapping block range without producing duplicate facts.
func (r *Repository) UpsertTransactionDetails(ctx context.Context, details []models.TransactionDetail) (int64, error) {
	if len(details) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, d := range details {
		batch.Queue(`
			INSERT INTO transaction_details (
				tx_hash, contract_address, wallet_address, block_number, block_timestamp,
				status, eth_value, input_selector, gas_used, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
			ON CONFLICT (tx_hash) DO NOTHING
		`, d.TxHash, d.ContractAddress, d.WalletAddress, d.BlockNumber, d.BlockTimestamp,
			d.Status, d.EthValue, d.InputSelector, d.GasUsed)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	var inserted int64
	for range details {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert transaction_details batch: %w", err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// UpsertEnrichment writes (or idempotently overwrites) the enrichment row for
// one transaction.
func (r *Repository) UpsertEnrichment(ctx context.Context, e models.TransactionEnrichment) error {
	logsJSON, err := json.Marshal(e.Logs)
	if err != nil {
		return fmt.Errorf("marshal logs for %s: %w", e.TxHash, err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO transaction_enrichment (
			tx_hash, function_name, logs, usd_value, eth_value_derived, enriched_at
		) VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (tx_hash) DO UPDATE SET
			function_name = EXCLUDED.function_name,
			logs = EXCLUDED.logs,
			usd_value = EXCLUDED.usd_value,
			eth_value_derived = EXCLUDED.eth_value_derived,
			enriched_at = NOW()
	`, e.TxHash, e.FunctionName, logsJSON, e.USDValue, e.EthValueDerived)
	if err != nil {
		return fmt.Errorf("upsert enrichment for %s: %w", e.TxHash, err)
	}
	return nil
}

// BatchUpsertEnrichment writes enrichment rows for multiple transactions in
// a single round trip, the enrichment worker's per-pass write.
func (r *Repository) BatchUpsertEnrichment(ctx context.Context, enrichments []models.TransactionEnrichment) error {
	if len(enrichments) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range enrichments {
		logsJSON, err := json.Marshal(e.Logs)
		if err != nil {
			return fmt.Errorf("marshal logs for %s: %w", e.TxHash, err)
		}
		batch.Queue(`
			INSERT INTO transaction_enrichment (
				tx_hash, function_name, logs, usd_value, eth_value_derived, enriched_at
			) VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (tx_hash) DO UPDATE SET
				function_name = EXCLUDED.function_name,
				logs = EXCLUDED.logs,
				usd_value = EXCLUDED.usd_value,
				eth_value_derived = EXCLUDED.eth_value_derived,
				enriched_at = NOW()
		`, e.TxHash, e.FunctionName, logsJSON, e.USDValue, e.EthValueDerived)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()
	for range enrichments {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch upsert enrichment: %w", err)
		}
	}
	return nil
}

// UnenrichedRows returns up to limit transaction_details rows with
// block_timestamp >= since that have no matching transaction_enrichment row,
// restricted to volume contracts (count contracts never need USD valuation)
// and newest-first, the realtime enrichment worker's primary query.
func (r *Repository) UnenrichedRows(ctx context.Context, since time.Time, limit int) ([]models.TransactionDetail, error) {
	rows, err := r.db.Query(ctx, `
		SELECT d.tx_hash, d.contract_address, d.wallet_address, d.block_number, d.block_timestamp,
			d.status, d.eth_value, d.input_selector, d.gas_used, d.created_at
		FROM transaction_details d
		JOIN contracts c ON c.address = d.contract_address AND c.kind = 'volume'
		LEFT JOIN transaction_enrichment e ON e.tx_hash = d.tx_hash
		WHERE e.tx_hash IS NULL AND d.block_timestamp >= $1
		ORDER BY d.block_timestamp DESC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("unenriched rows since %s: %w", since, err)
	}
	defer rows.Close()
	return scanTransactionDetails(rows)
}

// UnenrichedGaps returns unenriched rows older than `before` (i.e. outside the
// realtime worker's lookback window), for the gap-fill worker.
func (r *Repository) UnenrichedGaps(ctx context.Context, before time.Time, limit int) ([]models.TransactionDetail, error) {
	rows, err := r.db.Query(ctx, `
		SELECT d.tx_hash, d.contract_address, d.wallet_address, d.block_number, d.block_timestamp,
			d.status, d.eth_value, d.input_selector, d.gas_used, d.created_at
		FROM transaction_details d
		LEFT JOIN transaction_enrichment e ON e.tx_hash = d.tx_hash
		WHERE e.tx_hash IS NULL AND d.block_timestamp < $1
		ORDER BY d.block_timestamp DESC
		LIMIT $2
	`, before, limit)
	if err != nil {
		return nil, fmt.Errorf("unenriched gaps before %s: %w", before, err)
	}
	defer rows.Close()
	return scanTransactionDetails(rows)
}

// GetTransactionDetail fetches a single transaction_details row by hash, used
// by the enrichment worker when processing a gap-fill-submitted "enrich" job
// that names one specific tx.
func (r *Repository) GetTransactionDetail(ctx context.Context, txHash string) (*models.TransactionDetail, error) {
	var d models.TransactionDetail
	err := r.db.QueryRow(ctx, `
		SELECT tx_hash, contract_address, wallet_address, block_number, block_timestamp,
			status, eth_value, input_selector, gas_used, created_at
		FROM transaction_details WHERE tx_hash = $1
	`, txHash).Scan(&d.TxHash, &d.ContractAddress, &d.WalletAddress, &d.BlockNumber, &d.BlockTimestamp,
		&d.Status, &d.EthValue, &d.InputSelector, &d.GasUsed, &d.CreatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction_detail %s: %w", txHash, err)
	}
	return &d, nil
}

func scanTransactionDetails(rows pgx.Rows) ([]models.TransactionDetail, error) {
	var out []models.TransactionDetail
	for rows.Next() {
		var d models.TransactionDetail
		if err := rows.Scan(&d.TxHash, &d.ContractAddress, &d.WalletAddress, &d.BlockNumber, &d.BlockTimestamp,
			&d.Status, &d.EthValue, &d.InputSelector, &d.GasUsed, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// TransactionsForWallet returns every transaction_details row (joined with
// its enrichment, if any) involving the given wallet either as sender
// (d.wallet_address) or as an indexed recipient address in an enrichment
// log topic (e.g. ERC-20 Transfer's `to` parameter), used by the
// aggregation engine's metric evaluation.
func (r *Repository) TransactionsForWallet(ctx context.Context, wallet string, contractIDs []int64) ([]EnrichedTx, error) {
	recipientTopic := chainutil.PadAddressTopic(wallet)
	rows, err := r.db.Query(ctx, `
		SELECT d.tx_hash, d.contract_address, d.wallet_address, d.block_number, d.block_timestamp,
			d.status, d.eth_value, d.input_selector, d.gas_used,
			e.function_name, e.usd_value, e.eth_value_derived, e.logs
		FROM transaction_details d
		JOIN contracts c ON c.address = d.contract_address
		LEFT JOIN transaction_enrichment e ON e.tx_hash = d.tx_hash
		WHERE ($2::bigint[] IS NULL OR c.id = ANY($2))
			AND (
				d.wallet_address = $1
				OR EXISTS (
					SELECT 1
					FROM jsonb_array_elements(COALESCE(e.logs, '[]'::jsonb)) AS log,
						jsonb_array_elements_text(log->'topics') AS topic
					WHERE $3::text <> '' AND lower(topic) = $3
				)
			)
		ORDER BY d.block_number ASC
	`, wallet, contractIDsOrNil(contractIDs), recipientTopic)
	if err != nil {
		return nil, fmt.Errorf("transactions for wallet %s: %w", wallet, err)
	}
	defer rows.Close()

	var out []EnrichedTx
	for rows.Next() {
		var t EnrichedTx
		var logsRaw []byte
		if err := rows.Scan(&t.TxHash, &t.ContractAddress, &t.WalletAddress, &t.BlockNumber, &t.BlockTimestamp,
			&t.Status, &t.EthValue, &t.InputSelector, &t.GasUsed,
			&t.FunctionName, &t.USDValue, &t.EthValueDerived, &logsRaw); err != nil {
			return nil, err
		}
		if len(logsRaw) > 0 {
			_ = json.Unmarshal(logsRaw, &t.Logs)
		}
		out = append(out, t)
	}
	return out, nil
}

// EnrichedTx is a transaction_details row joined with its (possibly absent)
// enrichment, the shape the aggregation engine consumes.
type EnrichedTx struct {
	TxHash          string
	ContractAddress string
	WalletAddress   string
	BlockNumber     uint64
	BlockTimestamp  time.Time
	Status          int16
	EthValue        string
	InputSelector   string
	GasUsed         uint64
	FunctionName    *string
	USDValue        *float64
	EthValueDerived *float64
	Logs            []models.Log
}

func contractIDsOrNil(ids []int64) any {
	if len(ids) == 0 {
		return nil
	}
	return ids
}
