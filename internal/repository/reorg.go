package repository

import (
	"context"
	"fmt"
	"log"
)

// PruneFromBlock performs a surgical rollback of one contract's indexed data
// at or above rollbackBlock: a reorg was detected within the 16-block safety
// margin, so transaction_details and transaction_enrichment rows for blocks
// that no longer exist on the canonical chain must be discarded and the
// contract's watermark rewound so discovery re-scans them.
func (r *Repository) PruneFromBlock(ctx context.Context, contractAddress string, rollbackBlock uint64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("prune from block: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM transaction_enrichment
		WHERE tx_hash IN (
			SELECT tx_hash FROM transaction_details
			WHERE contract_address = $1 AND block_number >= $2
		)
	`, contractAddress, rollbackBlock); err != nil {
		return fmt.Errorf("prune enrichment for %s >= %d: %w", contractAddress, rollbackBlock, err)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM transaction_details
		WHERE contract_address = $1 AND block_number >= $2
	`, contractAddress, rollbackBlock); err != nil {
		return fmt.Errorf("prune transaction_details for %s >= %d: %w", contractAddress, rollbackBlock, err)
	}

	newWatermark := uint64(0)
	if rollbackBlock > 0 {
		newWatermark = rollbackBlock - 1
	}
	if _, err := tx.Exec(ctx, `
		UPDATE contracts
		SET indexed_through_block = LEAST(indexed_through_block, $2), updated_at = NOW()
		WHERE address = $1
	`, contractAddress, newWatermark); err != nil {
		return fmt.Errorf("rewind watermark for %s: %w", contractAddress, err)
	}

	log.Printf("[discovery] pruned %s from block %d due to detected reorg", contractAddress, rollbackBlock)
	return tx.Commit(ctx)
}
