// Package discovery walks each enabled contract forward from its indexed
// watermark, writing raw transaction_details rows either from scanner
// pagination (full-tx mode) or from eth_getLogs-derived hashes (event mode).
//
// Scheduling is queue-driven: Tick enqueues one "discover" job per indexing-
// enabled contract, and HandleJob (registered with internal/queue's Engine)
// does the actual scan when that job (or an admin-submitted "backfill" job
// with an explicit block range) is leased.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/medfata/inkscore-sub000/internal/chainutil"
	"github.com/medfata/inkscore-sub000/internal/models"
	"github.com/medfata/inkscore-sub000/internal/obsv"
	"github.com/medfata/inkscore-sub000/internal/repository"
	"github.com/medfata/inkscore-sub000/internal/rpc"
	"github.com/medfata/inkscore-sub000/internal/scanner"
)

const maxConsecutiveFailures = 5

// Config carries the worker's tunable knobs, sourced from internal/config.
type Config struct {
	MinWindow   uint64
	MaxWindow   uint64
	ReorgMargin uint64
	PageSize    int
}

// Worker scans contracts forward: Tick enqueues discover jobs, and HandleJob
// scans one contract per leased job.
type Worker struct {
	repo    *repository.Repository
	rpc     *rpc.Client
	scan    *scanner.Client
	metrics *obsv.Registry
	cfg     Config
	window  uint64
}

func NewWorker(repo *repository.Repository, rpcClient *rpc.Client, scanClient *scanner.Client, metrics *obsv.Registry, cfg Config) *Worker {
	if cfg.MinWindow == 0 {
		cfg.MinWindow = 10_000
	}
	if cfg.MaxWindow == 0 {
		cfg.MaxWindow = 50_000
	}
	if cfg.ReorgMargin == 0 {
		cfg.ReorgMargin = 16
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 1000
	}
	return &Worker{repo: repo, rpc: rpcClient, scan: scanClient, metrics: metrics, cfg: cfg, window: cfg.MinWindow}
}

// discoverJobPayload is the payload shape for "discover" jobs: just the
// contract to scan next, leaving the range to the contract's own watermark.
type discoverJobPayload struct {
	ContractID int64 `json:"contractId"`
}

// Tick enqueues one "discover" job per indexing-enabled contract that
// doesn't already have one pending or processing, so the queue engine's
// poll loop (not this ticker) drives the actual scanning work.
func (w *Worker) Tick(ctx context.Context) {
	contracts, err := w.repo.ListContracts(ctx, true)
	if err != nil {
		log.Printf("[discovery] list contracts: %v", err)
		return
	}

	for _, c := range contracts {
		if ctx.Err() != nil {
			return
		}
		payload, err := json.Marshal(discoverJobPayload{ContractID: c.ID})
		if err != nil {
			continue
		}
		fingerprint := fmt.Sprintf("discover:%d", c.ID)
		exists, err := w.repo.JobExists(ctx, models.JobDiscover, &c.ID, fingerprint)
		if err != nil {
			log.Printf("[discovery] check existing job for %s: %v", c.Address, err)
			continue
		}
		if exists {
			continue
		}
		contractID := c.ID
		if _, err := w.repo.EnqueueJob(ctx, models.Job{
			JobType:            models.JobDiscover,
			ContractID:         &contractID,
			Priority:           5,
			Payload:            payload,
			PayloadFingerprint: fingerprint,
		}); err != nil {
			log.Printf("[discovery] enqueue discover job for %s: %v", c.Address, err)
		}
	}
}

// JobType identifies this handler to the queue engine for "discover" jobs.
func (w *Worker) JobType() models.JobType { return models.JobDiscover }

// HandleJob processes one leased "discover" job: scans the next window past
// the contract's watermark, bounded by the chain tip minus the reorg margin.
func (w *Worker) HandleJob(ctx context.Context, job *models.Job) error {
	var payload discoverJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode discover payload: %w", err)
	}

	c, err := w.repo.GetContractByID(ctx, payload.ContractID)
	if err != nil {
		return fmt.Errorf("get contract %d: %w", payload.ContractID, err)
	}
	if c == nil {
		return fmt.Errorf("contract %d not found", payload.ContractID)
	}
	if !c.IndexingEnabled {
		return nil
	}

	tip, err := w.rpc.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("block number: %w", err)
	}
	if tip < w.cfg.ReorgMargin {
		return nil
	}
	safeTip := tip - w.cfg.ReorgMargin

	w.adjustWindow()

	if err := w.processContract(ctx, *c, safeTip); err != nil {
		w.recordFailure(ctx, *c)
		return err
	}
	if c.ConsecutiveFailures > 0 {
		if err := w.repo.ResetContractFailures(ctx, c.ID); err != nil {
			log.Printf("[discovery] reset failures for %s: %v", c.Address, err)
		}
	}
	return nil
}

// BackfillHandler adapts a Worker to the queue engine's Handler interface for
// admin/gap-fill-submitted "backfill" jobs, which carry an explicit block range.
type BackfillHandler struct {
	*Worker
}

func (BackfillHandler) JobType() models.JobType { return models.JobBackfill }

// HandleJob processes one leased "backfill" job over its explicit
// [FromBlock, ToBlock] range, regardless of the contract's current watermark.
func (h BackfillHandler) HandleJob(ctx context.Context, job *models.Job) error {
	var payload models.BackfillPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode backfill payload: %w", err)
	}
	if payload.FromBlock == 0 && payload.ToBlock == 0 {
		return fmt.Errorf("backfill job %d missing block range", job.ID)
	}

	c, err := h.repo.GetContractByID(ctx, payload.ContractID)
	if err != nil {
		return fmt.Errorf("get contract %d: %w", payload.ContractID, err)
	}
	if c == nil {
		return fmt.Errorf("contract %d not found", payload.ContractID)
	}

	tip, err := h.rpc.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("block number: %w", err)
	}
	safeTip := uint64(0)
	if tip > h.cfg.ReorgMargin {
		safeTip = tip - h.cfg.ReorgMargin
	}

	to := payload.ToBlock
	if to == 0 || to > safeTip {
		to = safeTip
	}
	if payload.FromBlock > to {
		return nil
	}

	var details []models.TransactionDetail
	if c.FetchTransactions {
		details, err = h.discoverViaScanner(ctx, *c, payload.FromBlock, to)
	} else {
		details, err = h.discoverViaLogs(ctx, *c, payload.FromBlock, to)
	}
	if err != nil {
		return fmt.Errorf("backfill [%d,%d]: %w", payload.FromBlock, to, err)
	}

	if len(details) > 0 {
		if _, err := h.repo.UpsertTransactionDetails(ctx, details); err != nil {
			return fmt.Errorf("backfill upsert %d details: %w", len(details), err)
		}
	}
	return h.repo.UpdateIndexedThrough(ctx, c.ID, to)
}

// adjustWindow halves the scan window when the RPC pool's error rate is
// elevated, and recovers it gradually once the pool is healthy again.
func (w *Worker) adjustWindow() {
	rate := w.rpc.ErrorRate()
	switch {
	case rate > 0.25:
		next := w.window / 2
		if next < w.cfg.MinWindow {
			next = w.cfg.MinWindow
		}
		if next != w.window {
			log.Printf("[discovery] RPC error rate %.2f, shrinking window %d -> %d", rate, w.window, next)
		}
		w.window = next
	case rate == 0 && w.window < w.cfg.MaxWindow:
		next := w.window * 2
		if next > w.cfg.MaxWindow {
			next = w.cfg.MaxWindow
		}
		w.window = next
	}
}

func (w *Worker) recordFailure(ctx context.Context, c models.Contract) {
	count, err := w.repo.RecordContractFailure(ctx, c.ID)
	if err != nil {
		log.Printf("[discovery] record failure for %s: %v", c.Address, err)
		return
	}
	if count >= maxConsecutiveFailures {
		log.Printf("[discovery] disabling contract %s after %d consecutive failures", c.Address, count)
		if err := w.repo.SetContractIndexingEnabled(ctx, c.ID, false); err != nil {
			log.Printf("[discovery] disable contract %s: %v", c.Address, err)
		}
	}
}

func (w *Worker) processContract(ctx context.Context, c models.Contract, safeTip uint64) error {
	from := c.IndexedThroughBlock + 1
	if c.IndexedThroughBlock == 0 {
		from = c.DeployBlock
	}
	if from > safeTip {
		return nil
	}

	to := from + w.window - 1
	if to > safeTip {
		to = safeTip
	}

	started := time.Now()
	var details []models.TransactionDetail
	var err error
	if c.FetchTransactions {
		details, err = w.discoverViaScanner(ctx, c, from, to)
	} else {
		details, err = w.discoverViaLogs(ctx, c, from, to)
	}
	if err != nil {
		return err
	}

	if len(details) > 0 {
		n, err := w.repo.UpsertTransactionDetails(ctx, details)
		if err != nil {
			return fmt.Errorf("upsert %d details: %w", len(details), err)
		}
		log.Printf("[discovery] %s [%d,%d]: wrote %d/%d new rows", c.Address, from, to, n, len(details))
	}

	w.recordScanMetrics(len(details), time.Since(started))
	return w.repo.UpdateIndexedThrough(ctx, c.ID, to)
}

// recordScanMetrics publishes the counters §4.1's progress reporting needs:
// total transactions added, scan duration, and a rolling tx/s rate.
func (w *Worker) recordScanMetrics(txCount int, elapsed time.Duration) {
	w.metrics.Counter("discovery_txs_added_total").Add(int64(txCount))
	w.metrics.Gauge("discovery_scan_duration_seconds").Set(elapsed.Seconds())
	if elapsed > 0 {
		w.metrics.Gauge("discovery_txs_per_second").Set(float64(txCount) / elapsed.Seconds())
	}
}

func (w *Worker) discoverViaScanner(ctx context.Context, c models.Contract, from, to uint64) ([]models.TransactionDetail, error) {
	var out []models.TransactionDetail
	pageToken := ""
	for {
		page, err := w.scan.TransactionsByAddress(ctx, c.Address, from, pageToken, w.cfg.PageSize)
		if err != nil {
			return nil, fmt.Errorf("scanner page: %w", err)
		}
		for _, item := range page.Items {
			if item.BlockNumber > to {
				continue
			}
			status := int16(1)
			if item.IsError {
				status = 0
			}
			out = append(out, models.TransactionDetail{
				TxHash:          strings.ToLower(item.Hash),
				ContractAddress: c.Address,
				WalletAddress:   chainutil.NormalizeAddress(item.From),
				BlockNumber:     item.BlockNumber,
				BlockTimestamp:  time.Unix(item.Timestamp, 0).UTC(),
				Status:          status,
				EthValue:        item.Value,
			})
		}
		if !page.HasMore() {
			break
		}
		pageToken = page.Link.NextToken
	}
	return out, nil
}

func (w *Worker) discoverViaLogs(ctx context.Context, c models.Contract, from, to uint64) ([]models.TransactionDetail, error) {
	addr := common.HexToAddress(c.Address)
	logs, err := w.rpc.GetLogs(ctx, rpc.FilterQuery{
		FromBlock: fmt.Sprintf("0x%x", from),
		ToBlock:   fmt.Sprintf("0x%x", to),
		Address:   []common.Address{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("get logs: %w", err)
	}

	seen := make(map[string]struct{})
	var hashes []string
	for _, l := range logs {
		h := strings.ToLower(l.TransactionHash.Hex())
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		hashes = append(hashes, h)
	}
	if len(hashes) == 0 {
		return nil, nil
	}

	txs, err := w.rpc.GetTransactionsByHash(ctx, hashes)
	if err != nil {
		return nil, fmt.Errorf("fetch %d tx/receipts: %w", len(hashes), err)
	}

	blockTimestamps := make(map[uint64]time.Time)
	var out []models.TransactionDetail
	for hash, twr := range txs {
		if twr.Tx == nil || twr.Receipt == nil {
			continue
		}
		blockNum, err := rpc.HexToUint64(twr.Tx.BlockNumber)
		if err != nil {
			log.Printf("[discovery] %s: bad block number %q: %v", hash, twr.Tx.BlockNumber, err)
			continue
		}
		ts, ok := blockTimestamps[blockNum]
		if !ok {
			ts, err = w.rpc.BlockTimestamp(ctx, blockNum)
			if err != nil {
				log.Printf("[discovery] %s: block timestamp: %v", hash, err)
				continue
			}
			blockTimestamps[blockNum] = ts
		}

		status := int16(0)
		if twr.Receipt.Status == "0x1" {
			status = 1
		}
		selector := ""
		if len(twr.Tx.Input) >= 10 {
			selector = twr.Tx.Input[:10]
		}
		gasUsed, _ := rpc.HexToUint64(twr.Receipt.GasUsed)
		ethValue, err := rpc.HexToDecimalString(twr.Tx.Value)
		if err != nil {
			ethValue = "0"
		}

		out = append(out, models.TransactionDetail{
			TxHash:          hash,
			ContractAddress: c.Address,
			WalletAddress:   strings.ToLower(twr.Tx.From.Hex()),
			BlockNumber:     blockNum,
			BlockTimestamp:  ts,
			Status:          status,
			EthValue:        ethValue,
			InputSelector:   selector,
			GasUsed:         gasUsed,
		})
	}
	return out, nil
}
