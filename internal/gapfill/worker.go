// Package gapfill scans further back than the realtime enrichment window,
// detects missing discovery ranges and missing enrichments, and enqueues
// backfill/enrich jobs to close them.
package gapfill

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/medfata/inkscore-sub000/internal/models"
	"github.com/medfata/inkscore-sub000/internal/obsv"
	"github.com/medfata/inkscore-sub000/internal/repository"
)

// Config carries the worker's tunable knobs.
type Config struct {
	PollPeriod  time.Duration
	HighWater   int // pending `enrich` jobs above this pauses new enqueues
	WindowSize  uint64
	RealtimeAge time.Duration // rows newer than this are the realtime worker's territory
	DryRun      bool
}

// Worker periodically sweeps for discovery and enrichment gaps.
type Worker struct {
	repo    *repository.Repository
	metrics *obsv.Registry
	cfg     Config
}

func NewWorker(repo *repository.Repository, metrics *obsv.Registry, cfg Config) *Worker {
	if cfg.PollPeriod <= 0 {
		cfg.PollPeriod = 60 * time.Second
	}
	if cfg.HighWater <= 0 {
		cfg.HighWater = 500
	}
	if cfg.WindowSize == 0 {
		cfg.WindowSize = 10_000
	}
	if cfg.RealtimeAge <= 0 {
		cfg.RealtimeAge = 5 * time.Minute
	}
	return &Worker{repo: repo, metrics: metrics, cfg: cfg}
}

// Tick runs one sweep: discovery gaps first (cheap, block-range math), then
// enrichment gaps (bounded by the enrich-job high-water mark).
func (w *Worker) Tick(ctx context.Context) {
	w.sweepDiscoveryGaps(ctx)
	w.sweepEnrichmentGaps(ctx)
}

// sweepDiscoveryGaps finds enabled contracts with at least 3 consecutive
// discovery failures and enqueues a backfill job for the next WindowSize
// blocks past the watermark; the chain tip is not consulted.
// Since transaction_details/discovery already advances indexed_through_block
// strictly forward, the only "gap" a contract can have here is simply being
// behind — there is no separate bitmap of queried windows to consult.
func (w *Worker) sweepDiscoveryGaps(ctx context.Context) {
	contracts, err := w.repo.ListContracts(ctx, true)
	if err != nil {
		log.Printf("[gapfill] list contracts: %v", err)
		return
	}

	for _, c := range contracts {
		if ctx.Err() != nil {
			return
		}
		if c.ConsecutiveFailures < 3 {
			continue // the discovery worker's own catch-up loop handles the common case
		}

		from := c.IndexedThroughBlock + 1
		to := from + w.cfg.WindowSize - 1

		if w.cfg.DryRun {
			log.Printf("[gapfill] dry-run: discovery gap for %s [%d,%d]", c.Address, from, to)
			continue
		}

		payload, err := json.Marshal(models.BackfillPayload{ContractID: c.ID, FromBlock: from, ToBlock: to})
		if err != nil {
			continue
		}
		fingerprint := fmt.Sprintf("gapfill-backfill:%d:%d:%d", c.ID, from, to)
		exists, err := w.repo.JobExists(ctx, models.JobBackfill, &c.ID, fingerprint)
		if err != nil || exists {
			continue
		}
		contractID := c.ID
		if _, err := w.repo.EnqueueJob(ctx, models.Job{
			JobType:            models.JobBackfill,
			ContractID:         &contractID,
			Priority:           7, // lower urgency than the realtime discover job
			Payload:            payload,
			PayloadFingerprint: fingerprint,
		}); err != nil {
			log.Printf("[gapfill] enqueue backfill for %s: %v", c.Address, err)
			continue
		}
		w.metrics.Counter("gapfill_backfill_jobs_enqueued_total").Inc()
	}
}

// sweepEnrichmentGaps finds transaction_details rows older than the realtime
// window lacking enrichment and enqueues one `enrich` job per row, newest
// first, stopping once the pending-enrich high-water mark is reached.
func (w *Worker) sweepEnrichmentGaps(ctx context.Context) {
	pending, err := w.pendingEnrichCount(ctx)
	if err != nil {
		log.Printf("[gapfill] pending enrich count: %v", err)
		return
	}
	if pending >= w.cfg.HighWater {
		log.Printf("[gapfill] pending enrich jobs (%d) at/above high-water (%d), skipping this pass", pending, w.cfg.HighWater)
		return
	}

	budget := w.cfg.HighWater - pending
	before := time.Now().Add(-w.cfg.RealtimeAge)
	rows, err := w.repo.UnenrichedGaps(ctx, before, budget)
	if err != nil {
		log.Printf("[gapfill] unenriched gaps: %v", err)
		return
	}
	if len(rows) == 0 {
		return
	}

	if w.cfg.DryRun {
		log.Printf("[gapfill] dry-run: %d enrichment gaps found", len(rows))
		return
	}

	enqueued := 0
	for _, r := range rows {
		payload, err := json.Marshal(struct {
			TxHash string `json:"txHash"`
		}{TxHash: r.TxHash})
		if err != nil {
			continue
		}
		fingerprint := "gapfill-enrich:" + r.TxHash
		exists, err := w.repo.JobExists(ctx, models.JobEnrich, nil, fingerprint)
		if err != nil || exists {
			continue
		}
		if _, err := w.repo.EnqueueJob(ctx, models.Job{
			JobType:            models.JobEnrich,
			Priority:           6,
			Payload:            payload,
			PayloadFingerprint: fingerprint,
		}); err != nil {
			log.Printf("[gapfill] enqueue enrich for %s: %v", r.TxHash, err)
			continue
		}
		enqueued++
	}
	if enqueued > 0 {
		w.metrics.Counter("gapfill_enrich_jobs_enqueued_total").Add(int64(enqueued))
		log.Printf("[gapfill] enqueued %d enrich jobs", enqueued)
	}
}

func (w *Worker) pendingEnrichCount(ctx context.Context) (int, error) {
	return w.repo.CountJobsByTypeAndStatus(ctx, models.JobEnrich, models.JobPending)
}
