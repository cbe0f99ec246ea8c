// Package enrichment adds decoded function names, event logs, and fiat
// values to transaction_details rows written by discovery.
package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/medfata/inkscore-sub000/internal/eventbus"
	"github.com/medfata/inkscore-sub000/internal/models"
	"github.com/medfata/inkscore-sub000/internal/obsv"
	"github.com/medfata/inkscore-sub000/internal/repository"
	"github.com/medfata/inkscore-sub000/internal/rpc"
)

// Config carries the realtime worker's tunable knobs.
type Config struct {
	BatchSize int
	Lookback  time.Duration
}

// Worker is the realtime enrichment worker: every Tick it enriches up to
// BatchSize rows whose block_timestamp falls within Lookback of now.
type Worker struct {
	repo    *repository.Repository
	rpc     *rpc.Client
	valuer  *Valuer
	decoder *SelectorDecoder
	bus     *eventbus.Bus
	metrics *obsv.Registry
	cfg     Config

	abiLoaded map[string]bool
}

func NewWorker(repo *repository.Repository, rpcClient *rpc.Client, valuer *Valuer, decoder *SelectorDecoder, bus *eventbus.Bus, metrics *obsv.Registry, cfg Config) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 5 * time.Minute
	}
	return &Worker{
		repo:      repo,
		rpc:       rpcClient,
		valuer:    valuer,
		decoder:   decoder,
		bus:       bus,
		metrics:   metrics,
		cfg:       cfg,
		abiLoaded: make(map[string]bool),
	}
}

// Tick runs one enrichment pass over unenriched rows in the realtime window.
func (w *Worker) Tick(ctx context.Context) {
	since := time.Now().Add(-w.cfg.Lookback)
	rows, err := w.repo.UnenrichedRows(ctx, since, w.cfg.BatchSize)
	if err != nil {
		log.Printf("[enrich] unenriched rows: %v", err)
		return
	}
	if len(rows) == 0 {
		return
	}

	byContract := make(map[string][]models.TransactionDetail)
	for _, r := range rows {
		byContract[r.ContractAddress] = append(byContract[r.ContractAddress], r)
	}

	var enrichments []models.TransactionEnrichment
	for contractAddr, group := range byContract {
		w.ensureABI(ctx, contractAddr)

		hashes := make([]string, len(group))
		for i, r := range group {
			hashes[i] = r.TxHash
		}

		txs, err := w.rpc.GetTransactionsByHash(ctx, hashes)
		if err != nil {
			log.Printf("[enrich] %s: fetch %d receipts: %v", contractAddr, len(hashes), err)
			continue
		}

		for _, d := range group {
			twr, ok := txs[d.TxHash]
			if !ok || twr.Receipt == nil {
				continue
			}

			logs := make([]models.Log, 0, len(twr.Receipt.Logs))
			for _, l := range twr.Receipt.Logs {
				topics := make([]string, len(l.Topics))
				for i, t := range l.Topics {
					topics[i] = strings.ToLower(t.Hex())
				}
				logIdx, _ := rpc.HexToUint64(l.LogIndex)
				logs = append(logs, models.Log{
					Index:   uint(logIdx),
					Address: strings.ToLower(l.Address.Hex()),
					Topics:  topics,
					Data:    l.Data,
				})
			}

			var fnName *string
			if name := w.decoder.FunctionName(contractAddr, d.InputSelector); name != "" {
				fnName = &name
			}

			usd, ethDerived := w.valuer.Value(ctx, d, logs)

			enrichments = append(enrichments, models.TransactionEnrichment{
				TxHash:          d.TxHash,
				FunctionName:    fnName,
				Logs:            logs,
				USDValue:        usd,
				EthValueDerived: ethDerived,
			})
		}
	}

	if len(enrichments) == 0 {
		return
	}

	if err := w.repo.BatchUpsertEnrichment(ctx, enrichments); err != nil {
		log.Printf("[enrich] batch upsert %d rows: %v", len(enrichments), err)
		return
	}
	w.metrics.Counter("enrichment_txs_enriched_total").Add(int64(len(enrichments)))
	log.Printf("[enrich] enriched %d rows across %d contracts", len(enrichments), len(byContract))

	for _, e := range enrichments {
		w.bus.Publish(eventbus.Event{Type: "tx.enriched", Timestamp: time.Now().UTC(), Data: e.TxHash})
	}
}

// enrichJobPayload is the payload shape for gap-fill-submitted "enrich" jobs,
// naming one specific transaction outside the realtime window.
type enrichJobPayload struct {
	TxHash string `json:"txHash"`
}

// JobType identifies this handler to the queue engine for "enrich" jobs.
func (w *Worker) JobType() models.JobType { return models.JobEnrich }

// HandleJob enriches one specific transaction named by a gap-fill-submitted job.
func (w *Worker) HandleJob(ctx context.Context, job *models.Job) error {
	var payload enrichJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode enrich payload: %w", err)
	}

	d, err := w.repo.GetTransactionDetail(ctx, payload.TxHash)
	if err != nil {
		return fmt.Errorf("get transaction_detail %s: %w", payload.TxHash, err)
	}
	if d == nil {
		return fmt.Errorf("transaction_detail %s not found", payload.TxHash)
	}

	w.ensureABI(ctx, d.ContractAddress)

	txs, err := w.rpc.GetTransactionsByHash(ctx, []string{d.TxHash})
	if err != nil {
		return fmt.Errorf("fetch receipt for %s: %w", d.TxHash, err)
	}
	twr, ok := txs[d.TxHash]
	if !ok || twr.Receipt == nil {
		return fmt.Errorf("no receipt for %s", d.TxHash)
	}

	logs := make([]models.Log, 0, len(twr.Receipt.Logs))
	for _, l := range twr.Receipt.Logs {
		topics := make([]string, len(l.Topics))
		for i, t := range l.Topics {
			topics[i] = strings.ToLower(t.Hex())
		}
		logIdx, _ := rpc.HexToUint64(l.LogIndex)
		logs = append(logs, models.Log{
			Index:   uint(logIdx),
			Address: strings.ToLower(l.Address.Hex()),
			Topics:  topics,
			Data:    l.Data,
		})
	}

	var fnName *string
	if name := w.decoder.FunctionName(d.ContractAddress, d.InputSelector); name != "" {
		fnName = &name
	}
	usd, ethDerived := w.valuer.Value(ctx, *d, logs)

	e := models.TransactionEnrichment{
		TxHash:          d.TxHash,
		FunctionName:    fnName,
		Logs:            logs,
		USDValue:        usd,
		EthValueDerived: ethDerived,
	}
	if err := w.repo.UpsertEnrichment(ctx, e); err != nil {
		return fmt.Errorf("upsert enrichment for %s: %w", d.TxHash, err)
	}
	w.metrics.Counter("enrichment_txs_enriched_total").Inc()
	w.bus.Publish(eventbus.Event{Type: "tx.enriched", Timestamp: time.Now().UTC(), Data: e.TxHash})
	return nil
}

func (w *Worker) ensureABI(ctx context.Context, contractAddr string) {
	if w.abiLoaded[contractAddr] {
		return
	}
	c, err := w.repo.GetContract(ctx, contractAddr)
	if err != nil || c == nil {
		return
	}
	w.decoder.RegisterABI(contractAddr, c.ABI)
	w.abiLoaded[contractAddr] = true
}
