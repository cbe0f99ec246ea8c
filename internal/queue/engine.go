// Package queue runs the background job-queue engine: a ticker-driven loop
// that leases pending jobs, hands each to the handler registered for its
// type, and records success/failure back to the repository.
package queue

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/medfata/inkscore-sub000/internal/models"
	"github.com/medfata/inkscore-sub000/internal/obsv"
	"github.com/medfata/inkscore-sub000/internal/repository"
)

// Handler processes one leased job. A non-nil error marks the job failed
// (scheduling a backoff retry, or a terminal failure once attempts are exhausted).
type Handler interface {
	// HandleJob executes the job's payload.
	HandleJob(ctx context.Context, job *models.Job) error
	// JobType returns the job_type this handler processes.
	JobType() models.JobType
}

// Engine owns the poll loop and the janitor sweep for stuck jobs.
type Engine struct {
	repo         *repository.Repository
	handlers     map[models.JobType]Handler
	workerID     string
	pollInterval time.Duration
	sweepPeriod  time.Duration
	leaseMaxAge  time.Duration
	stopCh       chan struct{}
	metrics      *obsv.Registry
}

// Config configures the engine's timing knobs.
type Config struct {
	PollInterval time.Duration
	SweepPeriod  time.Duration
	LeaseMaxAge  time.Duration
	WorkerID     string
}

// NewEngine builds an engine with no handlers registered; call Register for each job type.
func NewEngine(repo *repository.Repository, metrics *obsv.Registry, cfg Config) *Engine {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.SweepPeriod == 0 {
		cfg.SweepPeriod = 15 * time.Second
	}
	if cfg.LeaseMaxAge == 0 {
		cfg.LeaseMaxAge = 10 * time.Minute
	}
	if cfg.WorkerID == "" {
		hostname, _ := os.Hostname()
		cfg.WorkerID = fmt.Sprintf("%s-%d", hostname, os.Getpid())
	}

	return &Engine{
		repo:         repo,
		handlers:     make(map[models.JobType]Handler),
		workerID:     cfg.WorkerID,
		pollInterval: cfg.PollInterval,
		sweepPeriod:  cfg.SweepPeriod,
		leaseMaxAge:  cfg.LeaseMaxAge,
		stopCh:       make(chan struct{}),
		metrics:      metrics,
	}
}

// Register attaches a handler for the job types it declares.
func (e *Engine) Register(h Handler) {
	e.handlers[h.JobType()] = h
}

// Start launches the poll loop and the janitor sweep as background goroutines.
func (e *Engine) Start(ctx context.Context) {
	jobTypes := make([]models.JobType, 0, len(e.handlers))
	for t := range e.handlers {
		jobTypes = append(jobTypes, t)
	}
	log.Printf("[queue] starting engine worker=%s types=%v", e.workerID, jobTypes)

	go e.pollLoop(ctx, jobTypes)
	go e.sweepLoop(ctx)
}

// Stop signals both loops to exit.
func (e *Engine) Stop() {
	close(e.stopCh)
}

func (e *Engine) pollLoop(ctx context.Context, jobTypes []models.JobType) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[queue] poll loop stopping")
			return
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.tryLeaseAndProcess(ctx, jobTypes)
		}
	}
}

func (e *Engine) tryLeaseAndProcess(ctx context.Context, jobTypes []models.JobType) {
	if len(jobTypes) == 0 {
		return
	}

	job, err := e.repo.LeaseNextJob(ctx, jobTypes, e.workerID)
	if err != nil {
		log.Printf("[queue] lease error: %v", err)
		return
	}
	if job == nil {
		return
	}

	handler, ok := e.handlers[job.JobType]
	if !ok {
		log.Printf("[queue] no handler for job %d type %s, failing", job.ID, job.JobType)
		if err := e.repo.FailJob(ctx, job.ID, "no handler registered"); err != nil {
			log.Printf("[queue] failed to mark unhandled job %d failed: %v", job.ID, err)
		}
		return
	}

	log.Printf("[queue] leased job %d type=%s contract=%v attempt=%d", job.ID, job.JobType, job.ContractID, job.Attempts+1)
	e.metrics.Counter("jobs_leased_total").Inc()
	e.metrics.Counter("jobs_leased_" + string(job.JobType)).Inc()

	if err := handler.HandleJob(ctx, job); err != nil {
		log.Printf("[queue] job %d failed: %v", job.ID, err)
		e.metrics.Counter("jobs_failed_total").Inc()
		if ferr := e.repo.FailJob(ctx, job.ID, err.Error()); ferr != nil {
			log.Printf("[queue] failed to record failure for job %d: %v", job.ID, ferr)
		}
		return
	}

	if err := e.repo.CompleteJob(ctx, job.ID); err != nil {
		log.Printf("[queue] failed to mark job %d completed: %v", job.ID, err)
		return
	}
	e.metrics.Counter("jobs_completed_total").Inc()
	log.Printf("[queue] completed job %d", job.ID)
}

func (e *Engine) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(e.sweepPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[queue] sweep loop stopping")
			return
		case <-e.stopCh:
			return
		case <-ticker.C:
			n, err := e.repo.SweepStuckJobs(ctx, e.leaseMaxAge)
			if err != nil {
				log.Printf("[queue] sweep error: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[queue] reclaimed %d stuck job(s)", n)
			}
		}
	}
}
