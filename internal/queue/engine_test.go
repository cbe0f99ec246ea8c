package queue

import (
	"context"
	"testing"
	"time"

	"github.com/medfata/inkscore-sub000/internal/models"
	"github.com/medfata/inkscore-sub000/internal/obsv"
)

type fakeHandler struct{ jobType models.JobType }

func (f fakeHandler) HandleJob(ctx context.Context, job *models.Job) error { return nil }
func (f fakeHandler) JobType() models.JobType                             { return f.jobType }

func TestNewEngine_Defaults(t *testing.T) {
	e := NewEngine(nil, obsv.NewRegistry(), Config{})
	if e.pollInterval != time.Second {
		t.Fatalf("expected default poll interval of 1s, got %v", e.pollInterval)
	}
	if e.sweepPeriod != 15*time.Second {
		t.Fatalf("expected default sweep period of 15s, got %v", e.sweepPeriod)
	}
	if e.leaseMaxAge != 10*time.Minute {
		t.Fatalf("expected default lease max age of 10m, got %v", e.leaseMaxAge)
	}
	if e.workerID == "" {
		t.Fatal("expected a generated worker ID")
	}
}

func TestNewEngine_ExplicitConfig(t *testing.T) {
	e := NewEngine(nil, obsv.NewRegistry(), Config{
		PollInterval: 5 * time.Second,
		SweepPeriod:  30 * time.Second,
		LeaseMaxAge:  time.Minute,
		WorkerID:     "worker-1",
	})
	if e.pollInterval != 5*time.Second || e.sweepPeriod != 30*time.Second || e.leaseMaxAge != time.Minute {
		t.Fatal("expected explicit config values to be honored")
	}
	if e.workerID != "worker-1" {
		t.Fatalf("expected worker-1, got %s", e.workerID)
	}
}

func TestEngine_RegisterTracksHandlerByJobType(t *testing.T) {
	e := NewEngine(nil, obsv.NewRegistry(), Config{})
	e.Register(fakeHandler{jobType: models.JobDiscover})
	e.Register(fakeHandler{jobType: models.JobEnrich})

	if _, ok := e.handlers[models.JobDiscover]; !ok {
		t.Fatal("expected discover handler registered")
	}
	if _, ok := e.handlers[models.JobEnrich]; !ok {
		t.Fatal("expected enrich handler registered")
	}
	if len(e.handlers) != 2 {
		t.Fatalf("expected exactly 2 registered handlers, got %d", len(e.handlers))
	}
}
