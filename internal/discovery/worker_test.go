package discovery

import (
	"testing"
	"time"

	"github.com/medfata/inkscore-sub000/internal/models"
	"github.com/medfata/inkscore-sub000/internal/rpc"
)

func testRPCClient(t *testing.T) *rpc.Client {
	t.Helper()
	pool, err := rpc.NewPool([]string{"http://127.0.0.1:0"}, 20, time.Second)
	if err != nil {
		t.Fatalf("build pool: %v", err)
	}
	return rpc.NewClient(pool)
}

func TestNewWorker_Defaults(t *testing.T) {
	w := NewWorker(nil, testRPCClient(t), nil, nil, Config{})
	if w.cfg.MinWindow != 10_000 {
		t.Fatalf("expected default min window 10000, got %d", w.cfg.MinWindow)
	}
	if w.cfg.MaxWindow != 50_000 {
		t.Fatalf("expected default max window 50000, got %d", w.cfg.MaxWindow)
	}
	if w.cfg.ReorgMargin != 16 {
		t.Fatalf("expected default reorg margin 16, got %d", w.cfg.ReorgMargin)
	}
	if w.cfg.PageSize != 1000 {
		t.Fatalf("expected default page size 1000, got %d", w.cfg.PageSize)
	}
	if w.window != w.cfg.MinWindow {
		t.Fatalf("expected initial window to start at min, got %d", w.window)
	}
}

func TestAdjustWindow_GrowsWhenHealthy(t *testing.T) {
	w := &Worker{
		rpc:    testRPCClient(t),
		cfg:    Config{MinWindow: 1000, MaxWindow: 8000},
		window: 1000,
	}
	// A freshly built rpc.Client reports a 0 error rate, so the window
	// should double on each healthy tick up to the configured max.
	w.adjustWindow()
	if w.window != 2000 {
		t.Fatalf("expected window to double to 2000, got %d", w.window)
	}
	w.adjustWindow()
	if w.window != 4000 {
		t.Fatalf("expected window to double to 4000, got %d", w.window)
	}
	w.adjustWindow()
	if w.window != 8000 {
		t.Fatalf("expected window to double to 8000, got %d", w.window)
	}
	w.adjustWindow()
	if w.window != 8000 {
		t.Fatalf("expected window to stay capped at max 8000, got %d", w.window)
	}
}

func TestBackfillHandler_JobType(t *testing.T) {
	h := BackfillHandler{Worker: &Worker{}}
	if h.JobType() != models.JobBackfill {
		t.Fatalf("expected JobBackfill, got %v", h.JobType())
	}
}
