package gapfill

import (
	"testing"
	"time"

	"github.com/medfata/inkscore-sub000/internal/obsv"
)

func TestNewWorker_Defaults(t *testing.T) {
	w := NewWorker(nil, obsv.NewRegistry(), Config{})
	if w.cfg.PollPeriod != 60*time.Second {
		t.Fatalf("expected default poll period of 60s, got %v", w.cfg.PollPeriod)
	}
	if w.cfg.HighWater != 500 {
		t.Fatalf("expected default high water of 500, got %d", w.cfg.HighWater)
	}
	if w.cfg.WindowSize != 10_000 {
		t.Fatalf("expected default window size of 10000, got %d", w.cfg.WindowSize)
	}
	if w.cfg.RealtimeAge != 5*time.Minute {
		t.Fatalf("expected default realtime age of 5m, got %v", w.cfg.RealtimeAge)
	}
}

func TestNewWorker_ExplicitConfigPreserved(t *testing.T) {
	cfg := Config{
		PollPeriod:  10 * time.Second,
		HighWater:   50,
		WindowSize:  2_000,
		RealtimeAge: time.Minute,
		DryRun:      true,
	}
	w := NewWorker(nil, obsv.NewRegistry(), cfg)
	if w.cfg != cfg {
		t.Fatalf("expected explicit config to be preserved unchanged, got %+v", w.cfg)
	}
}
