package obsv

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounter_IncAndAdd(t *testing.T) {
	r := NewRegistry()
	c := r.Counter("requests_total")
	c.Inc()
	c.Add(4)
	if got := c.Value(); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}

	// Fetching by name again returns the same underlying counter.
	if got := r.Counter("requests_total").Value(); got != 5 {
		t.Fatalf("expected shared counter to read 5, got %d", got)
	}
}

func TestGauge_SetAndRead(t *testing.T) {
	r := NewRegistry()
	g := r.Gauge("error_rate")
	g.Set(0.375)
	if got := g.Value(); got != 0.375 {
		t.Fatalf("expected 0.375, got %v", got)
	}
}

func TestRegistry_HandlerRendersSortedMetrics(t *testing.T) {
	r := NewRegistry()
	r.Counter("zeta").Inc()
	r.Counter("alpha").Add(3)
	r.Gauge("ratio").Set(1.5)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	r.Handler()(rec, req)

	body := rec.Body.String()
	alphaIdx := strings.Index(body, "alpha")
	zetaIdx := strings.Index(body, "zeta")
	if alphaIdx == -1 || zetaIdx == -1 || alphaIdx > zetaIdx {
		t.Fatalf("expected counters sorted alphabetically, got:\n%s", body)
	}
	if !strings.Contains(body, "ratio 1.500") {
		t.Fatalf("expected gauge rendered at 3 decimal places, got:\n%s", body)
	}
}
