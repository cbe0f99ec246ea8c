package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestResponseCache_GetSetNeverExpiresPassively(t *testing.T) {
	c := &responseCache{entries: make(map[string]*cacheEntry)}
	c.set("key", []byte(`{"a":1}`))

	body, computedAt, ok := c.get("key")
	if !ok || string(body) != `{"a":1}` {
		t.Fatalf("expected cached body, got %q ok=%v", body, ok)
	}
	if computedAt.IsZero() {
		t.Fatal("expected a non-zero computed timestamp")
	}

	time.Sleep(10 * time.Millisecond)
	if _, _, ok := c.get("key"); !ok {
		t.Fatal("expected entry to remain cached with no TTL")
	}
}

func TestCachedHandler_CachesSuccessfulResponses(t *testing.T) {
	apiCache.entries = make(map[string]*cacheEntry) // isolate from other tests sharing the package-level cache

	calls := 0
	handler := cachedHandler(time.Minute, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"hit":false}`))
	})

	req := httptest.NewRequest("GET", "/x/dashboard?wallet=abc", nil)

	rec1 := httptest.NewRecorder()
	handler(rec1, req)
	if calls != 1 {
		t.Fatalf("expected handler invoked once, got %d", calls)
	}

	rec2 := httptest.NewRecorder()
	handler(rec2, req)
	if calls != 1 {
		t.Fatalf("expected second request to be served from cache, handler called %d times", calls)
	}
	if rec2.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("expected X-Cache: HIT, got %q", rec2.Header().Get("X-Cache"))
	}
	if rec2.Body.String() != `{"hit":false}` {
		t.Fatalf("expected cached body to match original response, got %q", rec2.Body.String())
	}
}

func TestCachedHandler_DoesNotCacheErrors(t *testing.T) {
	apiCache.entries = make(map[string]*cacheEntry)

	calls := 0
	handler := cachedHandler(time.Minute, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	})

	req := httptest.NewRequest("GET", "/x/dashboard?wallet=def", nil)
	handler(httptest.NewRecorder(), req)
	handler(httptest.NewRecorder(), req)

	if calls != 2 {
		t.Fatalf("expected both error responses to bypass the cache, handler called %d times", calls)
	}
}

func TestCachedHandler_ForceRefreshDeniedWithinCooldown(t *testing.T) {
	apiCache.entries = make(map[string]*cacheEntry)

	calls := 0
	handler := cachedHandler(time.Minute, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"n":1}`))
	})

	plain := httptest.NewRequest("GET", "/x/dashboard?wallet=ghi", nil)
	handler(httptest.NewRecorder(), plain)
	if calls != 1 {
		t.Fatalf("expected first request to compute, got %d calls", calls)
	}

	refreshReq := httptest.NewRequest("GET", "/x/dashboard?wallet=ghi&refresh=true", nil)
	rec := httptest.NewRecorder()
	handler(rec, refreshReq)
	if calls != 1 {
		t.Fatalf("expected force-refresh within cooldown to be denied, got %d calls", calls)
	}
	if rec.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("expected denied force-refresh to still serve cached body, got X-Cache=%q", rec.Header().Get("X-Cache"))
	}
}

func TestCachedHandler_ForceRefreshAllowedAfterCooldown(t *testing.T) {
	apiCache.entries = make(map[string]*cacheEntry)

	calls := 0
	handler := cachedHandler(10*time.Millisecond, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"n":1}`))
	})

	plain := httptest.NewRequest("GET", "/x/dashboard?wallet=jkl", nil)
	handler(httptest.NewRecorder(), plain)
	if calls != 1 {
		t.Fatalf("expected first request to compute, got %d calls", calls)
	}

	time.Sleep(20 * time.Millisecond)

	refreshReq := httptest.NewRequest("GET", "/x/dashboard?wallet=jkl&refresh=true", nil)
	handler(httptest.NewRecorder(), refreshReq)
	if calls != 2 {
		t.Fatalf("expected force-refresh past cooldown to recompute, got %d calls", calls)
	}
}

func TestWantsForceRefresh(t *testing.T) {
	cases := map[string]bool{
		"":              false,
		"refresh=0":     false,
		"refresh=false": false,
		"refresh=1":     true,
		"refresh=true":  true,
		"refresh=yes":   true,
		"other=param":   false,
	}
	for query, want := range cases {
		req := httptest.NewRequest("GET", "/x?"+query, nil)
		if got := wantsForceRefresh(req); got != want {
			t.Errorf("wantsForceRefresh(%q) = %v, want %v", query, got, want)
		}
	}
}
