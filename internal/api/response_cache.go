package api

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// responseCache caches computed API responses keyed by request path+query.
// Entries never expire on their own: a passive GET always serves whatever
// was last computed. Only an explicit "force refresh" request (see
// wantsForceRefresh) triggers a recompute, and even then cachedHandler
// throttles it to once per cooldown per key to avoid amplification.
type responseCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	body       []byte
	computedAt time.Time
}

var apiCache = &responseCache{
	entries: make(map[string]*cacheEntry),
}

// get returns the cached response bytes and when they were computed, if the
// key has ever been populated.
func (c *responseCache) get(key string) ([]byte, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, time.Time{}, false
	}
	return e.body, e.computedAt, true
}

// set stores a freshly computed response, stamped with the current time.
func (c *responseCache) set(key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &cacheEntry{
		body:       body,
		computedAt: time.Now(),
	}
}

// wantsForceRefresh reports whether the request explicitly asked to bypass
// the cached dashboard snapshot (?refresh=true, matching the read API's
// force-refresh contract).
func wantsForceRefresh(r *http.Request) bool {
	v := strings.ToLower(r.URL.Query().Get("refresh"))
	return v == "1" || v == "true" || v == "yes"
}

// cachedHandler wraps an http.Handler so its JSON response is served from
// cache on ordinary requests, and only recomputed when the cache is empty or
// a force-refresh request arrives at least cooldown after the last compute.
// The cache key is the request URL path + query string (excluding refresh,
// so a force-refresh hits the same entry as the plain request it refreshes).
func cachedHandler(cooldown time.Duration, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := cacheKey(r)
		force := wantsForceRefresh(r)

		if body, computedAt, ok := apiCache.get(key); ok {
			if !force || time.Since(computedAt) < cooldown {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Cache", "HIT")
				w.Write(body)
				return
			}
		}

		rec := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}
		handler(rec, r)

		if rec.statusCode >= 200 && rec.statusCode < 300 && len(rec.body) > 0 {
			apiCache.set(key, rec.body)
		}
	}
}

// cacheKey strips the refresh param from the query string so a plain request
// and its force-refresh equivalent share one cache entry.
func cacheKey(r *http.Request) string {
	q := r.URL.Query()
	q.Del("refresh")
	return r.URL.Path + "?" + q.Encode()
}

// responseRecorder captures the response body while still writing to the client.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       []byte
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body = append(r.body, b...)
	return r.ResponseWriter.Write(b)
}
