// Package obsv is a minimal in-process counter/gauge registry exposed as
// plain text at GET /metrics. It deliberately avoids a third-party metrics
// client: the teacher repo carries none, and no other example repo's
// dependency fits a single-process counter registry better than a dozen
// lines of mutex-guarded maps.
package obsv

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
)

// Registry holds named counters and gauges. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]*int64
	gauges   map[string]*int64 // stored as fixed-point millis for float gauges
}

func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[string]*int64),
		gauges:   make(map[string]*int64),
	}
}

// Counter returns the named counter, creating it at zero on first use.
func (r *Registry) Counter(name string) *Counter {
	r.mu.RLock()
	c, ok := r.counters[name]
	r.mu.RUnlock()
	if ok {
		return &Counter{v: c}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return &Counter{v: c}
	}
	var v int64
	r.counters[name] = &v
	return &Counter{v: &v}
}

// Gauge returns the named gauge, creating it at zero on first use. Values
// are stored as milli-units so a float-valued gauge (e.g. an error rate) can
// share the same atomic-int64 storage as integer gauges.
func (r *Registry) Gauge(name string) *Gauge {
	r.mu.RLock()
	g, ok := r.gauges[name]
	r.mu.RUnlock()
	if ok {
		return &Gauge{v: g}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.gauges[name]; ok {
		return &Gauge{v: g}
	}
	var v int64
	r.gauges[name] = &v
	return &Gauge{v: &v}
}

// Counter is a monotonically increasing named metric.
type Counter struct{ v *int64 }

func (c *Counter) Inc()           { atomic.AddInt64(c.v, 1) }
func (c *Counter) Add(n int64)    { atomic.AddInt64(c.v, n) }
func (c *Counter) Value() int64   { return atomic.LoadInt64(c.v) }

// Gauge is a point-in-time named metric, stored at milli-unit precision.
type Gauge struct{ v *int64 }

func (g *Gauge) Set(value float64)  { atomic.StoreInt64(g.v, int64(value*1000)) }
func (g *Gauge) Value() float64     { return float64(atomic.LoadInt64(g.v)) / 1000 }

// Handler renders every counter and gauge as plain text, one "name value"
// pair per line, sorted by name for a stable diff-friendly scrape output.
func (r *Registry) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		r.mu.RLock()
		defer r.mu.RUnlock()

		counterNames := make([]string, 0, len(r.counters))
		for name := range r.counters {
			counterNames = append(counterNames, name)
		}
		sort.Strings(counterNames)

		gaugeNames := make([]string, 0, len(r.gauges))
		for name := range r.gauges {
			gaugeNames = append(gaugeNames, name)
		}
		sort.Strings(gaugeNames)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, name := range counterNames {
			fmt.Fprintf(w, "%s %d\n", name, atomic.LoadInt64(r.counters[name]))
		}
		for _, name := range gaugeNames {
			fmt.Fprintf(w, "%s %.3f\n", name, float64(atomic.LoadInt64(r.gauges[name]))/1000)
		}
	}
}
