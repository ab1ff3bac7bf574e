package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// SnapshotFunc returns the current value of a set of named counters.
type SnapshotFunc func() map[string]int64

// Metrics exposes process counters and per-source crawl statistics
// in Prometheus text exposition format.
type Metrics struct {
	// Query API metrics
	QueriesTotal  atomic.Int64
	QueriesFailed atomic.Int64
	BadRequests   atomic.Int64

	mu         sync.RWMutex
	sources    map[string]SnapshotFunc
	cacheStats func() (hits, misses int64)

	logger *slog.Logger
}

// gauges are reported as current values rather than monotonically increasing counters.
var gauges = map[string]bool{
	"active_enrichments": true,
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		sources: make(map[string]SnapshotFunc),
		logger:  logger.With("component", "metrics"),
	}
}

// Register adds a per-source snapshot. Each key becomes newsharvest_<key>{source="..."}.
// Registering a source twice replaces the earlier snapshot.
func (m *Metrics) Register(source string, fn SnapshotFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[source] = fn
}

// ObserveCache reports query cache hits and misses from fn.
func (m *Metrics) ObserveCache(fn func() (hits, misses int64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheStats = fn
}

func (m *Metrics) cacheCounts() (hits, misses int64) {
	m.mu.RLock()
	fn := m.cacheStats
	m.mu.RUnlock()
	if fn == nil {
		return 0, 0
	}
	return fn()
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	hits, misses := m.cacheCounts()

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"newsharvest_queries_total", "Total top-liked queries served", m.QueriesTotal.Load()},
		{"newsharvest_queries_failed_total", "Total top-liked queries that failed in the store", m.QueriesFailed.Load()},
		{"newsharvest_bad_requests_total", "Total rejected query requests", m.BadRequests.Load()},
		{"newsharvest_cache_hits_total", "Total queries answered from cache", hits},
		{"newsharvest_cache_misses_total", "Total queries that missed the cache", misses},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}

	m.writeSources(w)
}

func (m *Metrics) writeSources(w http.ResponseWriter) {
	m.mu.RLock()
	snaps := make(map[string]map[string]int64, len(m.sources))
	for src, fn := range m.sources {
		snaps[src] = fn()
	}
	m.mu.RUnlock()

	sources := make([]string, 0, len(snaps))
	keySet := make(map[string]bool)
	for src, snap := range snaps {
		sources = append(sources, src)
		for k := range snap {
			keySet[k] = true
		}
	}
	sort.Strings(sources)
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		name := "newsharvest_" + key
		kind := "gauge"
		if !gauges[key] {
			kind = "counter"
			name += "_total"
		}
		fmt.Fprintf(w, "# HELP %s Crawler %s per source\n", name, strings.ReplaceAll(key, "_", " "))
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		for _, src := range sources {
			if v, ok := snaps[src][key]; ok {
				fmt.Fprintf(w, "%s{source=%q} %d\n", name, src, v)
			}
		}
	}
}

// Handler returns a mux serving metrics at path and a plain /health check.
func (m *Metrics) Handler(path string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	return mux
}

// StartServer starts the metrics HTTP server.
func (m *Metrics) StartServer(port int, path string) error {
	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, m.Handler(path)); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Snapshot returns the process-level metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	hits, misses := m.cacheCounts()
	return map[string]int64{
		"queries_total":  m.QueriesTotal.Load(),
		"queries_failed": m.QueriesFailed.Load(),
		"bad_requests":   m.BadRequests.Load(),
		"cache_hits":     hits,
		"cache_misses":   misses,
	}
}
