package observability

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics(testLogger())
	m.QueriesTotal.Add(3)
	m.ObserveCache(func() (int64, int64) { return 7, 1 })
	m.Register("vnexpress", func() map[string]int64 {
		return map[string]int64{"articles_saved": 12, "active_enrichments": 2}
	})
	m.Register("tuoitre", func() map[string]int64 {
		return map[string]int64{"articles_saved": 5, "active_enrichments": 0}
	})

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		"newsharvest_queries_total 3\n",
		"newsharvest_cache_hits_total 7\n",
		"# TYPE newsharvest_articles_saved_total counter\n",
		`newsharvest_articles_saved_total{source="tuoitre"} 5` + "\n",
		`newsharvest_articles_saved_total{source="vnexpress"} 12` + "\n",
		"# TYPE newsharvest_active_enrichments gauge\n",
		`newsharvest_active_enrichments{source="vnexpress"} 2` + "\n",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in:\n%s", want, body)
		}
	}

	if strings.Index(body, `{source="tuoitre"} 5`) > strings.Index(body, `{source="vnexpress"} 12`) {
		t.Error("sources should be listed in sorted order")
	}
	if n := strings.Count(body, "# TYPE newsharvest_articles_saved_total"); n != 1 {
		t.Errorf("expected one TYPE line per metric, got %d", n)
	}
}

func TestMetricsHandlerHealth(t *testing.T) {
	h := NewMetrics(testLogger()).Handler("/metrics")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
}
