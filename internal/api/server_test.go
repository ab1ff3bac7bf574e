package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/IshaanNene/newsharvest/internal/config"
	"github.com/IshaanNene/newsharvest/internal/observability"
	"github.com/IshaanNene/newsharvest/internal/storage"
	"github.com/IshaanNene/newsharvest/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

var testNow = time.Date(2024, 3, 20, 3, 0, 0, 0, time.UTC)

func testAPIConfig() config.APIConfig {
	return config.DefaultConfig().API
}

func seededStore(t *testing.T) *storage.MemoryStore {
	t.Helper()
	s := storage.NewMemoryStore(testLogger()).WithClock(func() time.Time { return testNow })
	day := 24 * time.Hour
	seed := []struct {
		src   types.Source
		href  string
		likes int
		age   time.Duration
	}{
		{types.SourceVnExpress, "https://vnexpress.net/a.html", 40, day},
		{types.SourceVnExpress, "https://vnexpress.net/b.html", 90, 2 * day},
		{types.SourceVnExpress, "https://vnexpress.net/old.html", 900, 10 * day},
		{types.SourceTuoiTre, "https://tuoitre.vn/c.htm", 60, day},
	}
	for _, a := range seed {
		art := types.NewArticle(a.src, a.href, "T", "cat")
		art.TotalLikes = a.likes
		art.PublishedTime = testNow.Add(-a.age)
		if err := s.Save(context.Background(), art); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return s
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeArticles(t *testing.T, rec *httptest.ResponseRecorder) []types.Article {
	t.Helper()
	var out []types.Article
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestTopLikesDefaults(t *testing.T) {
	srv := NewServer(testAPIConfig(), seededStore(t), nil, testLogger())

	rec := get(t, srv.Handler(), "/articles/top-likes")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}

	got := decodeArticles(t, rec)
	if len(got) != 3 {
		t.Fatalf("expected 3 articles within 7 days, got %d", len(got))
	}
	want := []string{"https://vnexpress.net/b.html", "https://tuoitre.vn/c.htm", "https://vnexpress.net/a.html"}
	for i, href := range want {
		if got[i].Href != href {
			t.Errorf("result %d = %s, want %s", i, got[i].Href, href)
		}
	}
}

func TestTopLikesFilters(t *testing.T) {
	srv := NewServer(testAPIConfig(), seededStore(t), nil, testLogger())

	got := decodeArticles(t, get(t, srv.Handler(), "/articles/top-likes?source=vnexpress&top=1&days=7"))
	if len(got) != 1 || got[0].Href != "https://vnexpress.net/b.html" {
		t.Errorf("unexpected result: %+v", got)
	}

	got = decodeArticles(t, get(t, srv.Handler(), "/articles/top-likes?source=vnexpress&days=30"))
	if len(got) != 3 || got[0].TotalLikes != 900 {
		t.Errorf("30-day window should include the old article first: %+v", got)
	}

	got = decodeArticles(t, get(t, srv.Handler(), "/articles/top-likes?source=tuoitre&days=1"))
	if len(got) != 1 || got[0].Source != types.SourceTuoiTre {
		t.Errorf("unexpected tuoitre result: %+v", got)
	}
}

func TestTopLikesEmptyIsArray(t *testing.T) {
	srv := NewServer(testAPIConfig(), storage.NewMemoryStore(testLogger()), nil, testLogger())

	rec := get(t, srv.Handler(), "/articles/top-likes")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty JSON array, got %q", rec.Body.String())
	}
}

func TestTopLikesBadRequests(t *testing.T) {
	metrics := observability.NewMetrics(testLogger())
	srv := NewServer(testAPIConfig(), seededStore(t), metrics, testLogger())

	for _, target := range []string{
		"/articles/top-likes?source=dantri",
		"/articles/top-likes?top=abc",
		"/articles/top-likes?top=0",
		"/articles/top-likes?days=-3",
	} {
		rec := get(t, srv.Handler(), target)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, rec.Code)
		}
	}
	if metrics.BadRequests.Load() != 4 {
		t.Errorf("expected 4 bad requests counted, got %d", metrics.BadRequests.Load())
	}
	if metrics.QueriesTotal.Load() != 0 {
		t.Errorf("rejected requests must not reach the store")
	}
}

func TestTopLikesClampsTop(t *testing.T) {
	cfg := testAPIConfig()
	cfg.MaxTop = 2
	srv := NewServer(cfg, seededStore(t), nil, testLogger())

	got := decodeArticles(t, get(t, srv.Handler(), "/articles/top-likes?top=50"))
	if len(got) != 2 {
		t.Errorf("expected top clamped to 2, got %d", len(got))
	}
}

type failingQuerier struct{}

func (failingQuerier) QueryTop(ctx context.Context, top, days int, source types.Source) ([]types.Article, error) {
	return nil, errors.New("connection reset")
}

func TestTopLikesStoreFailure(t *testing.T) {
	metrics := observability.NewMetrics(testLogger())
	srv := NewServer(testAPIConfig(), failingQuerier{}, metrics, testLogger())

	rec := get(t, srv.Handler(), "/articles/top-likes")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection reset") {
		t.Error("store error details should not leak to clients")
	}
	if metrics.QueriesFailed.Load() != 1 {
		t.Errorf("expected 1 failed query, got %d", metrics.QueriesFailed.Load())
	}
}

type staticStats struct {
	src  types.Source
	snap map[string]int64
}

func (s staticStats) Source() types.Source       { return s.src }
func (s staticStats) Snapshot() map[string]int64 { return s.snap }

func TestHealthStatsAndMetrics(t *testing.T) {
	metrics := observability.NewMetrics(testLogger())
	srv := NewServer(testAPIConfig(), seededStore(t), metrics, testLogger())
	srv.AddStats(staticStats{types.SourceTuoiTre, map[string]int64{"articles_saved": 3}})

	rec := get(t, srv.Handler(), "/api/health")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("health: %d %s", rec.Code, rec.Body.String())
	}

	rec = get(t, srv.Handler(), "/api/stats")
	var stats map[string]map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats["tuoitre"]["articles_saved"] != 3 {
		t.Errorf("unexpected stats: %v", stats)
	}

	get(t, srv.Handler(), "/articles/top-likes")
	rec = get(t, srv.Handler(), "/metrics")
	if !strings.Contains(rec.Body.String(), "newsharvest_queries_total 1") {
		t.Errorf("metrics missing query count:\n%s", rec.Body.String())
	}
}

func TestPostNotAllowed(t *testing.T) {
	srv := NewServer(testAPIConfig(), seededStore(t), nil, testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/articles/top-likes", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
