package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/IshaanNene/newsharvest/internal/config"
	"github.com/IshaanNene/newsharvest/internal/observability"
	"github.com/IshaanNene/newsharvest/internal/types"
)

// Querier answers top-liked queries.
type Querier interface {
	QueryTop(ctx context.Context, top, days int, source types.Source) ([]types.Article, error)
}

// StatsProvider exposes the crawl counters of one running site.
type StatsProvider interface {
	Source() types.Source
	Snapshot() map[string]int64
}

// Server provides the read-only query API over harvested articles.
type Server struct {
	mux     *http.ServeMux
	cfg     config.APIConfig
	store   Querier
	metrics *observability.Metrics
	logger  *slog.Logger

	providers   []StatsProvider
	providersMu sync.RWMutex
}

// NewServer creates a new API server. metrics may be nil.
func NewServer(cfg config.APIConfig, store Querier, metrics *observability.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		cfg:     cfg,
		store:   store,
		metrics: metrics,
		logger:  logger.With("component", "api_server"),
	}

	s.registerRoutes()
	return s
}

// AddStats makes a running site's counters visible under /api/stats.
func (s *Server) AddStats(p StatsProvider) {
	s.providersMu.Lock()
	defer s.providersMu.Unlock()
	s.providers = append(s.providers, p)
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler { return s.mux }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("API server starting", "addr", srv.Addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("API server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) registerRoutes() {
	// Health
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Queries
	s.mux.HandleFunc("GET /articles/top-likes", s.handleTopLikes)

	// Stats
	s.mux.HandleFunc("GET /api/stats", s.handleStats)

	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

func (s *Server) handleTopLikes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	source, err := types.ParseSource(q.Get("source"))
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	top, err := positiveInt(q.Get("top"), s.cfg.DefaultTop)
	if err != nil {
		s.badRequest(w, "top: "+err.Error())
		return
	}
	if s.cfg.MaxTop > 0 && top > s.cfg.MaxTop {
		top = s.cfg.MaxTop
	}
	days, err := positiveInt(q.Get("days"), s.cfg.DefaultDays)
	if err != nil {
		s.badRequest(w, "days: "+err.Error())
		return
	}

	if s.metrics != nil {
		s.metrics.QueriesTotal.Add(1)
	}

	articles, err := s.store.QueryTop(r.Context(), top, days, source)
	if err != nil {
		if s.metrics != nil {
			s.metrics.QueriesFailed.Add(1)
		}
		s.logger.Error("top-likes query failed", "source", source, "top", top, "days", days, "error", err)
		s.jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}
	if articles == nil {
		articles = []types.Article{}
	}
	s.jsonResponse(w, http.StatusOK, articles)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.providersMu.RLock()
	defer s.providersMu.RUnlock()

	out := make(map[string]map[string]int64, len(s.providers))
	for _, p := range s.providers {
		out[string(p.Source())] = p.Snapshot()
	}
	s.jsonResponse(w, http.StatusOK, out)
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	if s.metrics != nil {
		s.metrics.BadRequests.Add(1)
	}
	s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func positiveInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("must be >= 1, got %d", n)
	}
	return n, nil
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
