package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/IshaanNene/newsharvest/internal/types"
)

// MemoryStore keeps articles in a map keyed by href.
// It backs tests and the storage.type=memory mode.
type MemoryStore struct {
	mu       sync.RWMutex
	articles map[string]types.Article
	now      func() time.Time
	logger   *slog.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		articles: make(map[string]types.Article),
		now:      time.Now,
		logger:   logger.With("component", "memory_storage"),
	}
}

// WithClock replaces the time source used for UpdatedTime and query windows.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Save(ctx context.Context, a *types.Article) error {
	if err := ctx.Err(); err != nil {
		return &types.StorageError{Backend: s.Name(), Op: "save", Err: err}
	}

	rec := *a
	rec.UpdatedTime = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.articles[a.Href]; ok {
		rec.ID = prev.ID
	} else if rec.ID == "" {
		rec.ID = a.Href
	}
	s.articles[a.Href] = rec
	return nil
}

func (s *MemoryStore) QueryTop(ctx context.Context, top, days int, source types.Source) ([]types.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Op: "query_top", Err: err}
	}
	if top < 1 {
		return []types.Article{}, nil
	}
	from := windowStart(s.now(), days)

	s.mu.RLock()
	result := make([]types.Article, 0, len(s.articles))
	for _, a := range s.articles {
		if source != "" && a.Source != source {
			continue
		}
		if a.PublishedTime.Before(from) {
			continue
		}
		result = append(result, a)
	}
	s.mu.RUnlock()

	rankByLikes(result)
	if len(result) > top {
		result = result[:top]
	}
	return result, nil
}

// Get returns the stored record for href.
func (s *MemoryStore) Get(href string) (types.Article, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.articles[href]
	return a, ok
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.articles)
}

func (s *MemoryStore) Close() error {
	s.logger.Info("memory storage closing", "total_articles", s.Len())
	return nil
}
