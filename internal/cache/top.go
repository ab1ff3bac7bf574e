package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/newsharvest/internal/types"
)

// Querier answers top-liked queries. storage.ArticleStore satisfies it.
type Querier interface {
	QueryTop(ctx context.Context, top, days int, source types.Source) ([]types.Article, error)
}

// TopCache serves QueryTop results from a Cache for ttl before asking the store again.
// Cache failures fall through to the store.
type TopCache struct {
	next   Querier
	cache  Cache
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
	logger *slog.Logger
}

// NewTopCache wraps next with c.
func NewTopCache(next Querier, c Cache, ttl time.Duration, logger *slog.Logger) *TopCache {
	return &TopCache{
		next:   next,
		cache:  c,
		ttl:    ttl,
		logger: logger.With("component", "top_cache"),
	}
}

func topKey(top, days int, source types.Source) string {
	src := string(source)
	if src == "" {
		src = "all"
	}
	return fmt.Sprintf("top:%s:%d:%d", src, top, days)
}

func (t *TopCache) QueryTop(ctx context.Context, top, days int, source types.Source) ([]types.Article, error) {
	key := topKey(top, days, source)

	raw, ok, err := t.cache.Get(ctx, key)
	if err != nil {
		t.logger.Warn("cache read failed", "key", key, "error", err)
	}
	if ok {
		var cached []types.Article
		if err := json.Unmarshal(raw, &cached); err == nil {
			t.hits.Add(1)
			return cached, nil
		}
		t.logger.Warn("discarding undecodable cache entry", "key", key)
	}

	t.misses.Add(1)
	result, err := t.next.QueryTop(ctx, top, days, source)
	if err != nil {
		return nil, err
	}

	if body, err := json.Marshal(result); err == nil {
		if err := t.cache.Set(ctx, key, body, t.ttl); err != nil {
			t.logger.Warn("cache write failed", "key", key, "error", err)
		}
	}
	return result, nil
}

// Hits returns the number of queries answered from the cache.
func (t *TopCache) Hits() int64 { return t.hits.Load() }

// Misses returns the number of queries that reached the store.
func (t *TopCache) Misses() int64 { return t.misses.Load() }
