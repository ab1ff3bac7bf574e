package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/IshaanNene/newsharvest/internal/config"
	"github.com/IshaanNene/newsharvest/internal/types"
)

// ArticleStore is the persistence gateway for harvested articles.
// Records are keyed by href: Save inserts or overwrites, never duplicates.
type ArticleStore interface {
	// Save upserts a by href and stamps UpdatedTime with the current time.
	// The caller's article is not modified.
	Save(ctx context.Context, a *types.Article) error

	// QueryTop returns up to top articles published within the last days days,
	// ordered by TotalLikes descending. An empty source matches every source.
	QueryTop(ctx context.Context, top, days int, source types.Source) ([]types.Article, error)

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// New opens the backend selected by cfg.Type. When cfg.JSONLPath is set every
// save is also appended to that file.
func New(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (ArticleStore, error) {
	var primary ArticleStore
	switch cfg.Type {
	case "mongo":
		s, err := NewMongoStore(ctx, cfg.MongoURI, cfg.Database, cfg.Collection, logger)
		if err != nil {
			return nil, err
		}
		primary = s
	case "memory":
		primary = NewMemoryStore(logger)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}

	if cfg.JSONLPath == "" {
		return primary, nil
	}

	journal, err := NewJSONLJournal(cfg.JSONLPath, logger)
	if err != nil {
		primary.Close()
		return nil, err
	}
	return NewMultiStore(primary, []Sink{journal}, logger), nil
}

// windowStart is the earliest publish time QueryTop accepts.
func windowStart(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}

// rankByLikes sorts in place by likes descending, then href so equal scores keep a fixed order.
func rankByLikes(articles []types.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		if articles[i].TotalLikes != articles[j].TotalLikes {
			return articles[i].TotalLikes > articles[j].TotalLikes
		}
		return articles[i].Href < articles[j].Href
	})
}
