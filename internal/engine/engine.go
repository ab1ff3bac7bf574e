package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/IshaanNene/newsharvest/internal/config"
	"github.com/IshaanNene/newsharvest/internal/fetcher"
	"github.com/IshaanNene/newsharvest/internal/parser"
	"github.com/IshaanNene/newsharvest/internal/pipeline"
	"github.com/IshaanNene/newsharvest/internal/site"
	"github.com/IshaanNene/newsharvest/internal/types"
)

// Store is the persistence gateway the engine writes enriched articles to.
type Store interface {
	Save(ctx context.Context, a *types.Article) error
}

// Publisher is notified after an article has been saved.
type Publisher interface {
	Publish(ctx context.Context, a *types.Article) error
}

// Stats tracks crawl statistics for one site.
type Stats struct {
	Cycles               atomic.Int64
	CategoriesDiscovered atomic.Int64
	CategoriesAborted    atomic.Int64
	PagesVisited         atomic.Int64
	ArticlesDiscovered   atomic.Int64
	ArticlesEnriched     atomic.Int64
	EnrichFailures       atomic.Int64
	ArticlesSaved        atomic.Int64
	SaveFailures         atomic.Int64
	PublishFailures      atomic.Int64
	ActiveEnrichments    atomic.Int32
}

// Snapshot returns a copy of stats safe for reading.
func (s *Stats) Snapshot() map[string]int64 {
	return map[string]int64{
		"cycles":                s.Cycles.Load(),
		"categories_discovered": s.CategoriesDiscovered.Load(),
		"categories_aborted":    s.CategoriesAborted.Load(),
		"pages_visited":         s.PagesVisited.Load(),
		"articles_discovered":   s.ArticlesDiscovered.Load(),
		"articles_enriched":     s.ArticlesEnriched.Load(),
		"enrich_failures":       s.EnrichFailures.Load(),
		"articles_saved":        s.ArticlesSaved.Load(),
		"save_failures":         s.SaveFailures.Load(),
		"publish_failures":      s.PublishFailures.Load(),
		"active_enrichments":    int64(s.ActiveEnrichments.Load()),
	}
}

// CycleReport summarises one full crawl of a site.
type CycleReport struct {
	ID             string
	Source         types.Source
	Categories     int
	Articles       int
	Enriched       int64
	EnrichFailures int64
	Saved          int64
	SaveFailures   int64
	Duration       time.Duration
}

// Engine crawls one site: it discovers categories, pages through their listings,
// enriches every newly seen article and saves it.
type Engine struct {
	site      *site.Site
	cfg       config.CrawlerConfig
	fetcher   fetcher.Fetcher
	renderer  fetcher.Renderer
	store     Store
	publisher Publisher
	pipeline  *pipeline.Pipeline
	loc       *time.Location
	now       func() time.Time
	logger    *slog.Logger
	stats     *Stats

	// enrichSlots bounds enrichments across all categories, not just within one page.
	enrichSlots *semaphore.Weighted
}

// Option configures an Engine.
type Option func(*Engine)

// WithPublisher announces every saved article.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine for s. The static fetcher serves category discovery and
// numbered listings; the renderer serves load-more listings and article pages.
func New(s *site.Site, cfg config.CrawlerConfig, f fetcher.Fetcher, r fetcher.Renderer, store Store, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if cfg.MaxDegreeOfParallelism < 1 {
		return nil, &types.ConfigError{
			Field: "crawler.max_degree_of_parallelism",
			Err:   fmt.Errorf("must be >= 1, got %d", cfg.MaxDegreeOfParallelism),
		}
	}
	if cfg.NumberOfCrawlingDays < 1 {
		return nil, &types.ConfigError{
			Field: "crawler.number_of_crawling_days",
			Err:   fmt.Errorf("must be >= 1, got %d", cfg.NumberOfCrawlingDays),
		}
	}
	if s == nil || f == nil || r == nil || store == nil {
		return nil, errors.New("engine requires a site, fetcher, renderer and store")
	}
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 100
	}

	loc, err := time.LoadLocation(cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", cfg.Location, err)
	}

	candidates, err := pipeline.ForSite(s.Root, logger.With("source", string(s.Source)))
	if err != nil {
		return nil, err
	}

	e := &Engine{
		site:        s,
		cfg:         cfg,
		fetcher:     f,
		renderer:    r,
		store:       store,
		pipeline:    candidates,
		loc:         loc,
		now:         time.Now,
		logger:      logger.With("component", "engine", "source", string(s.Source)),
		stats:       &Stats{},
		enrichSlots: semaphore.NewWeighted(int64(cfg.MaxDegreeOfParallelism)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Source returns the site this engine crawls.
func (e *Engine) Source() types.Source { return e.site.Source }

// Stats returns the live crawl statistics.
func (e *Engine) Stats() *Stats { return e.stats }

// Snapshot returns the current crawl counters.
func (e *Engine) Snapshot() map[string]int64 { return e.stats.Snapshot() }

// window is the freshness window as of now.
func (e *Engine) window() site.Window {
	return site.NewWindow(e.now().In(e.loc), e.cfg.NumberOfCrawlingDays)
}

// DiscoverCategories reads the site's top navigation. Any failure yields an
// empty result and a warning; the cycle then simply does nothing for this site.
func (e *Engine) DiscoverCategories(ctx context.Context) []string {
	content, err := e.fetcher.Fetch(ctx, e.site.Root)
	if err != nil {
		e.logger.Warn("category discovery failed", "url", e.site.Root, "error", err)
		return nil
	}

	doc, err := parser.NewDocument(content, e.site.Root)
	if err != nil {
		e.logger.Warn("category discovery failed", "url", e.site.Root, "error", err)
		return nil
	}

	categories, err := e.site.ExtractCategories(doc)
	if err != nil {
		e.logger.Warn("navigation region not found", "url", e.site.Root, "error", err)
		return nil
	}

	e.stats.CategoriesDiscovered.Add(int64(len(categories)))
	e.logger.Info("categories discovered", "count", len(categories))
	return categories
}

// RunCycle performs one full crawl: discovery, then every category in parallel
// sharing one fresh ArticleSet.
func (e *Engine) RunCycle(ctx context.Context) CycleReport {
	start := e.now()
	report := CycleReport{ID: uuid.NewString(), Source: e.site.Source}
	logger := e.logger.With("cycle_id", report.ID)
	logger.Info("crawl cycle starting")
	before := e.stats.Snapshot()

	categories := e.DiscoverCategories(ctx)
	report.Categories = len(categories)

	seen := NewArticleSet()
	RunBounded(ctx, categories, e.cfg.MaxDegreeOfParallelism, func(ctx context.Context, category string) {
		articles := e.CrawlCategory(ctx, seen, category)
		logger.Debug("category done", "category", category, "articles", len(articles))
	})

	after := e.stats.Snapshot()
	report.Articles = seen.Len()
	report.Enriched = after["articles_enriched"] - before["articles_enriched"]
	report.EnrichFailures = after["enrich_failures"] - before["enrich_failures"]
	report.Saved = after["articles_saved"] - before["articles_saved"]
	report.SaveFailures = after["save_failures"] - before["save_failures"]
	report.Duration = e.now().Sub(start)
	e.stats.Cycles.Add(1)

	logger.Info("crawl cycle complete",
		"categories", report.Categories,
		"articles", report.Articles,
		"enriched", report.Enriched,
		"enrich_failures", report.EnrichFailures,
		"saved", report.Saved,
		"save_failures", report.SaveFailures,
		"duration", report.Duration,
	)
	return report
}
