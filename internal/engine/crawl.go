package engine

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/IshaanNene/newsharvest/internal/parser"
	"github.com/IshaanNene/newsharvest/internal/types"
)

// CrawlCategory pages through one category's listing and returns the articles
// it discovered and enriched. seen is shared by every category of the run.
//
// Traversal stops at the page ceiling, on a page with no candidates, on a page
// whose candidates were all seen before, when the listing is exhausted, or after
// a page whose batch holds an article published before the freshness window.
// Fetch and render failures abort this category only.
func (e *Engine) CrawlCategory(ctx context.Context, seen *ArticleSet, category string) []*types.Article {
	logger := e.logger.With("category", category)
	w := e.window()

	lst := e.openListing(category, w)
	defer lst.close()

	var crawled []*types.Article
	for page := 1; page <= e.cfg.MaxPages; page++ {
		if ctx.Err() != nil {
			break
		}

		content, err := lst.next(ctx)
		if endOfListing(err) {
			logger.Debug("listing exhausted", "page", page, "error", err)
			break
		}
		if err != nil {
			e.stats.CategoriesAborted.Add(1)
			logger.Warn("category aborted", "page", page, "error", err)
			break
		}
		e.stats.PagesVisited.Add(1)

		doc, err := parser.NewDocument(content, e.site.Root)
		if err != nil {
			e.stats.CategoriesAborted.Add(1)
			logger.Warn("category aborted", "page", page, "error", err)
			break
		}

		candidates := e.pipeline.Filter(e.site.ExtractCandidates(doc, category))
		if len(candidates) == 0 {
			logger.Debug("no candidates, end of listing", "page", page)
			break
		}

		fresh := seen.Claim(candidates)
		if len(fresh) == 0 {
			logger.Debug("no new articles, stopping", "page", page)
			break
		}
		e.stats.ArticlesDiscovered.Add(int64(len(fresh)))

		e.processBatch(ctx, fresh)
		crawled = append(crawled, fresh...)

		if stale := firstPublishedBefore(fresh, w.From); stale != nil {
			logger.Info("freshness window reached",
				"page", page,
				"href", stale.Href,
				"published", stale.PublishedTime,
				"cutoff", w.From,
			)
			break
		}
	}

	logger.Info("category crawled", "articles", len(crawled))
	return crawled
}

// processBatch enriches and saves every article of one page and waits for all of them.
func (e *Engine) processBatch(ctx context.Context, batch []*types.Article) {
	RunBounded(ctx, batch, e.cfg.MaxDegreeOfParallelism, e.enrichAndSave)
}

func (e *Engine) enrichAndSave(ctx context.Context, a *types.Article) {
	if err := e.enrichSlots.Acquire(ctx, 1); err != nil {
		return
	}
	e.stats.ActiveEnrichments.Add(1)
	e.Enrich(ctx, a)
	e.stats.ActiveEnrichments.Add(-1)
	e.enrichSlots.Release(1)

	if ctx.Err() != nil {
		return
	}
	e.persist(ctx, a)
}

func (e *Engine) persist(ctx context.Context, a *types.Article) {
	if err := e.store.Save(ctx, a); err != nil {
		e.stats.SaveFailures.Add(1)
		e.logger.Error("save failed", "href", a.Href, "error", err)
		return
	}
	e.stats.ArticlesSaved.Add(1)

	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, a); err != nil {
		e.stats.PublishFailures.Add(1)
		e.logger.Warn("publish failed", "href", a.Href, "error", err)
	}
}

// endOfListing reports whether err means the listing has no further pages.
// Numbered listings answer 404 or 410 past their last page.
func endOfListing(err error) bool {
	if errors.Is(err, types.ErrListingExhausted) {
		return true
	}
	var fe *types.FetchError
	if errors.As(err, &fe) {
		return fe.StatusCode == http.StatusNotFound || fe.StatusCode == http.StatusGone
	}
	return false
}

// firstPublishedBefore returns the first article with a known publish time before cutoff.
func firstPublishedBefore(batch []*types.Article, cutoff time.Time) *types.Article {
	for _, a := range batch {
		if a.PublishedBefore(cutoff) {
			return a
		}
	}
	return nil
}
