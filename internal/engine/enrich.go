package engine

import (
	"context"

	"github.com/IshaanNene/newsharvest/internal/fetcher"
	"github.com/IshaanNene/newsharvest/internal/parser"
	"github.com/IshaanNene/newsharvest/internal/types"
)

// Enrich renders the article page and fills in publish time and comment totals.
// Failures are logged and leave the article's fields as they were.
func (e *Engine) Enrich(ctx context.Context, a *types.Article) *types.Article {
	if err := e.enrich(ctx, a); err != nil {
		e.stats.EnrichFailures.Add(1)
		e.logger.Warn("enrichment failed", "href", a.Href, "error", err)
		return a
	}
	e.stats.ArticlesEnriched.Add(1)
	e.logger.Debug("article enriched",
		"href", a.Href,
		"published", a.PublishedTime,
		"comments", a.TotalComments,
		"likes", a.TotalLikes,
	)
	return a
}

func (e *Engine) enrich(ctx context.Context, a *types.Article) error {
	page, err := e.renderer.Open(ctx, a.Href)
	if err != nil {
		return err
	}
	defer page.Close()

	if err := fetcher.Settle(ctx, e.cfg.ArticleSettle); err != nil {
		return err
	}

	if err := e.expandComments(ctx, page); err != nil {
		return err
	}

	content, err := page.HTML()
	if err != nil {
		return err
	}
	doc, err := parser.NewDocument(content, a.Href)
	if err != nil {
		return err
	}

	published := e.site.ExtractPublished(doc, e.loc)
	comments := e.site.ExtractComments(doc)

	a.PublishedTime = published
	a.ApplyComments(comments)
	return nil
}

// expandComments clicks the site's "show more comments" control until it is
// gone or hidden, bounded by MaxCommentExpansions.
func (e *Engine) expandComments(ctx context.Context, page fetcher.Page) error {
	if e.site.ShowMoreComments == "" {
		return nil
	}
	for i := 0; i < e.cfg.MaxCommentExpansions; i++ {
		clicked, err := page.Expand(e.site.ShowMoreComments)
		if err != nil {
			return err
		}
		if !clicked {
			return nil
		}
		if err := fetcher.Settle(ctx, e.cfg.ExpandSettle); err != nil {
			return err
		}
	}
	e.logger.Debug("comment expansion limit reached", "limit", e.cfg.MaxCommentExpansions)
	return nil
}
