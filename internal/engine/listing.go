package engine

import (
	"context"

	"github.com/IshaanNene/newsharvest/internal/config"
	"github.com/IshaanNene/newsharvest/internal/fetcher"
	"github.com/IshaanNene/newsharvest/internal/site"
	"github.com/IshaanNene/newsharvest/internal/types"
)

// listing yields the successive contents of one category's listing.
// next returns types.ErrListingExhausted when no further content exists.
type listing interface {
	next(ctx context.Context) (string, error)
	close()
}

func (e *Engine) openListing(category string, w site.Window) listing {
	if e.site.Pagination == site.LoadMore {
		return &loadMoreListing{
			renderer: e.renderer,
			url:      e.site.CategoryURL(category, w),
			control:  e.site.LoadMoreSelector,
			settle:   e.cfg.ListingSettle,
		}
	}
	return &numberedListing{
		fetcher:  e.fetcher,
		category: category,
		window:   w,
		pageURL:  e.site.PageURL,
	}
}

// numberedListing fetches page 1, 2, 3... statically.
type numberedListing struct {
	fetcher  fetcher.Fetcher
	category string
	window   site.Window
	pageURL  func(string, int, site.Window) string
	page     int
}

func (l *numberedListing) next(ctx context.Context) (string, error) {
	l.page++
	return l.fetcher.Fetch(ctx, l.pageURL(l.category, l.page, l.window))
}

func (l *numberedListing) close() {}

// loadMoreListing renders the category once and then clicks its load-more
// control, re-reading the whole grown page each time.
type loadMoreListing struct {
	renderer fetcher.Renderer
	url      string
	control  string
	settle   config.DelayRange
	page     fetcher.Page
}

func (l *loadMoreListing) next(ctx context.Context) (string, error) {
	if l.page == nil {
		page, err := l.renderer.Open(ctx, l.url)
		if err != nil {
			return "", err
		}
		l.page = page
	} else {
		clicked, err := l.page.Expand(l.control)
		if err != nil {
			return "", err
		}
		if !clicked {
			return "", types.ErrListingExhausted
		}
	}

	if err := fetcher.Settle(ctx, l.settle); err != nil {
		return "", err
	}
	return l.page.HTML()
}

func (l *loadMoreListing) close() {
	if l.page != nil {
		_ = l.page.Close()
	}
}
