package fetcher

import (
	"context"
)

// Fetcher retrieves static page content over HTTP.
type Fetcher interface {
	// Fetch returns the decoded body at rawURL.
	Fetch(ctx context.Context, rawURL string) (string, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// Renderer opens pages in a browser so that scripts run and controls can be clicked.
type Renderer interface {
	// Open navigates to rawURL and returns the live page. The caller must Close it.
	Open(ctx context.Context, rawURL string) (Page, error)

	// Close shuts the browser down.
	Close() error
}

// Page is a rendered page that stays interactive until Close.
type Page interface {
	// HTML returns the current DOM serialised as HTML.
	HTML() (string, error)

	// Expand clicks the first element matching the CSS selector.
	// It returns false, without error, when the element is absent or hidden.
	Expand(selector string) (bool, error)

	// Close releases the page.
	Close() error
}
