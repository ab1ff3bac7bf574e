package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/newsharvest/internal/config"
	"github.com/IshaanNene/newsharvest/internal/types"
)

// BrowserRenderer implements Renderer with a headless Chromium driven by Rod.
type BrowserRenderer struct {
	browser   *rod.Browser
	cfg       config.BrowserConfig
	userAgent string
	logger    *slog.Logger
	pagePool  chan *rod.Page
	maxPages  int
}

// BrowserOption configures the BrowserRenderer.
type BrowserOption func(*BrowserRenderer)

// WithMaxPages sets how many idle tabs are kept for reuse.
func WithMaxPages(n int) BrowserOption {
	return func(br *BrowserRenderer) { br.maxPages = n }
}

// WithUserAgent overrides the user agent every tab presents.
func WithUserAgent(ua string) BrowserOption {
	return func(br *BrowserRenderer) { br.userAgent = ua }
}

// NewBrowserRenderer launches and connects to a headless browser.
func NewBrowserRenderer(cfg *config.Config, logger *slog.Logger, opts ...BrowserOption) (*BrowserRenderer, error) {
	br := &BrowserRenderer{
		cfg:       cfg.Browser,
		userAgent: cfg.Fetcher.UserAgent,
		logger:    logger.With("component", "browser_renderer"),
		maxPages:  cfg.Crawler.MaxDegreeOfParallelism,
	}

	for _, opt := range opts {
		opt(br)
	}
	if br.maxPages < 1 {
		br.maxPages = 1
	}

	launchURL, err := br.launchBrowser()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	br.browser = browser
	br.pagePool = make(chan *rod.Page, br.maxPages)

	br.logger.Info("browser renderer ready",
		"max_pages", br.maxPages,
		"stealth", br.cfg.Stealth,
		"render_timeout", br.cfg.RenderTimeout,
	)

	return br, nil
}

// launchBrowser starts a Chromium instance with container-friendly flags.
func (br *BrowserRenderer) launchBrowser() (string, error) {
	l := launcher.New().
		Headless(br.cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-blink-features", "AutomationControlled").
		Set("log-level", "3")

	if br.cfg.BinPath != "" {
		l = l.Bin(br.cfg.BinPath)
	}
	if br.cfg.WindowSize != "" {
		l = l.Set("window-size", br.cfg.WindowSize)
	}

	return l.Launch()
}

// Open navigates a pooled tab to rawURL.
// Navigation honours both ctx and the configured render timeout.
func (br *BrowserRenderer) Open(ctx context.Context, rawURL string) (Page, error) {
	page, err := br.getPage()
	if err != nil {
		return nil, &types.RenderError{URL: rawURL, Action: "open", Err: err}
	}

	rp := &rodPage{page: page, owner: br, ctx: ctx, url: rawURL}

	if err := rp.navigate(); err != nil {
		br.releasePage(page, false)
		return nil, err
	}

	br.logger.Debug("page opened", "url", rawURL)
	return rp, nil
}

// Close shuts down the browser and releases resources.
func (br *BrowserRenderer) Close() error {
	close(br.pagePool)
	for page := range br.pagePool {
		_ = page.Close()
	}
	if br.browser != nil {
		return br.browser.Close()
	}
	return nil
}

// getPage retrieves a page from the pool or creates a new one.
func (br *BrowserRenderer) getPage() (*rod.Page, error) {
	select {
	case page := <-br.pagePool:
		return page, nil
	default:
	}

	var (
		page *rod.Page
		err  error
	)
	if br.cfg.Stealth {
		page, err = stealth.Page(br.browser)
	} else {
		page, err = br.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return nil, err
	}

	if br.userAgent != "" {
		err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      br.userAgent,
			AcceptLanguage: "vi-VN,vi;q=0.9",
		})
		if err != nil {
			br.logger.Warn("failed to set user agent", "error", err)
		}
	}
	return page, nil
}

// releasePage resets a healthy tab and returns it to the pool. Tabs whose last
// operation failed, or that do not reset within the render timeout, are closed.
func (br *BrowserRenderer) releasePage(page *rod.Page, healthy bool) {
	ctx, cancel := context.WithTimeout(context.Background(), br.cfg.RenderTimeout)
	defer cancel()
	bounded := page.Context(ctx)

	var resetErr error
	if healthy {
		// Navigate to blank to free memory from the last page
		resetErr = bounded.Navigate("about:blank")
	}

	if reusable(healthy, resetErr) {
		select {
		case br.pagePool <- page:
			return
		default: // Pool full
		}
	}
	if err := bounded.Close(); err != nil {
		br.logger.Debug("closing tab failed", "error", err)
	}
}

// reusable reports whether a tab may go back to the pool.
func reusable(healthy bool, resetErr error) bool {
	return healthy && resetErr == nil
}

// rodPage is a live tab handed out by BrowserRenderer.Open.
type rodPage struct {
	page   *rod.Page
	owner  *BrowserRenderer
	ctx    context.Context
	url    string
	broken bool
}

// bound scopes one operation to the caller's context and the render timeout.
// cancel must be called once the operation is done.
func (rp *rodPage) bound() (*rod.Page, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(rp.ctx, rp.owner.cfg.RenderTimeout)
	return rp.page.Context(ctx), cancel
}

func (rp *rodPage) navigate() error {
	page, cancel := rp.bound()
	defer cancel()
	if err := page.Navigate(rp.url); err != nil {
		return rp.fail("navigate", err)
	}

	load, cancelLoad := rp.bound()
	defer cancelLoad()
	if err := load.WaitLoad(); err != nil {
		rp.owner.logger.Warn("page load timeout, continuing", "url", rp.url, "error", err)
	}
	return nil
}

// fail wraps err and marks the tab as not reusable.
func (rp *rodPage) fail(action string, err error) error {
	rp.broken = true
	return &types.RenderError{
		URL:     rp.url,
		Action:  action,
		Err:     err,
		Timeout: errors.Is(err, context.DeadlineExceeded),
	}
}

// HTML returns the current DOM.
func (rp *rodPage) HTML() (string, error) {
	page, cancel := rp.bound()
	defer cancel()
	html, err := page.HTML()
	if err != nil {
		return "", rp.fail("read", err)
	}
	return html, nil
}

// Expand clicks the first visible element matching selector through a script click,
// which also works for controls hidden under sticky headers.
func (rp *rodPage) Expand(selector string) (bool, error) {
	page, cancel := rp.bound()
	defer cancel()
	els, err := page.Elements(selector)
	if err != nil {
		return false, rp.fail("query", err)
	}
	if els.Empty() {
		return false, nil
	}

	el := els.First()
	style, err := el.Attribute("style")
	if err == nil && style != nil && hiddenStyle(*style) {
		return false, nil
	}
	visible, err := el.Visible()
	if err != nil {
		return false, rp.fail("visibility", err)
	}
	if !visible {
		return false, nil
	}

	if _, err := el.Eval(`() => this.click()`); err != nil {
		return false, rp.fail("click", err)
	}
	return true, nil
}

// Close hands the tab back to the pool, or closes it if an operation failed.
func (rp *rodPage) Close() error {
	rp.owner.releasePage(rp.page, !rp.broken)
	return nil
}

func hiddenStyle(style string) bool {
	compact := strings.ReplaceAll(strings.ToLower(style), " ", "")
	return strings.Contains(compact, "display:none")
}

// waitFor sleeps for d or until ctx is done.
func waitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Settle waits a random duration within r, giving scripts time to render content.
func Settle(ctx context.Context, r config.DelayRange) error {
	return waitFor(ctx, r.Random())
}
