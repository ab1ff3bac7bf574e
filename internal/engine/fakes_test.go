package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IshaanNene/newsharvest/internal/config"
	"github.com/IshaanNene/newsharvest/internal/fetcher"
	"github.com/IshaanNene/newsharvest/internal/parser"
	"github.com/IshaanNene/newsharvest/internal/site"
	"github.com/IshaanNene/newsharvest/internal/types"
)

const testRoot = "https://news.test/"

var ict = time.FixedZone("ICT", 7*3600)

// testNow is 20 March 2024, 10:00 in Vietnam.
var testNow = time.Date(2024, 3, 20, 10, 0, 0, 0, ict)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testSite(p site.Pagination) *site.Site {
	s := &site.Site{
		Source:           types.SourceVnExpress,
		Root:             testRoot,
		Navigation:       parser.CSS("nav.menu", ""),
		CategoryLinks:    parser.CSS("a", "data-cat"),
		Pagination:       p,
		PageURL:          testPageURL,
		LoadMoreSelector: "a.load-more",
		Articles:         parser.CSS("a.item", "href"),
		Published:        parser.CSS("span.date", "text"),
		Comments:         parser.CSS("li.c", ""),
		CommentContent:   parser.CSS("p", "text"),
		CommentLikes:     parser.CSS("span.likes", "text"),
	}
	if p == site.LoadMore {
		s.PageURL = nil
	}
	return s
}

func testPageURL(category string, page int, _ site.Window) string {
	return fmt.Sprintf("%sc/%s/p/%d", testRoot, category, page)
}

func testConfig() config.CrawlerConfig {
	return config.CrawlerConfig{
		NumberOfCrawlingDays:   8,
		MaxDegreeOfParallelism: 4,
		MaxPages:               100,
		MaxCommentExpansions:   10,
		Location:               "Asia/Ho_Chi_Minh",
	}
}

func articleURL(slug string) string { return testRoot + slug + ".html" }

func homeHTML(categories ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><nav class="menu">`)
	for _, c := range categories {
		fmt.Fprintf(&b, `<a data-cat="%s">%s</a>`, c, c)
	}
	b.WriteString(`</nav></body></html>`)
	return b.String()
}

func listingHTML(slugs ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body>`)
	for _, s := range slugs {
		fmt.Fprintf(&b, `<a class="item" href="/%s.html" title="Title %s">%s</a>`, s, s, s)
	}
	b.WriteString(`<a class="load-more">more</a></body></html>`)
	return b.String()
}

func articleHTML(published string, likes ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<html><body><span class="date">%s</span><ul>`, published)
	for i, l := range likes {
		fmt.Fprintf(&b, `<li class="c"><p>comment %d</p><span class="likes">%s</span></li>`, i, l)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}

// daysAgo formats a publish time n days before testNow the way the sites do.
func daysAgo(n int) string {
	return testNow.AddDate(0, 0, -n).Format("2/1/2006 15:04")
}

// --- fake static fetcher ---

type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string]string
	errs     map[string]error
	requests []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: make(map[string]string), errs: make(map[string]error)}
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, rawURL)
	if err := f.errs[rawURL]; err != nil {
		return "", err
	}
	if content, ok := f.pages[rawURL]; ok {
		return content, nil
	}
	return `<html><body></body></html>`, nil
}

func (f *fakeFetcher) Close() error { return nil }
func (f *fakeFetcher) Type() string { return "fake" }

func (f *fakeFetcher) requested(rawURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r == rawURL {
			return true
		}
	}
	return false
}

// --- fake renderer ---

type fakeRenderer struct {
	mu     sync.Mutex
	pages  map[string][]string // successive DOM states, advanced by Expand
	errs   map[string]error
	opens  map[string]int
	hold   time.Duration
	closed atomic.Int32

	active    atomic.Int32
	maxActive atomic.Int32
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		pages: make(map[string][]string),
		errs:  make(map[string]error),
		opens: make(map[string]int),
	}
}

func (r *fakeRenderer) Open(ctx context.Context, rawURL string) (fetcher.Page, error) {
	r.mu.Lock()
	r.opens[rawURL]++
	states, ok := r.pages[rawURL]
	err := r.errs[rawURL]
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.RenderError{URL: rawURL, Action: "navigate", Err: errors.New("no such page")}
	}

	n := r.active.Add(1)
	for {
		max := r.maxActive.Load()
		if n <= max || r.maxActive.CompareAndSwap(max, n) {
			break
		}
	}
	if r.hold > 0 {
		time.Sleep(r.hold)
	}
	return &fakePage{r: r, states: states}, nil
}

func (r *fakeRenderer) Close() error { return nil }

func (r *fakeRenderer) openCount(rawURL string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opens[rawURL]
}

type fakePage struct {
	r       *fakeRenderer
	states  []string
	idx     int
	expands int
}

func (p *fakePage) HTML() (string, error) { return p.states[p.idx], nil }

func (p *fakePage) Expand(selector string) (bool, error) {
	p.expands++
	if p.idx+1 < len(p.states) {
		p.idx++
		return true, nil
	}
	return false, nil
}

func (p *fakePage) Close() error {
	p.r.active.Add(-1)
	p.r.closed.Add(1)
	return nil
}

// --- fake store ---

type fakeStore struct {
	mu    sync.Mutex
	saves map[string]int
	last  map[string]types.Article
	err   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{saves: make(map[string]int), last: make(map[string]types.Article)}
}

func (s *fakeStore) Save(ctx context.Context, a *types.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saves[a.Href]++
	s.last[a.Href] = *a
	return nil
}

func (s *fakeStore) count(href string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves[href]
}

func (s *fakeStore) get(href string) types.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[href]
}

type harness struct {
	fetcher  *fakeFetcher
	renderer *fakeRenderer
	store    *fakeStore
}

func newHarness() *harness {
	return &harness{fetcher: newFakeFetcher(), renderer: newFakeRenderer(), store: newFakeStore()}
}

func (h *harness) engine(t *testing.T, s *site.Site, cfg config.CrawlerConfig, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	e, err := New(s, cfg, h.fetcher, h.renderer, h.store, testLogger(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// article registers a renderable article page.
func (h *harness) article(slug, published string, likes ...string) {
	h.renderer.pages[articleURL(slug)] = []string{articleHTML(published, likes...)}
}

// listingPage registers numbered listing page n of category.
func (h *harness) listingPage(category string, n int, slugs ...string) {
	h.fetcher.pages[testPageURL(category, n, site.Window{})] = listingHTML(slugs...)
}
