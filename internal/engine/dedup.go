package engine

import (
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/IshaanNene/newsharvest/internal/types"
)

// ArticleSet is the run-scoped record of articles already claimed for enrichment.
// It is created by the caller of a crawl run and discarded with it.
type ArticleSet struct {
	mu    sync.Mutex
	items map[string]struct{}
}

// NewArticleSet creates an empty set.
func NewArticleSet() *ArticleSet {
	return &ArticleSet{items: make(map[string]struct{})}
}

// Add claims a.Href. It returns true only for the first caller; the check and
// insert happen under one lock, so concurrent listings cannot both win.
func (s *ArticleSet) Add(a *types.Article) bool {
	key := CanonicalizeURL(a.Href)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; ok {
		return false
	}
	s.items[key] = struct{}{}
	return true
}

// Claim returns the candidates that were not seen before, in their original order.
func (s *ArticleSet) Claim(candidates []*types.Article) []*types.Article {
	var fresh []*types.Article
	for _, a := range candidates {
		if s.Add(a) {
			fresh = append(fresh, a)
		}
	}
	return fresh
}

// Len returns the number of distinct articles claimed.
func (s *ArticleSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// CanonicalizeURL normalizes an article URL for identity comparison:
// - lowercases scheme and host
// - removes fragment
// - sorts query parameters
// - removes default ports (80 for http, 443 for https)
func CanonicalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = u.Hostname()
	}

	if u.RawQuery != "" {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sorted []string
		for _, k := range keys {
			vals := params[k]
			sort.Strings(vals)
			for _, v := range vals {
				sorted = append(sorted, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(sorted, "&")
	}

	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
