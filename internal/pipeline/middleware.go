package pipeline

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/IshaanNene/newsharvest/internal/types"
)

// --- Advanced Middleware ---

// TitleCleanMiddleware strips markup and entities from titles and collapses whitespace.
type TitleCleanMiddleware struct {
	stripRe *regexp.Regexp
}

func NewTitleCleanMiddleware() *TitleCleanMiddleware {
	return &TitleCleanMiddleware{
		stripRe: regexp.MustCompile(`<[^>]*>`),
	}
}

func (m *TitleCleanMiddleware) Name() string { return "title_clean" }

func (m *TitleCleanMiddleware) Process(a *types.Article) (*types.Article, error) {
	if a.Title == "" {
		return a, nil
	}
	cleaned := m.stripRe.ReplaceAllString(a.Title, "")
	cleaned = html.UnescapeString(cleaned)
	a.Title = strings.Join(strings.Fields(cleaned), " ")
	return a, nil
}

// SameHostMiddleware drops candidates that link away from the site,
// such as sponsored boxes pointing at partner domains.
type SameHostMiddleware struct {
	host string
}

// NewSameHostMiddleware accepts root's host and any of its subdomains.
func NewSameHostMiddleware(root string) (*SameHostMiddleware, error) {
	u, err := url.Parse(root)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid site root %q", root)
	}
	return &SameHostMiddleware{host: strings.ToLower(u.Hostname())}, nil
}

func (m *SameHostMiddleware) Name() string { return "same_host" }

func (m *SameHostMiddleware) Process(a *types.Article) (*types.Article, error) {
	u, err := url.Parse(a.Href)
	if err != nil {
		return nil, fmt.Errorf("parse href: %w", err)
	}
	host := strings.ToLower(u.Hostname())
	if host == m.host || strings.HasSuffix(host, "."+m.host) {
		return a, nil
	}
	return nil, nil
}
