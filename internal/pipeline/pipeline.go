package pipeline

import (
	"log/slog"
	"strings"

	"github.com/IshaanNene/newsharvest/internal/types"
)

// Middleware processes a listing candidate and returns the (possibly modified) article.
// Return nil to drop the candidate before it is claimed for enrichment.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a candidate. Return nil to drop it.
	Process(a *types.Article) (*types.Article, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// ForSite returns the candidate pipeline every crawl uses: trim the fields,
// require an href, keep only links on root's host or its subdomains and clean the title.
func ForSite(root string, logger *slog.Logger) (*Pipeline, error) {
	sameHost, err := NewSameHostMiddleware(root)
	if err != nil {
		return nil, err
	}
	p := New(logger)
	p.Use(&TrimMiddleware{})
	p.Use(&RequiredHrefMiddleware{})
	p.Use(sameHost)
	p.Use(NewTitleCleanMiddleware())
	return p, nil
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the candidate through all middleware in order.
func (p *Pipeline) Process(a *types.Article) (*types.Article, error) {
	current := a

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage: mw.Name(),
				Href:  current.Href,
				Err:   err,
			}
		}
		if result == nil {
			p.logger.Debug("candidate dropped", "stage", mw.Name(), "href", a.Href)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Filter processes every candidate and keeps the survivors in order.
// Candidates that fail a stage are logged and dropped.
func (p *Pipeline) Filter(candidates []*types.Article) []*types.Article {
	out := candidates[:0:0]
	for _, a := range candidates {
		result, err := p.Process(a)
		if err != nil {
			p.logger.Warn("candidate rejected", "error", err)
			continue
		}
		if result != nil {
			out = append(out, result)
		}
	}
	return out
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// --- Built-in Middleware ---

// RequiredHrefMiddleware drops candidates without a link.
type RequiredHrefMiddleware struct{}

func (m *RequiredHrefMiddleware) Name() string { return "required_href" }

func (m *RequiredHrefMiddleware) Process(a *types.Article) (*types.Article, error) {
	if strings.TrimSpace(a.Href) == "" {
		return nil, nil
	}
	return a, nil
}

// TrimMiddleware trims whitespace from the text fields.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(a *types.Article) (*types.Article, error) {
	a.Href = strings.TrimSpace(a.Href)
	a.Title = strings.TrimSpace(a.Title)
	a.CategoryID = strings.TrimSpace(a.CategoryID)
	return a, nil
}
