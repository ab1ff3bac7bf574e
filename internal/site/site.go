// Package site describes the two supported news sites as data: where their
// categories live, how their listings paginate and which DOM rules pull out
// articles, publish times and comments.
package site

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/IshaanNene/newsharvest/internal/parser"
	"github.com/IshaanNene/newsharvest/internal/types"
)

// Pagination is how a category listing advances past its first page.
type Pagination int

const (
	// Numbered listings expose one statically fetchable URL per page.
	Numbered Pagination = iota
	// LoadMore listings are rendered once and grown by clicking a control.
	LoadMore
)

func (p Pagination) String() string {
	if p == LoadMore {
		return "load_more"
	}
	return "numbered"
}

// Window is the freshness window of one crawl: [From, To].
type Window struct {
	From time.Time
	To   time.Time
}

// NewWindow returns the window ending at local midnight of now and starting days before.
func NewWindow(now time.Time, days int) Window {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return Window{From: today.AddDate(0, 0, -days), To: today}
}

// Site is the adapter the engine is parameterised with.
type Site struct {
	Source types.Source
	Root   string

	// Navigation is the top menu region; CategoryLinks is queried inside it.
	Navigation    parser.Rule
	CategoryLinks parser.Rule

	Pagination Pagination
	// PageURL builds the listing URL of a numbered page (page starts at 1).
	PageURL func(category string, page int, w Window) string
	// LoadMoreSelector is the CSS selector of the control that grows a LoadMore listing.
	LoadMoreSelector string

	Articles parser.Rule // anchors carrying href and title

	Published parser.Rule

	// ShowMoreComments is a CSS selector clicked until it is absent or hidden. Empty means none.
	ShowMoreComments string
	Comments         parser.Rule
	CommentContent   parser.Rule
	CommentLikes     parser.Rule
	// LikesRequired skips comment nodes that carry no likes element.
	LikesRequired    bool
}

// ByName returns the adapter for a source name.
func ByName(name string) (*Site, error) {
	switch types.Source(name) {
	case types.SourceVnExpress:
		return VnExpress(), nil
	case types.SourceTuoiTre:
		return TuoiTre(), nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidSource, name)
	}
}

// ExtractCategories returns the distinct category identifiers under the navigation region.
// It returns ErrNavigationMissing when the region itself is absent.
func (s *Site) ExtractCategories(doc *parser.Document) ([]string, error) {
	regions := doc.Nodes(s.Navigation)
	if len(regions) == 0 {
		return nil, types.ErrNavigationMissing
	}

	seen := make(map[string]struct{})
	var categories []string
	for _, region := range regions {
		for _, n := range parser.Query(region, s.CategoryLinks) {
			id := parser.Value(n, s.CategoryLinks.Attribute)
			if id == "" || id == "/" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			categories = append(categories, id)
		}
	}
	return categories, nil
}

// CategoryURL is the first listing page of a category.
func (s *Site) CategoryURL(category string, w Window) string {
	if s.PageURL != nil {
		return s.PageURL(category, 1, w)
	}
	return s.Resolve(category)
}

// Resolve makes a site-relative path absolute against Root.
func (s *Site) Resolve(path string) string {
	base, err := url.Parse(s.Root)
	if err != nil {
		return path
	}
	ref, err := url.Parse(strings.TrimSpace(path))
	if err != nil {
		return path
	}
	return base.ResolveReference(ref).String()
}

// ExtractCandidates returns the listing's articles in page order, without metadata.
// Anchors with no usable href are skipped; the title falls back to the anchor text.
func (s *Site) ExtractCandidates(doc *parser.Document, category string) []*types.Article {
	var out []*types.Article
	for _, n := range doc.Nodes(s.Articles) {
		href, ok := doc.Resolve(parser.Value(n, "href"))
		if !ok {
			continue
		}
		title := parser.Value(n, "title")
		if title == "" {
			title = parser.Value(n, "text")
		}
		out = append(out, types.NewArticle(s.Source, href, title, category))
	}
	return out
}

// ExtractPublished parses the article page's publish time; zero if absent or unparsable.
func (s *Site) ExtractPublished(doc *parser.Document, loc *time.Location) time.Time {
	return parser.ParsePublishedTime(doc.First(s.Published), loc)
}

// ExtractComments returns every top-level comment with its like count.
// Nodes without a content element are not comments and are skipped.
func (s *Site) ExtractComments(doc *parser.Document) []types.Comment {
	nodes := doc.Nodes(s.Comments)
	comments := make([]types.Comment, 0, len(nodes))
	for _, n := range nodes {
		content := parser.Query(n, s.CommentContent)
		if len(content) == 0 {
			continue
		}
		likes := parser.Query(n, s.CommentLikes)
		if len(likes) == 0 && s.LikesRequired {
			continue
		}
		c := types.Comment{Content: parser.Value(content[0], s.CommentContent.Attribute)}
		if len(likes) > 0 {
			c.Likes = parser.ParseLikes(parser.Value(likes[0], s.CommentLikes.Attribute))
		}
		comments = append(comments, c)
	}
	return comments
}
