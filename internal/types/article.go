package types

import (
	"fmt"
	"time"
)

// Source identifies the news site an article was harvested from.
type Source string

const (
	SourceVnExpress Source = "vnexpress"
	SourceTuoiTre   Source = "tuoitre"
)

// Sources lists every supported source in a stable order.
var Sources = []Source{SourceVnExpress, SourceTuoiTre}

// ParseSource converts a user-supplied string to a Source.
// The empty string is accepted and means "all sources".
func ParseSource(s string) (Source, error) {
	if s == "" {
		return "", nil
	}
	for _, src := range Sources {
		if string(src) == s {
			return src, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSource, s)
}

// Article is a harvested news article with its engagement totals.
// Href is the identity; a zero PublishedTime means the publish time is unknown.
type Article struct {
	ID            string    `json:"id,omitempty"  bson:"_id,omitempty"`
	Source        Source    `json:"source"        bson:"source"`
	Href          string    `json:"href"          bson:"href"`
	Title         string    `json:"title"         bson:"title"`
	CategoryID    string    `json:"categoryId"    bson:"categoryId"`
	TotalComments int       `json:"totalComments" bson:"totalComments"`
	TotalLikes    int       `json:"totalLikes"    bson:"totalLikes"`
	PublishedTime time.Time `json:"publishedTime" bson:"publishedTime"`
	UpdatedTime   time.Time `json:"updatedTime"   bson:"updatedTime"`
}

// NewArticle builds an un-enriched article as found on a listing page.
func NewArticle(source Source, href, title, category string) *Article {
	return &Article{
		Source:     source,
		Href:       href,
		Title:      title,
		CategoryID: category,
	}
}

// HasPublishedTime reports whether the publish time is known.
func (a *Article) HasPublishedTime() bool {
	return !a.PublishedTime.IsZero()
}

// PublishedBefore reports whether the article has a known publish time strictly before t.
// Articles with an unknown publish time are never "before" anything.
func (a *Article) PublishedBefore(t time.Time) bool {
	return a.HasPublishedTime() && a.PublishedTime.Before(t)
}

// Comment is a top-level reader comment. It only lives for one enrichment.
type Comment struct {
	Content string
	Likes   int
}

// Aggregate counts every comment and sums only the positive like counts.
func Aggregate(comments []Comment) (totalComments, totalLikes int) {
	for _, c := range comments {
		if c.Likes > 0 {
			totalLikes += c.Likes
		}
	}
	return len(comments), totalLikes
}

// ApplyComments replaces the article's totals with the aggregate of comments.
func (a *Article) ApplyComments(comments []Comment) {
	a.TotalComments, a.TotalLikes = Aggregate(comments)
}
