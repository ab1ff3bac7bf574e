package pipeline

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/IshaanNene/newsharvest/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

func candidate(href, title string) *types.Article {
	return types.NewArticle(types.SourceVnExpress, href, title, "1001005")
}

func TestPipelineBasic(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})

	result, err := p.Process(candidate("  https://vnexpress.net/a.html ", "  Hello World  "))
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if result.Title != "Hello World" {
		t.Errorf("expected trimmed title, got %q", result.Title)
	}
	if result.Href != "https://vnexpress.net/a.html" {
		t.Errorf("expected trimmed href, got %q", result.Href)
	}
}

func TestRequiredHrefMiddleware(t *testing.T) {
	m := &RequiredHrefMiddleware{}

	if result, _ := m.Process(candidate("https://vnexpress.net/a.html", "A")); result == nil {
		t.Error("candidate with href should pass")
	}
	if result, _ := m.Process(candidate("  ", "A")); result != nil {
		t.Error("candidate without href should be dropped (nil)")
	}
}

func TestTitleCleanMiddleware(t *testing.T) {
	m := NewTitleCleanMiddleware()

	result, err := m.Process(candidate("https://tuoitre.vn/a.htm", "<b>Giá vàng</b> &amp;\n   tỷ  giá"))
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if result.Title != "Giá vàng & tỷ giá" {
		t.Errorf("unexpected title %q", result.Title)
	}
}

func TestSameHostMiddleware(t *testing.T) {
	m, err := NewSameHostMiddleware("https://vnexpress.net/")
	if err != nil {
		t.Fatalf("NewSameHostMiddleware: %v", err)
	}

	tests := []struct {
		href string
		keep bool
	}{
		{"https://vnexpress.net/a.html", true},
		{"https://VNEXPRESS.net/a.html", true},
		{"https://e.vnexpress.net/news/a.html", true},
		{"https://tuoitre.vn/a.htm", false},
		{"https://notvnexpress.net/a.html", false},
	}
	for _, tt := range tests {
		result, err := m.Process(candidate(tt.href, "A"))
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.href, err)
		}
		if (result != nil) != tt.keep {
			t.Errorf("%s: keep = %v, want %v", tt.href, result != nil, tt.keep)
		}
	}

	if _, err := NewSameHostMiddleware("not a url"); err == nil {
		t.Error("expected error for root without host")
	}
}

type failingMiddleware struct{}

func (failingMiddleware) Name() string { return "failing" }
func (failingMiddleware) Process(a *types.Article) (*types.Article, error) {
	return nil, errors.New("boom")
}

func TestPipelineErrorNamesStage(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})
	p.Use(failingMiddleware{})

	_, err := p.Process(candidate("https://vnexpress.net/a.html", "A"))
	var pe *types.PipelineError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PipelineError, got %v", err)
	}
	if pe.Stage != "failing" || pe.Href != "https://vnexpress.net/a.html" {
		t.Errorf("unexpected error fields: %+v", pe)
	}
}

func TestForSiteFilter(t *testing.T) {
	p, err := ForSite("https://tuoitre.vn/", testLogger)
	if err != nil {
		t.Fatalf("ForSite: %v", err)
	}
	if p.Len() != 4 {
		t.Errorf("expected 4 stages, got %d", p.Len())
	}

	in := []*types.Article{
		candidate("https://tuoitre.vn/a.htm", "A &amp; B"),
		candidate("https://ads.example.com/x", "Ad"),
		candidate("", "Empty"),
		candidate("https://tuoitre.vn/b.htm", "B"),
		candidate("  https://tuoitre.vn/c.htm\n", " C "),
	}
	out := p.Filter(in)
	if len(out) != 3 {
		t.Fatalf("expected 3 survivors, got %d", len(out))
	}
	if out[2].Href != "https://tuoitre.vn/c.htm" || out[2].Title != "C" {
		t.Errorf("padded candidate not trimmed: %+v", out[2])
	}
	if out[0].Href != "https://tuoitre.vn/a.htm" || out[0].Title != "A & B" || out[1].Href != "https://tuoitre.vn/b.htm" {
		t.Errorf("unexpected survivors: %+v, %+v", out[0], out[1])
	}
	if in[0].Href != "https://tuoitre.vn/a.htm" {
		t.Error("Filter must not reorder the input slice")
	}
}
