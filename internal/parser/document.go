package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// RuleType selects the query language of a Rule.
type RuleType string

const (
	TypeCSS   RuleType = "css"
	TypeXPath RuleType = "xpath"
)

// Rule is a single DOM query. Attribute selects what Value reads from a match:
// "" or "text" for the trimmed inner text, anything else for that attribute.
type Rule struct {
	Selector  string
	Type      RuleType
	Attribute string
}

// CSS builds a goquery-backed rule.
func CSS(selector, attribute string) Rule {
	return Rule{Selector: selector, Type: TypeCSS, Attribute: attribute}
}

// XPath builds an htmlquery-backed rule.
func XPath(expr, attribute string) Rule {
	return Rule{Selector: expr, Type: TypeXPath, Attribute: attribute}
}

// IsZero reports whether the rule is unset.
func (r Rule) IsZero() bool { return r.Selector == "" }

// Document is a parsed page that can be queried with CSS or XPath rules.
type Document struct {
	root *html.Node
	base *url.URL
}

// NewDocument parses page content. baseURL is used to resolve relative links.
func NewDocument(content, baseURL string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	return &Document{root: root, base: base}, nil
}

// Nodes returns every node in the document matching r.
func (d *Document) Nodes(r Rule) []*html.Node {
	return Query(d.root, r)
}

// First returns the value of the first match of r, or "".
func (d *Document) First(r Rule) string {
	return QueryFirst(d.root, r)
}

// Resolve turns href into an absolute URL without a fragment.
// It returns false for empty, javascript:, mailto: and unparsable links.
func (d *Document) Resolve(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return "", false
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
		return "", false
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := d.base.ResolveReference(u)
	abs.Fragment = ""
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	return abs.String(), true
}

// Query runs r below n. Invalid selectors match nothing.
func Query(n *html.Node, r Rule) []*html.Node {
	if n == nil || r.IsZero() {
		return nil
	}
	switch r.Type {
	case TypeXPath:
		nodes, err := htmlquery.QueryAll(n, r.Selector)
		if err != nil {
			return nil
		}
		return nodes
	default:
		return goquery.NewDocumentFromNode(n).Find(r.Selector).Nodes
	}
}

// QueryFirst returns the value of the first match of r below n, or "".
func QueryFirst(n *html.Node, r Rule) string {
	nodes := Query(n, r)
	if len(nodes) == 0 {
		return ""
	}
	return Value(nodes[0], r.Attribute)
}

// Value reads the text or attribute of a node.
func Value(n *html.Node, attribute string) string {
	switch attribute {
	case "", "text":
		return collapseSpace(htmlquery.InnerText(n))
	default:
		return strings.TrimSpace(htmlquery.SelectAttr(n, attribute))
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
