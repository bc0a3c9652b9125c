package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Document is one parsed snapshot of a page.
type Document struct {
	URL  string
	root *html.Node
}

// ParseDocument parses markup captured from pageURL.
func ParseDocument(pageURL, markup string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{URL: pageURL, root: root}, nil
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Find runs a CSS selector below n. Invalid selectors match nothing.
func Find(n *html.Node, selector string) *goquery.Selection {
	return goquery.NewDocumentFromNode(n).Find(selector)
}

// Text returns the trimmed text content of n.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.InnerText(n))
}

// Attr returns the value of attribute name on n, or "".
func Attr(n *html.Node, name string) string {
	return htmlquery.SelectAttr(n, name)
}

var skipLeafTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// FirstLeafText walks every element with no element children in document
// order and returns the first trimmed text accepted by match.
func (d *Document) FirstLeafText(match func(text string) bool) (string, bool) {
	var (
		found string
		ok    bool
	)
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if skipLeafTags[n.Data] {
				return false
			}
			if !hasElementChild(n) {
				text := Text(n)
				if text != "" && match(text) {
					found, ok = text, true
					return true
				}
				return false
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(d.root)
	return found, ok
}

func hasElementChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return true
		}
	}
	return false
}
