package extractor

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/IshaanNene/ItemSnap/internal/parser"
)

var (
	pricePrefixed = regexp.MustCompile(`^[¥￥]?\s*\d+(\.\d{1,2})?$`)
	priceSuffixed = regexp.MustCompile(`^\d+(\.\d{1,2})?\s*元?$`)
	hasDigit      = regexp.MustCompile(`\d`)
)

func nonEmptyText(n *html.Node) bool {
	return parser.Text(n) != ""
}

// firstText returns the trimmed text of the first locator match with
// non-empty text.
func (e *Extractor) firstText(doc *parser.Document, locs []parser.Locator) (string, parser.Locator, bool) {
	n, loc, ok := e.resolver.First(doc.Root(), locs, nonEmptyText)
	if !ok {
		return "", parser.Locator{}, false
	}
	return parser.Text(n), loc, true
}

// extractTitle falls back to a leaf scan only when scan is set, i.e. while
// the record has no title yet.
func (e *Extractor) extractTitle(doc *parser.Document, scan bool) (string, bool) {
	if text, loc, ok := e.firstText(doc, e.locators.Title); ok {
		e.logger.Debug("title found", "selector", loc.Expr, "title", text)
		return text, true
	}
	if !scan {
		return "", false
	}
	text, ok := doc.FirstLeafText(func(s string) bool {
		n := utf8.RuneCountInString(s)
		return n > 10 && n < 200 && !containsAny(s, e.site.TitleExclude)
	})
	if ok {
		e.logger.Debug("title found by leaf scan", "title", text)
	}
	return text, ok
}

func (e *Extractor) extractPrice(doc *parser.Document, scan bool) (string, bool) {
	if text, loc, ok := e.firstText(doc, e.locators.Price); ok {
		e.logger.Debug("price found", "selector", loc.Expr, "price", text)
		return text, true
	}
	if !scan {
		return "", false
	}
	text, ok := doc.FirstLeafText(func(s string) bool {
		return pricePrefixed.MatchString(s) || priceSuffixed.MatchString(s)
	})
	if ok {
		e.logger.Debug("price found by leaf scan", "price", text)
	}
	return text, ok
}

// extractOriginalPrice has no fallback scan.
func (e *Extractor) extractOriginalPrice(doc *parser.Document) (string, bool) {
	text, _, ok := e.firstText(doc, e.locators.OriginalPrice)
	return text, ok
}

func (e *Extractor) extractSales(doc *parser.Document, scan bool) (string, bool) {
	if text, loc, ok := e.firstText(doc, e.locators.Sales); ok {
		e.logger.Debug("sales found", "selector", loc.Expr, "sales", text)
		return text, true
	}
	if !scan {
		return "", false
	}
	text, ok := doc.FirstLeafText(func(s string) bool {
		return containsAny(s, e.site.SalesKeywords) && hasDigit.MatchString(s)
	})
	if ok {
		e.logger.Debug("sales found by leaf scan", "sales", text)
	}
	return text, ok
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
