package parser

import (
	"strings"

	"github.com/IshaanNene/ItemSnap/internal/config"
)

// Kind is the evaluation strategy of a locator.
type Kind string

const (
	KindCSS   Kind = "css"
	KindXPath Kind = "xpath"
)

// Locator is a single structural-path or pattern-based expression.
type Locator struct {
	Kind Kind
	Expr string
}

// CSS builds a CSS selector locator.
func CSS(expr string) Locator { return Locator{Kind: KindCSS, Expr: expr} }

// XPath builds an XPath locator.
func XPath(expr string) Locator { return Locator{Kind: KindXPath, Expr: expr} }

func (l Locator) String() string {
	return string(l.Kind) + ":" + l.Expr
}

// FromRules converts configured rules into locators. An untyped rule whose
// selector starts with "/" is treated as XPath.
func FromRules(rules []config.LocatorRule) []Locator {
	locs := make([]Locator, 0, len(rules))
	for _, rule := range rules {
		expr := strings.TrimSpace(rule.Selector)
		switch {
		case rule.Type == string(KindXPath):
			locs = append(locs, XPath(expr))
		case rule.Type == "" && strings.HasPrefix(expr, "/"):
			locs = append(locs, XPath(expr))
		default:
			locs = append(locs, CSS(expr))
		}
	}
	return locs
}
