package parser

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/IshaanNene/ItemSnap/internal/types"
)

// Observer is notified after every locator evaluation.
type Observer func(loc Locator, matched bool, err error)

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithObserver registers an evaluation observer.
func WithObserver(o Observer) ResolverOption {
	return func(r *Resolver) { r.observer = o }
}

// Resolver evaluates ordered locator lists against a document.
// Compiled expressions are cached per resolver.
type Resolver struct {
	logger   *slog.Logger
	observer Observer

	mu    sync.Mutex
	css   map[string]cascadia.Matcher
	xpath map[string]*xpath.Expr
}

// NewResolver creates a new locator resolver.
func NewResolver(logger *slog.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		logger: logger.With("component", "resolver"),
		css:    make(map[string]cascadia.Matcher),
		xpath:  make(map[string]*xpath.Expr),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// First evaluates locs in order and returns the first node that accept
// approves. A nil accept approves any node. Once a locator matches, no later
// locator is evaluated. Malformed locators are logged and skipped.
func (r *Resolver) First(root *html.Node, locs []Locator, accept func(*html.Node) bool) (*html.Node, Locator, bool) {
	for _, loc := range locs {
		node, err := r.evalFirst(root, loc)
		if err != nil {
			r.logger.Warn("locator evaluation failed", "selector", loc.Expr, "type", loc.Kind, "error", err)
			r.notify(loc, false, err)
			continue
		}
		if node != nil && (accept == nil || accept(node)) {
			r.notify(loc, true, nil)
			return node, loc, true
		}
		r.notify(loc, false, nil)
	}
	return nil, Locator{}, false
}

// All returns every node matched by a single locator, in document order.
func (r *Resolver) All(root *html.Node, loc Locator) ([]*html.Node, error) {
	var (
		nodes []*html.Node
		err   error
	)
	switch loc.Kind {
	case KindXPath:
		var expr *xpath.Expr
		if expr, err = r.compileXPath(loc.Expr); err == nil {
			nodes = htmlquery.QuerySelectorAll(root, expr)
		}
	default:
		var m cascadia.Matcher
		if m, err = r.compileCSS(loc.Expr); err == nil {
			nodes = cascadia.QueryAll(root, m)
		}
	}
	if err != nil {
		r.logger.Warn("locator evaluation failed", "selector", loc.Expr, "type", loc.Kind, "error", err)
	}
	r.notify(loc, len(nodes) > 0, err)
	return nodes, err
}

func (r *Resolver) evalFirst(root *html.Node, loc Locator) (*html.Node, error) {
	switch loc.Kind {
	case KindXPath:
		expr, err := r.compileXPath(loc.Expr)
		if err != nil {
			return nil, err
		}
		return htmlquery.QuerySelector(root, expr), nil
	case KindCSS:
		m, err := r.compileCSS(loc.Expr)
		if err != nil {
			return nil, err
		}
		return cascadia.Query(root, m), nil
	default:
		return nil, &types.LocatorError{Locator: loc.Expr, Err: fmt.Errorf("unknown locator kind %q", loc.Kind)}
	}
}

func (r *Resolver) compileCSS(sel string) (cascadia.Matcher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.css[sel]; ok {
		return m, nil
	}
	m, err := cascadia.ParseGroup(sel)
	if err != nil {
		return nil, &types.LocatorError{Locator: sel, Err: err}
	}
	r.css[sel] = m
	return m, nil
}

func (r *Resolver) compileXPath(expr string) (*xpath.Expr, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.xpath[expr]; ok {
		return e, nil
	}
	e, err := xpath.Compile(expr)
	if err != nil {
		return nil, &types.LocatorError{Locator: expr, Err: err}
	}
	r.xpath[expr] = e
	return e, nil
}

func (r *Resolver) notify(loc Locator, matched bool, err error) {
	if r.observer != nil {
		r.observer(loc, matched, err)
	}
}
