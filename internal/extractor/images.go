package extractor

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/IshaanNene/ItemSnap/internal/fetcher"
	"github.com/IshaanNene/ItemSnap/internal/parser"
)

// Source attributes in priority order. The broad fallback ignores data-lazy-src.
var (
	imageSrcAttrs    = []string{fetcher.AttrRenderedSrc, "src", "data-src", "data-original", "data-lazy-src"}
	fallbackSrcAttrs = []string{fetcher.AttrRenderedSrc, "src", "data-src", "data-original"}
)

var sizeToken = regexp.MustCompile(`_\d+x\d+\.`)

// urlSet is an insertion-ordered set of URLs.
type urlSet struct {
	seen  map[string]struct{}
	items []string
}

func newURLSet() *urlSet {
	return &urlSet{seen: make(map[string]struct{})}
}

func (s *urlSet) add(u string) {
	if _, ok := s.seen[u]; ok {
		return
	}
	s.seen[u] = struct{}{}
	s.items = append(s.items, u)
}

func (s *urlSet) list() []string {
	return append([]string(nil), s.items...)
}

// imageSource returns the first non-empty attribute of img in attrs order,
// made absolute against base.
func imageSource(img *html.Node, attrs []string, base string) string {
	for _, attr := range attrs {
		if v := strings.TrimSpace(parser.Attr(img, attr)); v != "" {
			return absolute(v, base)
		}
	}
	return ""
}

// absolute rewrites protocol-relative URLs to https and resolves other
// relative references against base.
func absolute(src, base string) string {
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	u, err := url.Parse(src)
	if err != nil || u.IsAbs() {
		return src
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return src
	}
	return b.ResolveReference(u).String()
}

// resize rewrites the first "_WxH." token to the given size. Sources
// without a token are returned unchanged.
func resize(src, size string) string {
	loc := sizeToken.FindStringIndex(src)
	if loc == nil {
		return src
	}
	return src[:loc[0]] + "_" + size + "." + src[loc[1]:]
}

// renderedDimension prefers the stamped rendered size over the width/height
// attribute of a static page.
func renderedDimension(img *html.Node, stamped, plain string) int {
	for _, attr := range []string{stamped, plain} {
		v := strings.TrimSuffix(strings.TrimSpace(parser.Attr(img, attr)), "px")
		if v == "" {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

// imagesUnder returns n itself when it is an <img>, else its descendant images.
func imagesUnder(n *html.Node) []*html.Node {
	if n.Type == html.ElementNode && n.Data == "img" {
		return []*html.Node{n}
	}
	return parser.Find(n, "img").Nodes
}

func (e *Extractor) isCDN(src string) bool {
	return containsAny(src, e.site.CDNDomains)
}

// extractMainImages unions the images of every main-image locator. When the
// locators yield nothing it scans all page images.
func (e *Extractor) extractMainImages(doc *parser.Document) []string {
	set := newURLSet()
	for _, loc := range e.locators.MainImages {
		nodes, err := e.resolver.All(doc.Root(), loc)
		if err != nil {
			continue
		}
		for _, n := range nodes {
			for _, img := range imagesUnder(n) {
				src := imageSource(img, imageSrcAttrs, doc.URL)
				if src == "" || !(e.isCDN(src) || strings.HasPrefix(src, "http")) {
					continue
				}
				set.add(resize(src, e.site.MainImageSize))
			}
		}
	}
	if len(set.items) > 0 {
		e.logger.Debug("main images found", "count", len(set.items))
		return set.list()
	}

	for _, img := range parser.Find(doc.Root(), "img").Nodes {
		src := imageSource(img, fallbackSrcAttrs, doc.URL)
		if src == "" || !e.isCDN(src) {
			continue
		}
		w := renderedDimension(img, fetcher.AttrRenderedWidth, "width")
		h := renderedDimension(img, fetcher.AttrRenderedHeight, "height")
		if w <= e.site.MinImageSize && h <= e.site.MinImageSize {
			continue
		}
		if strings.Contains(src, "avatar") || strings.Contains(src, "icon") {
			continue
		}
		set.add(resize(src, e.site.FallbackImageSize))
	}
	if len(set.items) > 0 {
		e.logger.Debug("main images found by page scan", "count", len(set.items))
	}
	return set.list()
}

// extractDetailImages collects CDN images inside the detail container. A page
// without the container has no detail images.
func (e *Extractor) extractDetailImages(doc *parser.Document) []string {
	container, loc, ok := e.resolver.First(doc.Root(), e.locators.DetailContainer, nil)
	if !ok {
		e.logger.Debug("detail container not found")
		return nil
	}

	set := newURLSet()
	for _, img := range imagesUnder(container) {
		src := imageSource(img, imageSrcAttrs, doc.URL)
		if src == "" {
			continue
		}
		if !e.isCDN(src) {
			e.logger.Debug("skipping non-CDN detail image", "src", src)
			continue
		}
		set.add(src)
	}
	e.logger.Debug("detail images found", "selector", loc.Expr, "count", len(set.items))
	return set.list()
}
