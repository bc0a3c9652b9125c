package fetcher

import (
	"context"
)

// StaticPage serves a fixed HTML document. It is always complete and has
// nothing to lazy-load, so scrolling is a no-op.
type StaticPage struct {
	url    string
	markup string
}

// NewStaticPage wraps markup captured from pageURL.
func NewStaticPage(pageURL string, markup []byte) *StaticPage {
	return &StaticPage{url: pageURL, markup: string(markup)}
}

func (p *StaticPage) URL() string { return p.url }

func (p *StaticPage) ReadyState(ctx context.Context) (string, error) { return "complete", nil }

func (p *StaticPage) WaitLoad(ctx context.Context) error { return nil }

func (p *StaticPage) ScrollMetrics(ctx context.Context) (ScrollMetrics, error) {
	return ScrollMetrics{}, nil
}

func (p *StaticPage) ScrollTo(ctx context.Context, top int) error { return nil }

func (p *StaticPage) Snapshot(ctx context.Context) (string, error) { return p.markup, nil }

func (p *StaticPage) Close() error { return nil }
