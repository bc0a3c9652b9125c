package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/IshaanNene/ItemSnap/internal/config"
)

// Attributes stamped on every <img> before a snapshot so the static parser
// sees the values the browser resolved.
const (
	AttrRenderedSrc    = "data-rendered-src"
	AttrRenderedWidth  = "data-rendered-width"
	AttrRenderedHeight = "data-rendered-height"
)

const stampImagesJS = `() => {
	for (const img of document.images) {
		if (img.src) img.setAttribute('data-rendered-src', img.src);
		img.setAttribute('data-rendered-width', String(img.width || 0));
		img.setAttribute('data-rendered-height', String(img.height || 0));
	}
}`

const scrollMetricsJS = `() => ({
	offset: window.pageYOffset || document.documentElement.scrollTop || 0,
	viewport: window.innerHeight,
	height: document.documentElement.scrollHeight
})`

// Browser drives a Chromium instance through Rod.
type Browser struct {
	browser *rod.Browser
	cfg     *config.FetcherConfig
	logger  *slog.Logger
}

// NewBrowser launches and connects to a browser.
func NewBrowser(cfg *config.Config, logger *slog.Logger) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Fetcher.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox")
	if cfg.Fetcher.BrowserBin != "" {
		l = l.Bin(cfg.Fetcher.BrowserBin)
	}
	if cfg.Fetcher.UserAgent != "" {
		l = l.Set("user-agent", cfg.Fetcher.UserAgent)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	b := &Browser{
		browser: browser,
		cfg:     &cfg.Fetcher,
		logger:  logger.With("component", "browser"),
	}
	b.logger.Info("browser ready", "headless", cfg.Fetcher.Headless)
	return b, nil
}

// Open navigates a new tab to rawURL. It returns once navigation commits;
// waiting for load is left to the caller.
func (b *Browser) Open(ctx context.Context, rawURL string) (*BrowserPage, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	nav := page.Context(ctx)
	if b.cfg.RequestTimeout > 0 {
		nav = nav.Timeout(b.cfg.RequestTimeout)
	}
	if err := nav.Navigate(rawURL); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("navigate %s: %w", rawURL, err)
	}

	b.logger.Debug("page opened", "url", rawURL)
	return &BrowserPage{page: page, url: rawURL, logger: b.logger}, nil
}

// Close shuts the browser down.
func (b *Browser) Close() error {
	return b.browser.Close()
}

// BrowserPage is a live tab.
type BrowserPage struct {
	page   *rod.Page
	url    string
	logger *slog.Logger
}

// URL returns the tab's current address, or the requested one if the tab
// cannot be queried.
func (p *BrowserPage) URL() string {
	info, err := p.page.Info()
	if err != nil || info == nil || info.URL == "" {
		return p.url
	}
	return info.URL
}

func (p *BrowserPage) ReadyState(ctx context.Context) (string, error) {
	res, err := p.page.Context(ctx).Eval(`() => document.readyState`)
	if err != nil {
		return "", fmt.Errorf("read readyState: %w", err)
	}
	return res.Value.Str(), nil
}

func (p *BrowserPage) WaitLoad(ctx context.Context) error {
	return p.page.Context(ctx).WaitLoad()
}

func (p *BrowserPage) ScrollMetrics(ctx context.Context) (ScrollMetrics, error) {
	res, err := p.page.Context(ctx).Eval(scrollMetricsJS)
	if err != nil {
		return ScrollMetrics{}, fmt.Errorf("read scroll metrics: %w", err)
	}
	return ScrollMetrics{
		Offset:   res.Value.Get("offset").Int(),
		Viewport: res.Value.Get("viewport").Int(),
		Height:   res.Value.Get("height").Int(),
	}, nil
}

func (p *BrowserPage) ScrollTo(ctx context.Context, top int) error {
	_, err := p.page.Context(ctx).Eval(`(top) => window.scrollTo({top: top, behavior: 'smooth'})`, top)
	if err != nil {
		return fmt.Errorf("scroll to %d: %w", top, err)
	}
	return nil
}

// Snapshot stamps rendered image attributes and returns the serialized DOM.
func (p *BrowserPage) Snapshot(ctx context.Context) (string, error) {
	start := time.Now()
	pg := p.page.Context(ctx)
	if _, err := pg.Eval(stampImagesJS); err != nil {
		p.logger.Warn("stamp images failed", "error", err)
	}
	html, err := pg.HTML()
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	p.logger.Debug("snapshot taken", "size", len(html), "duration", time.Since(start))
	return html, nil
}

func (p *BrowserPage) Close() error {
	return p.page.Close()
}
