package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/IshaanNene/ItemSnap/internal/config"
	"github.com/IshaanNene/ItemSnap/internal/types"
)

// Opener hands out Pages according to the configured fetcher type.
type Opener struct {
	cfg      *config.Config
	logger   *slog.Logger
	htmlFile string

	mu      sync.Mutex
	http    *HTTPFetcher
	browser *Browser
}

// OpenerOption configures an Opener.
type OpenerOption func(*Opener)

// WithHTMLFile serves every Open from a saved HTML file instead of the network.
func WithHTMLFile(path string) OpenerOption {
	return func(o *Opener) { o.htmlFile = path }
}

// NewOpener creates an Opener. The browser is started lazily on first use.
func NewOpener(cfg *config.Config, logger *slog.Logger, opts ...OpenerOption) *Opener {
	o := &Opener{
		cfg:    cfg,
		logger: logger.With("component", "opener"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Mode reports which backend Open uses.
func (o *Opener) Mode() string {
	if o.htmlFile != "" {
		return "file"
	}
	return o.cfg.Fetcher.Type
}

// Open acquires a page for rawURL. Failures to reach the page wrap
// types.ErrPageUnreachable.
func (o *Opener) Open(ctx context.Context, rawURL string) (Page, error) {
	switch o.Mode() {
	case "file":
		data, err := os.ReadFile(o.htmlFile)
		if err != nil {
			return nil, unreachable(rawURL, err)
		}
		return NewStaticPage(rawURL, data), nil

	case "http":
		f, err := o.httpFetcher()
		if err != nil {
			return nil, err
		}
		resp, err := f.Fetch(ctx, rawURL)
		if err != nil {
			return nil, unreachable(rawURL, err)
		}
		if !strings.Contains(resp.ContentType, "html") {
			o.logger.Warn("response is not HTML", "url", rawURL, "content_type", resp.ContentType)
		}
		o.logger.Debug("static page fetched",
			"url", resp.FinalURL,
			"status", resp.StatusCode,
			"duration", resp.FetchDuration,
			"at", resp.FetchedAt,
		)
		return NewStaticPage(resp.FinalURL, resp.Body), nil

	case "browser":
		b, err := o.browserInstance()
		if err != nil {
			return nil, unreachable(rawURL, err)
		}
		page, err := b.Open(ctx, rawURL)
		if err != nil {
			return nil, unreachable(rawURL, err)
		}
		return page, nil

	default:
		return nil, fmt.Errorf("unknown fetcher type %q", o.cfg.Fetcher.Type)
	}
}

// Close releases the browser and HTTP client if they were started.
func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var err error
	if o.browser != nil {
		err = o.browser.Close()
		o.browser = nil
	}
	if o.http != nil {
		_ = o.http.Close()
		o.http = nil
	}
	return err
}

func (o *Opener) httpFetcher() (*HTTPFetcher, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.http == nil {
		f, err := NewHTTPFetcher(o.cfg, o.logger)
		if err != nil {
			return nil, err
		}
		o.http = f
	}
	return o.http, nil
}

func (o *Opener) browserInstance() (*Browser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.browser == nil {
		b, err := NewBrowser(o.cfg, o.logger)
		if err != nil {
			return nil, err
		}
		o.browser = b
	}
	return o.browser, nil
}

func unreachable(rawURL string, err error) error {
	return fmt.Errorf("%w: %s: %w", types.ErrPageUnreachable, rawURL, err)
}
