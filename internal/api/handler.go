package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/ItemSnap/internal/config"
	"github.com/IshaanNene/ItemSnap/internal/extractor"
	"github.com/IshaanNene/ItemSnap/internal/fetcher"
	"github.com/IshaanNene/ItemSnap/internal/observability"
	"github.com/IshaanNene/ItemSnap/internal/parser"
	"github.com/IshaanNene/ItemSnap/internal/types"
)

// PageOpener acquires a page for a URL. *fetcher.Opener implements it.
type PageOpener interface {
	Open(ctx context.Context, rawURL string) (fetcher.Page, error)
}

// Handler answers extraction requests. Each request gets its own page and
// extractor; the compiled locator cache is shared.
type Handler struct {
	opener   PageOpener
	cfg      *config.Config
	resolver *parser.Resolver
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewHandler creates a new extraction handler. metrics may be nil.
func NewHandler(opener PageOpener, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Handler {
	var opts []parser.ResolverOption
	if metrics != nil {
		opts = append(opts, parser.WithObserver(metrics.ObserveLocator))
	}
	return &Handler{
		opener:   opener,
		cfg:      cfg,
		resolver: parser.NewResolver(logger, opts...),
		metrics:  metrics,
		logger:   logger.With("component", "handler"),
	}
}

// Handle implements the request/response message contract: one request,
// exactly one response.
func (h *Handler) Handle(ctx context.Context, req types.ExtractRequest) types.ExtractResponse {
	if req.Action != types.ActionExtract {
		return types.Failed(fmt.Errorf("%w: %q", types.ErrUnknownAction, req.Action))
	}
	rec, err := h.Extract(ctx, req.URL)
	if err != nil {
		return types.Failed(err)
	}
	return types.Succeeded(rec)
}

// Extract refuses unsupported pages, opens the page and runs the extractor.
// A panic during extraction is reported as an error.
func (h *Handler) Extract(ctx context.Context, rawURL string) (rec *types.ProductRecord, err error) {
	start := time.Now()
	h.count(func(m *observability.Metrics) { m.ExtractionsTotal.Add(1) })

	if err := config.ValidateURL(rawURL); err != nil {
		h.count(func(m *observability.Metrics) { m.ExtractionsRefused.Add(1) })
		return nil, err
	}
	if !config.IsSupportedPage(rawURL, h.cfg.Site.Domains) {
		h.count(func(m *observability.Metrics) { m.ExtractionsRefused.Add(1) })
		h.logger.Info("extraction refused", "url", rawURL)
		return nil, types.ErrUnsupportedPage
	}

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("extraction panicked", "url", rawURL, "panic", r)
			rec, err = nil, fmt.Errorf("extraction failed: %v", r)
		}
		if err != nil {
			h.count(func(m *observability.Metrics) { m.ExtractionsFailed.Add(1) })
			if !errors.Is(err, types.ErrPageUnreachable) {
				h.logger.Error("extraction failed", "url", rawURL, "error", err)
			}
		}
	}()

	page, err := h.opener.Open(ctx, rawURL)
	if err != nil {
		h.logger.Warn("page unreachable", "url", rawURL, "error", err)
		return nil, err
	}
	defer page.Close()

	rec, err = extractor.New(page, h.cfg, h.logger, extractor.WithResolver(h.resolver)).Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", rawURL, err)
	}

	h.logger.Info("extraction served", "url", rawURL, "duration", time.Since(start))
	return rec, nil
}

func (h *Handler) count(fn func(*observability.Metrics)) {
	if h.metrics != nil {
		fn(h.metrics)
	}
}
