// Package extractor turns a loaded product page into a ProductRecord.
//
// A run waits for the page to become ready, scrolls once to materialize
// lazy content, then performs a fixed number of extraction passes over fresh
// DOM snapshots. A pass only assigns fields it found, so later passes refine
// the record without erasing it.
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/ItemSnap/internal/config"
	"github.com/IshaanNene/ItemSnap/internal/fetcher"
	"github.com/IshaanNene/ItemSnap/internal/parser"
	"github.com/IshaanNene/ItemSnap/internal/types"
)

// Extractor extracts one product page. It is built per page and is not
// safe for concurrent use.
type Extractor struct {
	page     fetcher.Page
	cfg      config.ExtractConfig
	site     config.SiteConfig
	locators Locators
	resolver *parser.Resolver
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLocators replaces the locator lists.
func WithLocators(l Locators) Option {
	return func(e *Extractor) { e.locators = l }
}

// WithResolver shares a resolver, and its compiled-expression cache and
// observer, across extractors.
func WithResolver(r *parser.Resolver) Option {
	return func(e *Extractor) { e.resolver = r }
}

// WithClock overrides the capture-time source.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// New creates an extractor for page.
func New(page fetcher.Page, cfg *config.Config, logger *slog.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		page:     page,
		cfg:      cfg.Extract,
		site:     cfg.Site,
		locators: LocatorsFromConfig(cfg.Site.Locators),
		logger:   logger.With("component", "extractor"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.resolver == nil {
		e.resolver = parser.NewResolver(logger)
	}
	return e
}

// Run performs the full extraction and returns the finished record. It fails
// only when ctx ends or the page cannot be snapshotted.
func (e *Extractor) Run(ctx context.Context) (*types.ProductRecord, error) {
	start := time.Now()
	rec := types.NewProductRecord(e.page.URL(), e.now())

	if err := e.waitReady(ctx); err != nil {
		return nil, err
	}
	e.logger.Info("scrolling page to load lazy content", "url", rec.URL)
	if err := e.scroll(ctx); err != nil {
		return nil, err
	}

	passes := max(e.cfg.Passes, 1)
	for i := 0; i < passes; i++ {
		e.logger.Info("extraction pass", "pass", i+1, "of", passes)
		if err := e.pass(ctx, rec); err != nil {
			return nil, fmt.Errorf("pass %d: %w", i+1, err)
		}
		if i < passes-1 {
			if err := sleep(ctx, e.cfg.PassInterval); err != nil {
				return nil, err
			}
		}
	}

	rec.Normalize()
	e.logger.Info("extraction complete",
		"url", rec.URL,
		"title", rec.Title != "",
		"price", rec.Price.Current,
		"main_images", len(rec.MainImages),
		"detail_images", len(rec.DetailImages),
		"duration", time.Since(start),
	)
	return rec.Clone(), nil
}

// pass snapshots the page once and runs every field extractor in order.
func (e *Extractor) pass(ctx context.Context, rec *types.ProductRecord) error {
	markup, err := e.page.Snapshot(ctx)
	if err != nil {
		return err
	}
	doc, err := parser.ParseDocument(e.page.URL(), markup)
	if err != nil {
		return err
	}
	e.apply(doc, rec)
	return nil
}

// apply assigns every field found in doc. Fields that are not found keep
// their previous value. Leaf scans only run for fields still empty, so a
// locator hit from an earlier pass is never replaced by a scan guess.
func (e *Extractor) apply(doc *parser.Document, rec *types.ProductRecord) {
	if title, ok := e.extractTitle(doc, rec.Title == ""); ok {
		rec.Title = title
	}

	if current, ok := e.extractPrice(doc, rec.Price.Current == ""); ok {
		rec.Price.Current = current
	}
	if original, ok := e.extractOriginalPrice(doc); ok {
		rec.Price.Original = original
	}
	// Derived, so it always tracks the current prices.
	rec.Price.Discount = Discount(rec.Price.Current, rec.Price.Original)

	if sales, ok := e.extractSales(doc, rec.Sales == ""); ok {
		rec.Sales = sales
	}

	if imgs := e.extractMainImages(doc); len(imgs) > 0 {
		rec.MainImages = imgs
	}
	if imgs := e.extractDetailImages(doc); len(imgs) > 0 {
		rec.DetailImages = imgs
	}
}

// sleep pauses for d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
