// Package scheduler re-extracts the batch on a cron schedule so stored prices
// and sales counts stay current.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/IshaanNene/ItemSnap/internal/observability"
	"github.com/IshaanNene/ItemSnap/internal/storage"
	"github.com/IshaanNene/ItemSnap/internal/types"
)

// Extractor produces a fresh record for a page URL. *api.Handler implements it.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) (*types.ProductRecord, error)
}

// Summary reports the outcome of one refresh run.
type Summary struct {
	Refreshed int
	Failed    int
	Changed   int
}

// Refresher walks every batch URL, extracts it again and upserts the result.
// A failed extraction keeps the stored record.
type Refresher struct {
	cron      *cron.Cron
	spec      string
	batch     *storage.Batch
	extractor Extractor
	metrics   *observability.Metrics
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewRefresher validates spec (six fields, seconds first) and returns a
// stopped refresher. metrics may be nil.
func NewRefresher(spec string, batch *storage.Batch, extractor Extractor, metrics *observability.Metrics, logger *slog.Logger) (*Refresher, error) {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return &Refresher{
		cron:      cron.New(cron.WithSeconds()),
		spec:      spec,
		batch:     batch,
		extractor: extractor,
		metrics:   metrics,
		logger:    logger.With("component", "refresher"),
	}, nil
}

// Start schedules the refresh job.
func (r *Refresher) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	if _, err := r.cron.AddFunc(r.spec, func() { r.run(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule refresh: %w", err)
	}
	r.cron.Start()
	r.logger.Info("batch refresh scheduled", "schedule", r.spec)
	return nil
}

// Stop cancels an in-flight run and waits for it to return.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()
	<-r.cron.Stop().Done()
}

// run skips a tick while the previous run is still going.
func (r *Refresher) run(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.logger.Warn("previous refresh still running, skipping tick")
		return
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	if _, err := r.RefreshAll(ctx); err != nil {
		r.logger.Warn("refresh aborted", "error", err)
	}
}

// RefreshAll re-extracts every batch URL in order. Pages are visited one at
// a time. Refreshed records keep their batch URL even when the page
// redirected. It returns early with ctx's error when ctx is cancelled.
func (r *Refresher) RefreshAll(ctx context.Context) (Summary, error) {
	var sum Summary
	urls := r.batch.URLs()
	if len(urls) == 0 {
		r.logger.Debug("batch empty, nothing to refresh")
		return sum, nil
	}

	previous := make(map[string]*types.ProductRecord, len(urls))
	for _, rec := range r.batch.Records() {
		previous[rec.URL] = rec
	}

	r.logger.Info("refreshing batch", "records", len(urls))
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		rec, err := r.extractor.Extract(ctx, u)
		if err != nil {
			sum.Failed++
			r.logger.Warn("refresh failed, keeping stored record", "url", u, "error", err)
			continue
		}

		if rec.URL != u {
			r.logger.Debug("page redirected, keeping batch URL", "url", u, "final", rec.URL)
			rec.URL = u
		}

		if old := previous[u]; old != nil && priceChanged(old, rec) {
			sum.Changed++
			r.logger.Info("price changed",
				"url", u,
				"was", old.Price.Current,
				"now", rec.Price.Current,
				"discount", rec.Price.Discount,
			)
		}

		added, err := r.batch.Upsert(ctx, rec)
		if err != nil {
			sum.Failed++
			r.logger.Error("refresh save failed", "url", u, "error", err)
			continue
		}
		sum.Refreshed++
		if r.metrics != nil {
			if added {
				r.metrics.RecordsAdded.Add(1)
			} else {
				r.metrics.RecordsUpdated.Add(1)
			}
			r.metrics.BatchSize.Store(int64(r.batch.Len()))
		}
	}

	r.logger.Info("batch refresh complete",
		"refreshed", sum.Refreshed,
		"failed", sum.Failed,
		"changed", sum.Changed,
	)
	return sum, nil
}

func priceChanged(old, cur *types.ProductRecord) bool {
	return cur.Price.Current != "" && old.Price.Current != cur.Price.Current
}
