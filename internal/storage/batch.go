package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/IshaanNene/ItemSnap/internal/types"
)

// Batch is the ordered list of collected records, unique by URL. Every
// mutation is persisted to the backing store under BatchKey.
type Batch struct {
	store  Store
	logger *slog.Logger

	mu      sync.RWMutex
	records []*types.ProductRecord
	index   map[string]int
}

// LoadBatch reads the persisted batch from store. A missing key yields an
// empty batch.
func LoadBatch(ctx context.Context, store Store, logger *slog.Logger) (*Batch, error) {
	b := &Batch{
		store:  store,
		logger: logger.With("component", "batch"),
		index:  make(map[string]int),
	}

	raw, found, err := store.Get(ctx, BatchKey)
	if err != nil {
		return nil, fmt.Errorf("load batch: %w", err)
	}
	if found && len(raw) > 0 {
		var records []*types.ProductRecord
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, &types.StorageError{Backend: store.Name(), Err: fmt.Errorf("decode batch: %w", err)}
		}
		for _, rec := range records {
			if rec == nil {
				continue
			}
			rec.Normalize()
			b.put(rec)
		}
	}

	b.logger.Info("batch loaded", "backend", store.Name(), "records", len(b.records))
	return b, nil
}

// put appends rec or replaces the record with the same URL in place.
func (b *Batch) put(rec *types.ProductRecord) bool {
	if i, ok := b.index[rec.URL]; ok {
		b.records[i] = rec
		return false
	}
	b.index[rec.URL] = len(b.records)
	b.records = append(b.records, rec)
	return true
}

// Upsert adds rec, or replaces the existing record with the same URL while
// keeping its position. added reports whether the record was new.
func (b *Batch) Upsert(ctx context.Context, rec *types.ProductRecord) (added bool, err error) {
	if rec == nil {
		return false, types.ErrNoRecord
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	prevRecords := append([]*types.ProductRecord(nil), b.records...)
	added = b.put(rec.Clone())
	if err := b.save(ctx); err != nil {
		b.records = prevRecords
		b.reindex()
		return false, err
	}

	b.logger.Info("batch updated", "url", rec.URL, "added", added, "records", len(b.records))
	return added, nil
}

// Clear removes every record.
func (b *Batch) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.store.Delete(ctx, BatchKey); err != nil {
		return fmt.Errorf("clear batch: %w", err)
	}
	b.records = nil
	b.index = make(map[string]int)
	b.logger.Info("batch cleared")
	return nil
}

// Records returns copies of the records in insertion order.
func (b *Batch) Records() []*types.ProductRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*types.ProductRecord, len(b.records))
	for i, rec := range b.records {
		out[i] = rec.Clone()
	}
	return out
}

// URLs returns the record URLs in insertion order.
func (b *Batch) URLs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	urls := make([]string, len(b.records))
	for i, rec := range b.records {
		urls[i] = rec.URL
	}
	return urls
}

// Len returns the number of records.
func (b *Batch) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}

func (b *Batch) reindex() {
	b.index = make(map[string]int, len(b.records))
	for i, rec := range b.records {
		b.index[rec.URL] = i
	}
}

func (b *Batch) save(ctx context.Context) error {
	records := b.records
	if records == nil {
		records = []*types.ProductRecord{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return &types.StorageError{Backend: b.store.Name(), Err: fmt.Errorf("encode batch: %w", err)}
	}
	if err := b.store.Put(ctx, BatchKey, raw); err != nil {
		return fmt.Errorf("save batch: %w", err)
	}
	return nil
}
