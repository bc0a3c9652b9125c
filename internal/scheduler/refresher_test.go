package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/IshaanNene/ItemSnap/internal/observability"
	"github.com/IshaanNene/ItemSnap/internal/storage"
	"github.com/IshaanNene/ItemSnap/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeExtractor struct {
	mu       sync.Mutex
	prices   map[string]string
	fail     map[string]bool
	redirect map[string]string
	calls    []string
	onCall   func()
}

func (f *fakeExtractor) Extract(ctx context.Context, rawURL string) (*types.ProductRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, rawURL)
	onCall := f.onCall
	f.mu.Unlock()
	if onCall != nil {
		onCall()
	}
	if f.fail[rawURL] {
		return nil, types.ErrPageUnreachable
	}
	final := rawURL
	if to, ok := f.redirect[rawURL]; ok {
		final = to
	}
	rec := types.NewProductRecord(final, time.Now())
	rec.Title = "refreshed"
	rec.Price.Current = f.prices[rawURL]
	return rec, nil
}

func newBatch(t *testing.T, urls ...string) *storage.Batch {
	t.Helper()
	ctx := context.Background()
	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "batch.json"), testLogger)
	if err != nil {
		t.Fatal(err)
	}
	b, err := storage.LoadBatch(ctx, store, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range urls {
		rec := types.NewProductRecord(u, time.Now())
		rec.Title = "original"
		rec.Price.Current = "¥100"
		if _, err := b.Upsert(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	return b
}

func TestNewRefresherRejectsBadSchedule(t *testing.T) {
	b := newBatch(t)
	if _, err := NewRefresher("every tuesday", b, &fakeExtractor{}, nil, testLogger); err == nil {
		t.Error("expected error for invalid schedule")
	}
	if _, err := NewRefresher("0 */30 * * * *", b, &fakeExtractor{}, nil, testLogger); err != nil {
		t.Errorf("valid schedule rejected: %v", err)
	}
	if _, err := NewRefresher("@hourly", b, &fakeExtractor{}, nil, testLogger); err != nil {
		t.Errorf("descriptor rejected: %v", err)
	}
}

func TestRefreshAll(t *testing.T) {
	a := "https://item.taobao.com/item.htm?id=1"
	bURL := "https://detail.tmall.com/item.htm?id=2"
	c := "https://item.taobao.com/item.htm?id=3"
	batch := newBatch(t, a, bURL, c)

	ex := &fakeExtractor{
		prices: map[string]string{a: "¥100", bURL: "¥80"},
		fail:   map[string]bool{c: true},
	}
	metrics := observability.NewMetrics(testLogger)
	r, err := NewRefresher("@hourly", batch, ex, metrics, testLogger)
	if err != nil {
		t.Fatal(err)
	}

	sum, err := r.RefreshAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum != (Summary{Refreshed: 2, Failed: 1, Changed: 1}) {
		t.Errorf("summary = %+v", sum)
	}

	recs := batch.Records()
	if len(recs) != 3 {
		t.Fatalf("batch len = %d", len(recs))
	}
	if recs[0].Title != "refreshed" || recs[1].Price.Current != "¥80" {
		t.Errorf("refreshed records = %+v, %+v", recs[0], recs[1])
	}
	if recs[2].Title != "original" {
		t.Errorf("failed refresh should keep the stored record, got %+v", recs[2])
	}
	if got := metrics.RecordsUpdated.Load(); got != 2 {
		t.Errorf("records_updated = %d", got)
	}
	if len(ex.calls) != 3 || ex.calls[0] != a || ex.calls[2] != c {
		t.Errorf("calls = %v", ex.calls)
	}
}

func TestRefreshAllKeepsBatchURLAfterRedirect(t *testing.T) {
	item := "https://item.taobao.com/item.htm?id=1"
	batch := newBatch(t, item)
	ex := &fakeExtractor{
		prices:   map[string]string{item: "¥90"},
		redirect: map[string]string{item: "https://detail.tmall.com/item.htm?id=1&spm=a1"},
	}
	r, _ := NewRefresher("@hourly", batch, ex, nil, testLogger)

	for i := 0; i < 2; i++ {
		sum, err := r.RefreshAll(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if sum.Refreshed != 1 {
			t.Fatalf("run %d: summary = %+v", i+1, sum)
		}
	}

	recs := batch.Records()
	if len(recs) != 1 {
		t.Fatalf("batch grew to %d records: %v", len(recs), batch.URLs())
	}
	if recs[0].URL != item || recs[0].Title != "refreshed" || recs[0].Price.Current != "¥90" {
		t.Errorf("record = %+v", recs[0])
	}
}

func TestRefreshAllEmptyBatch(t *testing.T) {
	ex := &fakeExtractor{}
	r, _ := NewRefresher("@hourly", newBatch(t), ex, nil, testLogger)
	sum, err := r.RefreshAll(context.Background())
	if err != nil || sum != (Summary{}) || len(ex.calls) != 0 {
		t.Errorf("sum = %+v, err = %v, calls = %v", sum, err, ex.calls)
	}
}

func TestRefreshAllCancelled(t *testing.T) {
	batch := newBatch(t, "https://item.taobao.com/item.htm?id=1", "https://item.taobao.com/item.htm?id=2")
	ctx, cancel := context.WithCancel(context.Background())
	ex := &fakeExtractor{onCall: cancel}
	r, _ := NewRefresher("@hourly", batch, ex, nil, testLogger)

	_, err := r.RefreshAll(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(ex.calls) != 1 {
		t.Errorf("calls after cancel = %d, want 1", len(ex.calls))
	}
}

func TestStartRunsOnSchedule(t *testing.T) {
	batch := newBatch(t, "https://item.taobao.com/item.htm?id=1")
	done := make(chan struct{}, 1)
	ex := &fakeExtractor{onCall: func() {
		select {
		case done <- struct{}{}:
		default:
		}
	}}
	r, err := NewRefresher("* * * * * *", batch, ex, nil, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	defer r.Stop()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled refresh did not run")
	}
}
