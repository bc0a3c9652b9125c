package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/IshaanNene/ItemSnap/internal/parser"
)

// Metrics tracks operational counters for extraction, batch and media work.
type Metrics struct {
	// Extraction metrics
	ExtractionsTotal   atomic.Int64
	ExtractionsFailed  atomic.Int64
	ExtractionsRefused atomic.Int64

	// Locator metrics
	LocatorHits   atomic.Int64
	LocatorMisses atomic.Int64
	LocatorErrors atomic.Int64

	// Batch metrics
	RecordsAdded   atomic.Int64
	RecordsUpdated atomic.Int64
	BatchSize      atomic.Int64

	// Output metrics
	ExportsTotal     atomic.Int64
	ImagesDownloaded atomic.Int64
	ImagesFailed     atomic.Int64
	BytesDownloaded  atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ObserveLocator counts one locator evaluation. It satisfies parser.Observer.
func (m *Metrics) ObserveLocator(loc parser.Locator, matched bool, err error) {
	switch {
	case err != nil:
		m.LocatorErrors.Add(1)
	case matched:
		m.LocatorHits.Add(1)
	default:
		m.LocatorMisses.Add(1)
	}
}

type metric struct {
	name  string
	help  string
	kind  string
	value int64
}

func (m *Metrics) collect() []metric {
	return []metric{
		{"itemsnap_extractions_total", "Total extraction requests", "counter", m.ExtractionsTotal.Load()},
		{"itemsnap_extractions_failed_total", "Extractions that returned an error", "counter", m.ExtractionsFailed.Load()},
		{"itemsnap_extractions_refused_total", "Extractions refused for unsupported pages", "counter", m.ExtractionsRefused.Load()},
		{"itemsnap_locator_hits_total", "Locator evaluations that matched", "counter", m.LocatorHits.Load()},
		{"itemsnap_locator_misses_total", "Locator evaluations that matched nothing", "counter", m.LocatorMisses.Load()},
		{"itemsnap_locator_errors_total", "Malformed locators skipped", "counter", m.LocatorErrors.Load()},
		{"itemsnap_batch_records_added_total", "Records appended to the batch", "counter", m.RecordsAdded.Load()},
		{"itemsnap_batch_records_updated_total", "Batch records replaced by URL", "counter", m.RecordsUpdated.Load()},
		{"itemsnap_batch_size", "Current number of batch records", "gauge", m.BatchSize.Load()},
		{"itemsnap_exports_total", "Export files produced", "counter", m.ExportsTotal.Load()},
		{"itemsnap_images_downloaded_total", "Images downloaded", "counter", m.ImagesDownloaded.Load()},
		{"itemsnap_images_failed_total", "Image downloads that failed", "counter", m.ImagesFailed.Load()},
		{"itemsnap_bytes_downloaded_total", "Image bytes downloaded", "counter", m.BytesDownloaded.Load()},
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	for _, mt := range m.collect() {
		fmt.Fprintf(w, "# HELP %s %s\n", mt.name, mt.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", mt.name, mt.kind)
		fmt.Fprintf(w, "%s %d\n", mt.name, mt.value)
	}
}

// Snapshot returns all metrics keyed by name without the itemsnap_ prefix.
func (m *Metrics) Snapshot() map[string]int64 {
	out := make(map[string]int64)
	for _, mt := range m.collect() {
		out[mt.name[len("itemsnap_"):]] = mt.value
	}
	return out
}
