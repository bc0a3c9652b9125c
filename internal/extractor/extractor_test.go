package extractor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/IshaanNene/ItemSnap/internal/config"
	"github.com/IshaanNene/ItemSnap/internal/fetcher"
	"github.com/IshaanNene/ItemSnap/internal/parser"
	"github.com/IshaanNene/ItemSnap/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const pageURL = "https://detail.tmall.com/item.htm?id=42"

const fullPage = `<html><body>
<div class="tb-detail-hd"><h1> Apple iPhone 15 Pro 256GB 原色钛金属 </h1></div>
<div class="tm-price-panel">
  <div class="tm-price-current"><span class="tm-price-num">¥7999.00</span></div>
  <div class="tm-price-original"><span class="tm-price-num">¥8999.00</span></div>
</div>
<div class="tm-ind-sellCount"><span class="tm-count">月销 2000+</span></div>
<div class="tb-gallery">
  <img src="//img.alicdn.com/imgextra/main1_60x60.jpg">
  <img data-src="https://img.alicdn.com/imgextra/main2_60x60.jpg">
  <img src="//img.alicdn.com/imgextra/main1_60x60.jpg">
</div>
<div id="content">
  <img src="//img.alicdn.com/detail/d1.jpg">
  <img data-original="https://img.alicdn.com/detail/d2.jpg">
  <img src="https://example.com/tracker.gif">
  <img src="//img.alicdn.com/detail/d1.jpg">
</div>
</body></html>`

const emptyPage = `<html><body></body></html>`

// fakePage replays scripted states and snapshots.
type fakePage struct {
	mu        sync.Mutex
	state     string
	loadAfter time.Duration // negative: never fires
	metrics   []fetcher.ScrollMetrics
	snapshots []string

	loadCalls int
	scrolls   []int
	snapCalls int
	metricIdx int
}

func newFakePage(snapshots ...string) *fakePage {
	return &fakePage{
		state:     "complete",
		metrics:   []fetcher.ScrollMetrics{{Offset: 0, Viewport: 800, Height: 5000}},
		snapshots: snapshots,
	}
}

func (p *fakePage) URL() string { return pageURL }

func (p *fakePage) ReadyState(ctx context.Context) (string, error) { return p.state, nil }

func (p *fakePage) WaitLoad(ctx context.Context) error {
	p.mu.Lock()
	p.loadCalls++
	p.mu.Unlock()
	if p.loadAfter < 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	select {
	case <-time.After(p.loadAfter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *fakePage) ScrollMetrics(ctx context.Context) (fetcher.ScrollMetrics, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := p.metrics[min(p.metricIdx, len(p.metrics)-1)]
	p.metricIdx++
	return m, nil
}

func (p *fakePage) ScrollTo(ctx context.Context, top int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrolls = append(p.scrolls, top)
	return nil
}

func (p *fakePage) Snapshot(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.snapshots[min(p.snapCalls, len(p.snapshots)-1)]
	p.snapCalls++
	return s, nil
}

func (p *fakePage) Close() error { return nil }

func fastConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Extract = config.ExtractConfig{
		LoadTimeout:     50 * time.Millisecond,
		ScrollDelay:     time.Millisecond,
		MaxScrolls:      2,
		BottomThreshold: 100,
		SettleDelay:     time.Millisecond,
		Passes:          3,
		PassInterval:    time.Millisecond,
	}
	return cfg
}

var fixedClock = func() time.Time { return time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC) }

func applyHTML(t *testing.T, cfg *config.Config, markup string) *types.ProductRecord {
	t.Helper()
	e := New(newFakePage(markup), cfg, testLogger)
	doc, err := parser.ParseDocument(pageURL, markup)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rec := types.NewProductRecord(pageURL, fixedClock())
	e.apply(doc, rec)
	return rec
}

func TestRunFullPage(t *testing.T) {
	page := newFakePage(fullPage)
	rec, err := New(page, fastConfig(), testLogger, WithClock(fixedClock)).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := &types.ProductRecord{
		Title: "Apple iPhone 15 Pro 256GB 原色钛金属",
		Price: types.Price{Current: "¥7999.00", Original: "¥8999.00", Discount: "8.9折"},
		Sales: "月销 2000+",
		MainImages: []string{
			"https://img.alicdn.com/imgextra/main1_800x800.jpg",
			"https://img.alicdn.com/imgextra/main2_800x800.jpg",
		},
		DetailImages: []string{
			"https://img.alicdn.com/detail/d1.jpg",
			"https://img.alicdn.com/detail/d2.jpg",
		},
		URL:         pageURL,
		ExtractTime: "2024-05-01T08:30:00.000Z",
	}
	if !reflect.DeepEqual(rec, want) {
		t.Errorf("record mismatch\n got: %+v\nwant: %+v", rec, want)
	}
	if page.snapCalls != 3 {
		t.Errorf("snapshots taken = %d, want 3", page.snapCalls)
	}
	if page.loadCalls != 0 {
		t.Errorf("WaitLoad called %d times on a complete page", page.loadCalls)
	}
}

func TestRunLaterPassesNeverErase(t *testing.T) {
	repriced := `<html><body><div class="tm-price-current"><span class="tm-price-num">¥6999.00</span></div></body></html>`
	page := newFakePage(fullPage, emptyPage, repriced)

	rec, err := New(page, fastConfig(), testLogger).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rec.Title == "" || rec.Sales == "" || len(rec.MainImages) != 2 || len(rec.DetailImages) != 2 {
		t.Errorf("fields erased by later passes: %+v", rec)
	}
	if rec.Price.Current != "¥6999.00" {
		t.Errorf("price = %q, want last match ¥6999.00", rec.Price.Current)
	}
	if rec.Price.Discount != "7.8折" {
		t.Errorf("discount = %q, want 7.8折", rec.Price.Discount)
	}
}

const genericLeavesPage = `<html><body><div>
  <p>Customer service hours 9-18 daily</p>
  <span>12</span>
  <span>月销 5 笔</span>
</div></body></html>`

func TestRunLeafScanDoesNotReplaceLocatorHit(t *testing.T) {
	tests := []struct {
		name      string
		snapshots []string
	}{
		{"locator first", []string{fullPage, genericLeavesPage, genericLeavesPage}},
		{"locator last", []string{genericLeavesPage, genericLeavesPage, fullPage}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := New(newFakePage(tt.snapshots...), fastConfig(), testLogger).Run(context.Background())
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if rec.Title != "Apple iPhone 15 Pro 256GB 原色钛金属" {
				t.Errorf("title = %q", rec.Title)
			}
			if rec.Price.Current != "¥7999.00" {
				t.Errorf("price = %q", rec.Price.Current)
			}
			if rec.Sales != "月销 2000+" {
				t.Errorf("sales = %q", rec.Sales)
			}
		})
	}
}

func TestRunLeafScanFillsEmptyFields(t *testing.T) {
	rec, err := New(newFakePage(emptyPage, genericLeavesPage, emptyPage), fastConfig(), testLogger).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rec.Title != "Customer service hours 9-18 daily" || rec.Price.Current != "12" || rec.Sales != "月销 5 笔" {
		t.Errorf("leaf scan results = %+v", rec)
	}
}

func TestRunPassesNoWorseThanOne(t *testing.T) {
	one := fastConfig()
	one.Extract.Passes = 1

	single, err := New(newFakePage(fullPage), one, testLogger, WithClock(fixedClock)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	triple, err := New(newFakePage(fullPage), fastConfig(), testLogger, WithClock(fixedClock)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(single, triple) {
		t.Errorf("three passes differ from one\n one: %+v\nthree: %+v", single, triple)
	}
}

func TestRunEmptyPage(t *testing.T) {
	rec, err := New(newFakePage(emptyPage), fastConfig(), testLogger).Run(context.Background())
	if err != nil {
		t.Fatalf("unresolved fields must not fail the run: %v", err)
	}
	if rec.Title != "" || rec.Price.Current != "" || rec.Sales != "" {
		t.Errorf("expected empty fields, got %+v", rec)
	}
	if rec.MainImages == nil || rec.DetailImages == nil {
		t.Error("image lists should be empty, not nil")
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(newFakePage(fullPage), fastConfig(), testLogger).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWaitReady(t *testing.T) {
	t.Run("load event wins", func(t *testing.T) {
		page := newFakePage(emptyPage)
		page.state = "loading"
		page.loadAfter = 5 * time.Millisecond
		cfg := fastConfig()
		cfg.Extract.LoadTimeout = 5 * time.Second

		start := time.Now()
		if err := New(page, cfg, testLogger).waitReady(context.Background()); err != nil {
			t.Fatal(err)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("waited %s, load event should have won", elapsed)
		}
		if page.loadCalls != 1 {
			t.Errorf("load calls = %d", page.loadCalls)
		}
	})

	t.Run("timeout wins", func(t *testing.T) {
		page := newFakePage(emptyPage)
		page.state = "interactive"
		page.loadAfter = -1

		start := time.Now()
		if err := New(page, fastConfig(), testLogger).waitReady(context.Background()); err != nil {
			t.Fatal(err)
		}
		if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
			t.Errorf("returned after %s, before the load timeout", elapsed)
		}
	})

	t.Run("context cancelled", func(t *testing.T) {
		page := newFakePage(emptyPage)
		page.state = "loading"
		page.loadAfter = -1
		cfg := fastConfig()
		cfg.Extract.LoadTimeout = 5 * time.Second

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if err := New(page, cfg, testLogger).waitReady(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})
}

func TestScroll(t *testing.T) {
	tests := []struct {
		name    string
		metrics []fetcher.ScrollMetrics
		want    []int
	}{
		{
			name:    "stops at iteration cap",
			metrics: []fetcher.ScrollMetrics{{Offset: 0, Viewport: 800, Height: 5000}, {Offset: 1200, Viewport: 800, Height: 7000}},
			want:    []int{5000, 7000, 0},
		},
		{
			name:    "stops early near bottom",
			metrics: []fetcher.ScrollMetrics{{Offset: 4150, Viewport: 800, Height: 5000}},
			want:    []int{5000, 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := newFakePage(emptyPage)
			page.metrics = tt.metrics
			if err := New(page, fastConfig(), testLogger).scroll(context.Background()); err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(page.scrolls, tt.want) {
				t.Errorf("scrolls = %v, want %v", page.scrolls, tt.want)
			}
		})
	}
}

func TestDiscount(t *testing.T) {
	tests := []struct {
		current, original, want string
	}{
		{"¥50", "¥100", "5.0折"},
		{"88", "100", "8.8折"},
		{"￥59.90", "￥99.00", "6.1折"},
		{"99元", "199元", "5.0折"},
		{"¥ 50", "¥ 100", "5.0折"},
		{"¥100", "¥100", ""},
		{"¥120", "¥100", ""},
		{"", "¥100", ""},
		{"¥50", "", ""},
		{"面议", "¥100", ""},
		{"0", "100", ""},
	}
	for _, tt := range tests {
		if got := Discount(tt.current, tt.original); got != tt.want {
			t.Errorf("Discount(%q, %q) = %q, want %q", tt.current, tt.original, got, tt.want)
		}
	}
}

func TestTitleLocatorPriority(t *testing.T) {
	rec := applyHTML(t, fastConfig(), `<html><body>
		<h1>Generic heading text</h1>
		<div class="itemTitle">  Specific Item Title  </div>
	</body></html>`)
	if rec.Title != "Specific Item Title" {
		t.Errorf("title = %q", rec.Title)
	}
}

func TestTitleLeafFallback(t *testing.T) {
	rec := applyHTML(t, fastConfig(), `<html><body><div>
		<span>短</span>
		<span>价格说明文字很长很长很长</span>
		<span>¥ 1234567890123</span>
		<p>This is a long product name</p>
	</div></body></html>`)
	if rec.Title != "This is a long product name" {
		t.Errorf("title = %q", rec.Title)
	}
}

func TestPriceFallbacks(t *testing.T) {
	tests := []struct {
		name, body, want string
	}{
		{"locator", `<span class="tb-rmb-num"> 99.00 </span><span>¥5</span>`, "99.00"},
		{"prefixed", `<span>促销</span><span>¥128.50</span>`, "¥128.50"},
		{"suffixed", `<span>128元</span>`, "128元"},
		{"three decimals rejected", `<span>¥1.234</span>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := applyHTML(t, fastConfig(), "<html><body>"+tt.body+"</body></html>")
			if rec.Price.Current != tt.want {
				t.Errorf("price = %q, want %q", rec.Price.Current, tt.want)
			}
		})
	}
}

func TestSalesFallback(t *testing.T) {
	rec := applyHTML(t, fastConfig(), `<html><body><span>已售罄</span><span>已售 300 件</span></body></html>`)
	if rec.Sales != "已售 300 件" {
		t.Errorf("sales = %q", rec.Sales)
	}
}

func TestMainImageNormalization(t *testing.T) {
	cfg := fastConfig()
	cfg.Site.CDNDomains = []string{"cdn.example"}
	rec := applyHTML(t, cfg, `<html><body><div class="tb-gallery">
		<img src="//cdn.example/img_100x100.jpg">
		<img data-lazy-src="//cdn.example/img_200x200.jpg">
		<img src="data:image/gif;base64,R0lGOD">
	</div></body></html>`)

	want := []string{"https://cdn.example/img_800x800.jpg"}
	if !reflect.DeepEqual(rec.MainImages, want) {
		t.Errorf("main images = %v, want %v", rec.MainImages, want)
	}
}

func TestMainImageFallbackScan(t *testing.T) {
	rec := applyHTML(t, fastConfig(), `<html><body>
		<img src="https://img.alicdn.com/bao/a_60x60.jpg" width="120">
		<img src="https://img.alicdn.com/avatar/u_80x80.jpg" width="120">
		<img src="https://img.alicdn.com/bao/tiny.jpg" width="30" height="30">
		<img src="https://other.example/b.jpg" width="200">
		<img src="placeholder.gif" data-rendered-src="https://img.alicdn.com/bao/c.jpg" data-rendered-width="0" data-rendered-height="300">
	</body></html>`)

	want := []string{
		"https://img.alicdn.com/bao/a_400x400.jpg",
		"https://img.alicdn.com/bao/c.jpg",
	}
	if !reflect.DeepEqual(rec.MainImages, want) {
		t.Errorf("main images = %v, want %v", rec.MainImages, want)
	}
}

func TestDetailImagesNeedContainer(t *testing.T) {
	rec := applyHTML(t, fastConfig(), `<html><body>
		<div class="desc"><img src="//img.alicdn.com/detail/d1.jpg" width="750"></div>
	</body></html>`)
	if len(rec.DetailImages) != 0 {
		t.Errorf("detail images without container = %v, want none", rec.DetailImages)
	}
}

func TestLocatorsFromConfig(t *testing.T) {
	cfg := fastConfig()
	cfg.Site.Locators.Title = []config.LocatorRule{{Selector: ".custom-title"}}

	l := LocatorsFromConfig(cfg.Site.Locators)
	if len(l.Title) != 1 || l.Title[0] != parser.CSS(".custom-title") {
		t.Errorf("title override not applied: %v", l.Title)
	}
	if !reflect.DeepEqual(l.Price, DefaultLocators().Price) {
		t.Error("price list should keep defaults")
	}

	e := New(newFakePage(emptyPage), cfg, testLogger)
	doc, _ := parser.ParseDocument(pageURL, `<html><body><h1>Default heading wins otherwise</h1><b class="custom-title">Configured Title</b></body></html>`)
	if title, _ := e.extractTitle(doc, true); title != "Configured Title" {
		t.Errorf("title = %q", title)
	}
}

func BenchmarkApply(b *testing.B) {
	e := New(newFakePage(fullPage), fastConfig(), testLogger)
	doc, err := parser.ParseDocument(pageURL, fullPage)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.apply(doc, types.NewProductRecord(pageURL, fixedClock()))
	}
}
