package media

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/IshaanNene/ItemSnap/internal/config"
	"github.com/IshaanNene/ItemSnap/internal/observability"
	"github.com/IshaanNene/ItemSnap/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func imageServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "missing.jpg") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg:" + r.URL.Path))
	}))
}

func TestDownloadRecord(t *testing.T) {
	srv := imageServer()
	defer srv.Close()

	dir := t.TempDir()
	metrics := observability.NewMetrics(testLogger)
	d := NewDownloader(config.MediaConfig{Dir: dir, Interval: 5 * time.Millisecond, MaxSizeMB: 1}, testLogger, WithMetrics(metrics))

	rec := types.NewProductRecord("https://item.taobao.com/item.htm?id=12345&spm=a1", time.Now())
	rec.Title = "Test product"
	rec.MainImages = []string{srv.URL + "/m1.jpg", srv.URL + "/m2.jpg"}
	rec.DetailImages = []string{srv.URL + "/missing.jpg", srv.URL + "/d2.jpg"}

	start := time.Now()
	report, err := d.DownloadRecord(context.Background(), rec)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("four downloads took %s, expected pacing", elapsed)
	}

	if report.Dir != filepath.Join(dir, "item_12345") {
		t.Errorf("dir = %q", report.Dir)
	}
	if len(report.Downloaded) != 3 || len(report.Failed) != 1 {
		t.Fatalf("downloaded %d, failed %d", len(report.Downloaded), len(report.Failed))
	}

	for _, name := range []string{"product_info.txt", "main_1.jpg", "main_2.jpg", "detail_2.jpg"} {
		if _, err := os.Stat(filepath.Join(report.Dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(report.Dir, "detail_1.jpg")); !os.IsNotExist(err) {
		t.Error("failed image should not leave a file")
	}

	data, _ := os.ReadFile(filepath.Join(report.Dir, "main_2.jpg"))
	if string(data) != "jpeg:/m2.jpg" {
		t.Errorf("main_2 content = %q", data)
	}

	snap := metrics.Snapshot()
	if snap["images_downloaded_total"] != 3 || snap["images_failed_total"] != 1 {
		t.Errorf("metrics = %v", snap)
	}
}

func TestDownloadRecordCancelled(t *testing.T) {
	srv := imageServer()
	defer srv.Close()

	d := NewDownloader(config.MediaConfig{Dir: t.TempDir(), Interval: time.Hour}, testLogger)
	rec := types.NewProductRecord("https://item.taobao.com/item.htm?id=1", time.Now())
	rec.MainImages = []string{srv.URL + "/a.jpg", srv.URL + "/b.jpg"}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	report, err := d.DownloadRecord(ctx, rec)
	if err == nil {
		t.Fatal("expected the limiter wait to fail")
	}
	if report == nil || len(report.Downloaded) != 1 {
		t.Errorf("expected the first image before pacing blocked, got %+v", report)
	}
}

func TestDownloadGroupsMainOnly(t *testing.T) {
	srv := imageServer()
	defer srv.Close()

	d := NewDownloader(config.MediaConfig{Dir: t.TempDir()}, testLogger)
	rec := types.NewProductRecord("https://item.taobao.com/item.htm?id=7", time.Now())
	rec.MainImages = []string{srv.URL + "/m1.jpg"}
	rec.DetailImages = []string{srv.URL + "/d1.jpg", srv.URL + "/d2.jpg"}

	report, err := d.DownloadGroups(context.Background(), rec, GroupMain)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if len(report.Downloaded) != 1 {
		t.Fatalf("downloaded %d, want 1", len(report.Downloaded))
	}
	for _, name := range []string{"product_info.txt", "main_1.jpg"} {
		if _, err := os.Stat(filepath.Join(report.Dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(report.Dir, "detail_1.jpg")); !os.IsNotExist(err) {
		t.Error("detail images should be skipped")
	}

	report, err = d.DownloadGroups(context.Background(), rec, GroupDetail)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if len(report.Downloaded) != 2 {
		t.Errorf("detail only downloaded %d, want 2", len(report.Downloaded))
	}
}

func TestDownloadRejectsOversizedStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunk := strings.Repeat("x", 64)
		for i := 0; i < 4; i++ {
			_, _ = w.Write([]byte(chunk))
			w.(http.Flusher).Flush()
		}
	}))
	defer srv.Close()

	d := NewDownloader(config.MediaConfig{Dir: t.TempDir()}, testLogger)
	d.maxSize = 100

	dest := filepath.Join(t.TempDir(), "big.jpg")
	if _, err := d.Download(context.Background(), srv.URL+"/big.jpg", dest); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("err = %v, want a size error", err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("oversized download should not leave a file")
	}

	d.maxSize = 256
	res, err := d.Download(context.Background(), srv.URL+"/fits.jpg", dest)
	if err != nil {
		t.Fatalf("download at the limit: %v", err)
	}
	if res.Size != 256 {
		t.Errorf("size = %d, want 256", res.Size)
	}
}

func TestRecordFolder(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://item.taobao.com/item.htm?id=42", "item_42"},
		{"https://detail.tmall.com/item.htm?id=../../etc", "item_etc"},
	}
	for _, tt := range tests {
		if got := RecordFolder(&types.ProductRecord{URL: tt.url}); got != tt.want {
			t.Errorf("RecordFolder(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}

	hashed := RecordFolder(&types.ProductRecord{URL: "https://item.taobao.com/no-id"})
	if !strings.HasPrefix(hashed, "item_") || len(hashed) != len("item_")+12 {
		t.Errorf("hashed folder = %q", hashed)
	}
}

func TestHumanSize(t *testing.T) {
	if got := humanSize(512); got != "512 B" {
		t.Errorf("512 = %q", got)
	}
	if got := humanSize(2048); got != "2.0 KB" {
		t.Errorf("2048 = %q", got)
	}
}
