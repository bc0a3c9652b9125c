package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"golang.org/x/time/rate"

	"github.com/IshaanNene/ItemSnap/internal/config"
	"github.com/IshaanNene/ItemSnap/internal/export"
	"github.com/IshaanNene/ItemSnap/internal/observability"
	"github.com/IshaanNene/ItemSnap/internal/types"
)

// DownloadResult tracks a downloaded file.
type DownloadResult struct {
	URL         string        `json:"url"`
	LocalPath   string        `json:"local_path"`
	Size        int64         `json:"size"`
	ContentType string        `json:"content_type"`
	Hash        string        `json:"hash"`
	Duration    time.Duration `json:"duration"`
}

// Failure is an image that could not be downloaded.
type Failure struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Report summarizes one DownloadRecord call.
type Report struct {
	Dir        string            `json:"dir"`
	InfoPath   string            `json:"info_path"`
	Downloaded []*DownloadResult `json:"downloaded"`
	Failed     []Failure         `json:"failed,omitempty"`
}

// Downloader saves a record's images one at a time, paced by a limiter.
type Downloader struct {
	outputDir string
	client    *http.Client
	maxSize   int64
	limiter   *rate.Limiter
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) { d.client = c }
}

// WithMetrics records download counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Downloader) { d.metrics = m }
}

// NewDownloader creates a new media downloader.
func NewDownloader(cfg config.MediaConfig, logger *slog.Logger, opts ...Option) *Downloader {
	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}
	d := &Downloader{
		outputDir: cfg.Dir,
		client:    &http.Client{Timeout: 60 * time.Second},
		maxSize:   cfg.MaxSizeMB * 1024 * 1024,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger.With("component", "media_downloader"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// RecordFolder names the directory for rec: item_<id> when the URL carries
// an id parameter, else a short hash of the URL.
func RecordFolder(rec *types.ProductRecord) string {
	if u, err := url.Parse(rec.URL); err == nil {
		if id := unsafeChars.ReplaceAllString(u.Query().Get("id"), ""); id != "" {
			return "item_" + id
		}
	}
	sum := sha256.Sum256([]byte(rec.URL))
	return "item_" + hex.EncodeToString(sum[:6])
}

// Group selects which image lists DownloadGroups fetches.
type Group int

const (
	GroupMain Group = 1 << iota
	GroupDetail

	GroupAll = GroupMain | GroupDetail
)

// DownloadRecord writes the info sheet, then every main image as
// main_<n>.jpg and every detail image as detail_<n>.jpg. Failed images are
// logged and skipped; only an unusable output directory or ctx ending
// aborts the run.
func (d *Downloader) DownloadRecord(ctx context.Context, rec *types.ProductRecord) (*Report, error) {
	return d.DownloadGroups(ctx, rec, GroupAll)
}

// DownloadGroups is DownloadRecord restricted to the image lists in want.
// The info sheet is always written.
func (d *Downloader) DownloadGroups(ctx context.Context, rec *types.ProductRecord, want Group) (*Report, error) {
	if rec == nil {
		return nil, types.ErrNoRecord
	}

	dir := filepath.Join(d.outputDir, RecordFolder(rec))
	infoPath, err := export.SaveFile(dir, export.InfoFilename, func(w io.Writer) error {
		return export.WriteInfo(w, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("write info: %w", err)
	}

	report := &Report{Dir: dir, InfoPath: infoPath}
	groups := []struct {
		group  Group
		prefix string
		urls   []string
	}{
		{GroupMain, "main", rec.MainImages},
		{GroupDetail, "detail", rec.DetailImages},
	}
	for _, g := range groups {
		if want&g.group == 0 {
			continue
		}
		for i, u := range g.urls {
			if err := d.limiter.Wait(ctx); err != nil {
				return report, err
			}
			dest := filepath.Join(dir, fmt.Sprintf("%s_%d.jpg", g.prefix, i+1))
			res, err := d.Download(ctx, u, dest)
			if err != nil {
				if ctx.Err() != nil {
					return report, ctx.Err()
				}
				d.logger.Warn("download failed", "url", u, "error", err)
				report.Failed = append(report.Failed, Failure{URL: u, Error: err.Error()})
				continue
			}
			report.Downloaded = append(report.Downloaded, res)
		}
	}

	d.logger.Info("record images downloaded",
		"dir", dir,
		"downloaded", len(report.Downloaded),
		"failed", len(report.Failed),
	)
	return report, nil
}

// Download fetches rawURL into dest.
func (d *Downloader) Download(ctx context.Context, rawURL, dest string) (result *DownloadResult, err error) {
	defer func() {
		if d.metrics == nil {
			return
		}
		if err != nil {
			d.metrics.ImagesFailed.Add(1)
		} else {
			d.metrics.ImagesDownloaded.Add(1)
			d.metrics.BytesDownloaded.Add(result.Size)
		}
	}()

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %d", rawURL, resp.StatusCode)
	}
	if d.maxSize > 0 && resp.ContentLength > d.maxSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", resp.ContentLength, d.maxSize)
	}

	f, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	hasher := sha256.New()
	var reader io.Reader = resp.Body
	if d.maxSize > 0 {
		reader = io.LimitReader(resp.Body, d.maxSize+1)
	}
	size, err := io.Copy(io.MultiWriter(f, hasher), reader)
	if err != nil {
		f.Close()
		os.Remove(dest)
		return nil, fmt.Errorf("write file: %w", err)
	}
	if d.maxSize > 0 && size > d.maxSize {
		f.Close()
		os.Remove(dest)
		return nil, fmt.Errorf("file too large: over %d bytes", d.maxSize)
	}

	result = &DownloadResult{
		URL:         rawURL,
		LocalPath:   dest,
		Size:        size,
		ContentType: resp.Header.Get("Content-Type"),
		Hash:        hex.EncodeToString(hasher.Sum(nil)),
		Duration:    time.Since(start),
	}
	d.logger.Debug("file downloaded",
		"url", rawURL,
		"size", humanSize(size),
		"hash", result.Hash[:16],
		"duration", result.Duration,
	)
	return result, nil
}

func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
