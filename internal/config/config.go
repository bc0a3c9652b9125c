package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for ItemSnap.
type Config struct {
	Extract ExtractConfig `mapstructure:"extract" yaml:"extract"`
	Site    SiteConfig    `mapstructure:"site"    yaml:"site"`
	Fetcher FetcherConfig `mapstructure:"fetcher" yaml:"fetcher"`
	Batch   BatchConfig   `mapstructure:"batch"   yaml:"batch"`
	Export  ExportConfig  `mapstructure:"export"  yaml:"export"`
	Media   MediaConfig   `mapstructure:"media"   yaml:"media"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// ExtractConfig holds the fixed waits of the extraction run.
type ExtractConfig struct {
	LoadTimeout     time.Duration `mapstructure:"load_timeout"     yaml:"load_timeout"`
	ScrollDelay     time.Duration `mapstructure:"scroll_delay"     yaml:"scroll_delay"`
	MaxScrolls      int           `mapstructure:"max_scrolls"      yaml:"max_scrolls"`
	BottomThreshold int           `mapstructure:"bottom_threshold" yaml:"bottom_threshold"`
	SettleDelay     time.Duration `mapstructure:"settle_delay"     yaml:"settle_delay"`
	Passes          int           `mapstructure:"passes"           yaml:"passes"`
	PassInterval    time.Duration `mapstructure:"pass_interval"    yaml:"pass_interval"`
}

// SiteConfig describes the supported storefront.
type SiteConfig struct {
	Domains           []string       `mapstructure:"domains"             yaml:"domains"`
	CDNDomains        []string       `mapstructure:"cdn_domains"         yaml:"cdn_domains"`
	MainImageSize     string         `mapstructure:"main_image_size"     yaml:"main_image_size"`
	FallbackImageSize string         `mapstructure:"fallback_image_size" yaml:"fallback_image_size"`
	MinImageSize      int            `mapstructure:"min_image_size"      yaml:"min_image_size"`
	TitleExclude      []string       `mapstructure:"title_exclude"       yaml:"title_exclude"`
	SalesKeywords     []string       `mapstructure:"sales_keywords"      yaml:"sales_keywords"`
	Locators          LocatorsConfig `mapstructure:"locators"            yaml:"locators"`
}

// LocatorsConfig overrides the built-in locator lists. Empty lists keep the defaults.
type LocatorsConfig struct {
	Title           []LocatorRule `mapstructure:"title"            yaml:"title"`
	Price           []LocatorRule `mapstructure:"price"            yaml:"price"`
	OriginalPrice   []LocatorRule `mapstructure:"original_price"   yaml:"original_price"`
	Sales           []LocatorRule `mapstructure:"sales"            yaml:"sales"`
	MainImages      []LocatorRule `mapstructure:"main_images"      yaml:"main_images"`
	DetailContainer []LocatorRule `mapstructure:"detail_container" yaml:"detail_container"`
}

// LocatorRule defines a single locator.
type LocatorRule struct {
	Type     string `mapstructure:"type"     yaml:"type"` // css, xpath
	Selector string `mapstructure:"selector" yaml:"selector"`
}

// FetcherConfig controls how pages are opened.
type FetcherConfig struct {
	Type           string        `mapstructure:"type"            yaml:"type"` // browser, http, file
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"      yaml:"user_agent"`
	MaxBodySize    int64         `mapstructure:"max_body_size"   yaml:"max_body_size"`
	BrowserBin     string        `mapstructure:"browser_bin"     yaml:"browser_bin"`
	Headless       bool          `mapstructure:"headless"        yaml:"headless"`
}

// BatchConfig controls where the batch list is persisted.
type BatchConfig struct {
	Backend         string `mapstructure:"backend"          yaml:"backend"` // file, mongodb, postgres
	Path            string `mapstructure:"path"             yaml:"path"`
	URI             string `mapstructure:"uri"              yaml:"uri"`
	Database        string `mapstructure:"database"         yaml:"database"`
	Collection      string `mapstructure:"collection"       yaml:"collection"`
	Table           string `mapstructure:"table"            yaml:"table"`
	RefreshSchedule string `mapstructure:"refresh_schedule" yaml:"refresh_schedule"`
}

// ExportConfig controls export output.
type ExportConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// MediaConfig controls image downloads.
type MediaConfig struct {
	Dir       string        `mapstructure:"dir"         yaml:"dir"`
	Interval  time.Duration `mapstructure:"interval"    yaml:"interval"`
	MaxSizeMB int64         `mapstructure:"max_size_mb" yaml:"max_size_mb"`
}

// APIConfig controls the local extraction service.
type APIConfig struct {
	Port           int      `mapstructure:"port"            yaml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultExtractConfig returns the waits used by the original content script.
func DefaultExtractConfig() ExtractConfig {
	return ExtractConfig{
		LoadTimeout:     3 * time.Second,
		ScrollDelay:     500 * time.Millisecond,
		MaxScrolls:      2,
		BottomThreshold: 100,
		SettleDelay:     2 * time.Second,
		Passes:          3,
		PassInterval:    1 * time.Second,
	}
}

// DefaultSiteConfig returns the Taobao/Tmall site description.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{
		Domains:           []string{"taobao.com", "tmall.com"},
		CDNDomains:        []string{"img.alicdn.com", "alicdn.com"},
		MainImageSize:     "800x800",
		FallbackImageSize: "400x400",
		MinImageSize:      50,
		TitleExclude:      []string{"价格", "¥", "￥", "元"},
		SalesKeywords:     []string{"已售", "销量", "月销"},
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Extract: DefaultExtractConfig(),
		Site:    DefaultSiteConfig(),
		Fetcher: FetcherConfig{
			Type:           "browser",
			RequestTimeout: 30 * time.Second,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			MaxBodySize:    10 * 1024 * 1024, // 10MB
			Headless:       true,
		},
		Batch: BatchConfig{
			Backend:    "file",
			Path:       "./data/batch.json",
			Database:   "itemsnap",
			Collection: "kv",
			Table:      "itemsnap_kv",
		},
		Export: ExportConfig{
			Dir: "./taobao_export",
		},
		Media: MediaConfig{
			Dir:       "./taobao_images",
			Interval:  500 * time.Millisecond,
			MaxSizeMB: 20,
		},
		API: APIConfig{
			Port:           8787,
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}
