package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("ITEMSNAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("itemsnap")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".itemsnap"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env overrides resolve.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("extract.load_timeout", cfg.Extract.LoadTimeout)
	v.SetDefault("extract.scroll_delay", cfg.Extract.ScrollDelay)
	v.SetDefault("extract.max_scrolls", cfg.Extract.MaxScrolls)
	v.SetDefault("extract.bottom_threshold", cfg.Extract.BottomThreshold)
	v.SetDefault("extract.settle_delay", cfg.Extract.SettleDelay)
	v.SetDefault("extract.passes", cfg.Extract.Passes)
	v.SetDefault("extract.pass_interval", cfg.Extract.PassInterval)

	v.SetDefault("site.domains", cfg.Site.Domains)
	v.SetDefault("site.cdn_domains", cfg.Site.CDNDomains)
	v.SetDefault("site.main_image_size", cfg.Site.MainImageSize)
	v.SetDefault("site.fallback_image_size", cfg.Site.FallbackImageSize)
	v.SetDefault("site.min_image_size", cfg.Site.MinImageSize)
	v.SetDefault("site.title_exclude", cfg.Site.TitleExclude)
	v.SetDefault("site.sales_keywords", cfg.Site.SalesKeywords)

	v.SetDefault("fetcher.type", cfg.Fetcher.Type)
	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.user_agent", cfg.Fetcher.UserAgent)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.browser_bin", cfg.Fetcher.BrowserBin)
	v.SetDefault("fetcher.headless", cfg.Fetcher.Headless)

	v.SetDefault("batch.backend", cfg.Batch.Backend)
	v.SetDefault("batch.path", cfg.Batch.Path)
	v.SetDefault("batch.uri", cfg.Batch.URI)
	v.SetDefault("batch.database", cfg.Batch.Database)
	v.SetDefault("batch.collection", cfg.Batch.Collection)
	v.SetDefault("batch.table", cfg.Batch.Table)
	v.SetDefault("batch.refresh_schedule", cfg.Batch.RefreshSchedule)

	v.SetDefault("export.dir", cfg.Export.Dir)

	v.SetDefault("media.dir", cfg.Media.Dir)
	v.SetDefault("media.interval", cfg.Media.Interval)
	v.SetDefault("media.max_size_mb", cfg.Media.MaxSizeMB)

	v.SetDefault("api.port", cfg.API.Port)
	v.SetDefault("api.allowed_origins", cfg.API.AllowedOrigins)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
}
