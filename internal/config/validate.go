package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/IshaanNene/ItemSnap/internal/types"
)

var sizeToken = regexp.MustCompile(`^\d+x\d+$`)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Extract.LoadTimeout <= 0 {
		return fmt.Errorf("extract.load_timeout must be > 0")
	}
	if cfg.Extract.ScrollDelay < 0 || cfg.Extract.SettleDelay < 0 || cfg.Extract.PassInterval < 0 {
		return fmt.Errorf("extract delays must be >= 0")
	}
	if cfg.Extract.MaxScrolls < 1 {
		return fmt.Errorf("extract.max_scrolls must be >= 1, got %d", cfg.Extract.MaxScrolls)
	}
	if cfg.Extract.Passes < 1 {
		return fmt.Errorf("extract.passes must be >= 1, got %d", cfg.Extract.Passes)
	}

	if len(cfg.Site.Domains) == 0 {
		return fmt.Errorf("site.domains must not be empty")
	}
	if len(cfg.Site.CDNDomains) == 0 {
		return fmt.Errorf("site.cdn_domains must not be empty")
	}
	for _, size := range []string{cfg.Site.MainImageSize, cfg.Site.FallbackImageSize} {
		if !sizeToken.MatchString(size) {
			return fmt.Errorf("image size %q must look like 800x800", size)
		}
	}
	for field, rules := range map[string][]LocatorRule{
		"title":            cfg.Site.Locators.Title,
		"price":            cfg.Site.Locators.Price,
		"original_price":   cfg.Site.Locators.OriginalPrice,
		"sales":            cfg.Site.Locators.Sales,
		"main_images":      cfg.Site.Locators.MainImages,
		"detail_container": cfg.Site.Locators.DetailContainer,
	} {
		for _, rule := range rules {
			if rule.Type != "css" && rule.Type != "xpath" && rule.Type != "" {
				return fmt.Errorf("site.locators.%s: type must be css or xpath, got %q", field, rule.Type)
			}
			if strings.TrimSpace(rule.Selector) == "" {
				return fmt.Errorf("site.locators.%s: empty selector", field)
			}
		}
	}

	switch cfg.Fetcher.Type {
	case "browser", "http", "file":
	default:
		return fmt.Errorf("fetcher.type must be 'browser', 'http' or 'file', got %q", cfg.Fetcher.Type)
	}
	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}

	switch cfg.Batch.Backend {
	case "file":
		if cfg.Batch.Path == "" {
			return fmt.Errorf("batch.path is required for the file backend")
		}
	case "mongodb", "postgres":
		if cfg.Batch.URI == "" {
			return fmt.Errorf("batch.uri is required for the %s backend", cfg.Batch.Backend)
		}
	default:
		return fmt.Errorf("batch.backend %q is not supported (valid: file, mongodb, postgres)", cfg.Batch.Backend)
	}

	if cfg.Media.Interval < 0 {
		return fmt.Errorf("media.interval must be >= 0")
	}

	if cfg.API.Port < 1 || cfg.API.Port > 65535 {
		return fmt.Errorf("api.port must be 1-65535, got %d", cfg.API.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

// ValidateURL checks that a URL string can be opened as a page.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", types.ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: URL must have a host", types.ErrInvalidURL)
	}
	return nil
}

// IsSupportedPage reports whether rawURL belongs to one of the site domains.
func IsSupportedPage(rawURL string, domains []string) bool {
	for _, d := range domains {
		if d != "" && strings.Contains(rawURL, d) {
			return true
		}
	}
	return false
}
