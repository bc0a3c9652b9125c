package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/ItemSnap/internal/api"
	"github.com/IshaanNene/ItemSnap/internal/config"
	"github.com/IshaanNene/ItemSnap/internal/fetcher"
	"github.com/IshaanNene/ItemSnap/internal/observability"
	"github.com/IshaanNene/ItemSnap/internal/storage"
)

var (
	cfgFile string
	envFile string
	verbose bool
	logJSON bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "itemsnap",
		Short: "ItemSnap — Taobao/Tmall product page extractor",
		Long: `ItemSnap extracts title, prices, discount, sales and image URLs from
Taobao and Tmall product pages.

Features:
  • Ordered CSS/XPath locator fallbacks with configurable overrides
  • Headless browser, plain HTTP or saved-HTML page sources
  • Batch list persisted to a file, MongoDB or PostgreSQL
  • JSON, CSV and XLSX exports
  • Paced image downloads with a product info sheet
  • Local HTTP service with scheduled batch refresh`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnv(envFile)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log in JSON format")

	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(downloadCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadEnv exports ITEMSNAP_* overrides from a dotenv file. A missing file is fine.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// loadConfig reads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if logJSON {
		cfg.Logging.Format = "json"
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setupLogger creates a structured logger.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// app bundles the components shared by the subcommands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	opener  *fetcher.Opener
	handler *api.Handler
	store   storage.Store
	batch   *storage.Batch
}

// newApp loads the config and wires the extraction handler. htmlFile, when
// set, replaces network access with a saved page.
func newApp(htmlFile string) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := setupLogger(cfg.Logging)
	metrics := observability.NewMetrics(logger)

	var opts []fetcher.OpenerOption
	if htmlFile != "" {
		opts = append(opts, fetcher.WithHTMLFile(htmlFile))
	}
	opener := fetcher.NewOpener(cfg, logger, opts...)

	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		opener:  opener,
		handler: api.NewHandler(opener, cfg, logger, metrics),
	}, nil
}

// openBatch connects the configured backend and loads the batch list.
func (a *app) openBatch(ctx context.Context) (*storage.Batch, error) {
	if a.batch != nil {
		return a.batch, nil
	}
	store, err := storage.Open(ctx, &a.cfg.Batch, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open batch store: %w", err)
	}
	batch, err := storage.LoadBatch(ctx, store, a.logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	a.store, a.batch = store, batch
	a.metrics.BatchSize.Store(int64(batch.Len()))
	return batch, nil
}

func (a *app) Close() {
	if err := a.opener.Close(); err != nil {
		a.logger.Warn("close page source", "error", err)
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close batch store", "error", err)
		}
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ItemSnap %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			printConfig(cfg)
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}
			fmt.Println("✅ Configuration is valid")
			return nil
		},
	})
	return cmd
}

func printConfig(cfg *config.Config) {
	fmt.Printf("Extract:\n")
	fmt.Printf("  Load Timeout:      %s\n", cfg.Extract.LoadTimeout)
	fmt.Printf("  Scroll Delay:      %s\n", cfg.Extract.ScrollDelay)
	fmt.Printf("  Max Scrolls:       %d\n", cfg.Extract.MaxScrolls)
	fmt.Printf("  Settle Delay:      %s\n", cfg.Extract.SettleDelay)
	fmt.Printf("  Passes:            %d every %s\n", cfg.Extract.Passes, cfg.Extract.PassInterval)
	fmt.Printf("\nSite:\n")
	fmt.Printf("  Domains:           %s\n", strings.Join(cfg.Site.Domains, ", "))
	fmt.Printf("  CDN Domains:       %s\n", strings.Join(cfg.Site.CDNDomains, ", "))
	fmt.Printf("  Main Image Size:   %s\n", cfg.Site.MainImageSize)
	fmt.Printf("\nFetcher:\n")
	fmt.Printf("  Type:              %s\n", cfg.Fetcher.Type)
	fmt.Printf("  Request Timeout:   %s\n", cfg.Fetcher.RequestTimeout)
	fmt.Printf("  Headless:          %v\n", cfg.Fetcher.Headless)
	fmt.Printf("\nBatch:\n")
	fmt.Printf("  Backend:           %s\n", cfg.Batch.Backend)
	if cfg.Batch.Backend == "file" {
		fmt.Printf("  Path:              %s\n", cfg.Batch.Path)
	}
	if cfg.Batch.RefreshSchedule != "" {
		fmt.Printf("  Refresh Schedule:  %s\n", cfg.Batch.RefreshSchedule)
	}
	fmt.Printf("\nOutput:\n")
	fmt.Printf("  Export Dir:        %s\n", cfg.Export.Dir)
	fmt.Printf("  Media Dir:         %s\n", cfg.Media.Dir)
	fmt.Printf("  Download Interval: %s\n", cfg.Media.Interval)
	fmt.Printf("\nAPI:\n")
	fmt.Printf("  Port:              %d\n", cfg.API.Port)
	fmt.Printf("  Metrics:           %v\n", cfg.Metrics.Enabled)
}
