package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/IshaanNene/ItemSnap/internal/config"
	"github.com/IshaanNene/ItemSnap/internal/media"
)

func TestLoadEnv(t *testing.T) {
	if err := loadEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing dotenv file should be ignored: %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("ITEMSNAP_TEST_ENV_KEY=loaded\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("ITEMSNAP_TEST_ENV_KEY") })
	if err := loadEnv(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("ITEMSNAP_TEST_ENV_KEY"); got != "loaded" {
		t.Errorf("env = %q", got)
	}
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		cfg  config.LoggingConfig
		want slog.Level
	}{
		{config.LoggingConfig{Level: "debug", Format: "text"}, slog.LevelDebug},
		{config.LoggingConfig{Level: "warn", Format: "json"}, slog.LevelWarn},
		{config.LoggingConfig{Level: "bogus"}, slog.LevelInfo},
	}
	for _, tt := range tests {
		logger := setupLogger(tt.cfg)
		if !logger.Enabled(context.Background(), tt.want) {
			t.Errorf("%+v: level %v not enabled", tt.cfg, tt.want)
		}
		if tt.want > slog.LevelDebug && logger.Enabled(context.Background(), tt.want-4) {
			t.Errorf("%+v: level below %v enabled", tt.cfg, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("短标题", 10); got != "短标题" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("一二三四五六", 4); got != "一二三…" {
		t.Errorf("truncate long = %q", got)
	}
}

func TestImageGroups(t *testing.T) {
	tests := []struct {
		onlyMain, onlyDetail bool
		want                 media.Group
	}{
		{false, false, media.GroupAll},
		{true, false, media.GroupMain},
		{false, true, media.GroupDetail},
	}
	for _, tt := range tests {
		if got := imageGroups(tt.onlyMain, tt.onlyDetail); got != tt.want {
			t.Errorf("imageGroups(%v, %v) = %d, want %d", tt.onlyMain, tt.onlyDetail, got, tt.want)
		}
	}
}

func TestDownloadImageFlagsExclusive(t *testing.T) {
	t.Cleanup(func() { mainOnly, detailOnly = false, false })
	cmd := downloadCmd()
	cmd.SetArgs([]string{"--main-only", "--detail-only", "https://item.taobao.com/item.htm?id=1"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected --main-only and --detail-only to conflict")
	}
}
