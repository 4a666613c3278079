package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tayerthiaggo/arcrest2shp/internal/config"
)

// emptyConfigFile writes a config file so tests never pick up one from
// the working or home directory.
func emptyConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.DefaultConfigFile)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestBuildConfig tests flag parsing into a Config.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	const root = "https://gis.example.com/arcgis/rest/services"

	t.Run("run flags", func(t *testing.T) {
		t.Parallel()
		cmd := NewRunCmd()
		err := cmd.ParseFlags([]string{
			"-a", "aoi.geojson", "--aoi-srid", "28350",
			"-o", "out", "-w", "4",
			"--converter", "native", "--page-size", "500",
			"--timeout", "30s", "--max-retries", "3", "--retry-delay", "1s",
			"--rate", "2.5", "--robots", "--no-cleanup", "--no-history",
			"--name-strategy", "plain",
			"-c", emptyConfigFile(t, "defaults: {}\n"),
		})
		if err != nil {
			t.Fatalf("ParseFlags: %v", err)
		}

		cfg, err := buildConfig(cmd, root)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.RootURL != root || cfg.AOIPath != "aoi.geojson" || cfg.AOISRID != 28350 || cfg.OutputDir != "out" {
			t.Errorf("unexpected paths: %+v", cfg)
		}
		if cfg.Workers != 4 || cfg.PageSize != 500 || cfg.Converter != config.ConverterNative {
			t.Errorf("unexpected worker settings: %+v", cfg)
		}
		if cfg.Timeout != 30*time.Second || cfg.MaxRetries != 3 || cfg.RetryDelay != time.Second {
			t.Errorf("unexpected network settings: %+v", cfg)
		}
		if cfg.RequestsPerSecond != 2.5 || !cfg.RespectRobots {
			t.Errorf("unexpected politeness settings: %+v", cfg)
		}
		if cfg.Cleanup || cfg.SaveToDB {
			t.Error("expected cleanup and history to be disabled")
		}
		if cfg.NameStrategy != "plain" {
			t.Errorf("expected plain strategy, got %q", cfg.NameStrategy)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}
	})

	t.Run("run defaults", func(t *testing.T) {
		t.Parallel()
		cmd := NewRunCmd()
		if err := cmd.ParseFlags([]string{"-c", emptyConfigFile(t, "defaults: {}\n")}); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, root)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cfg.Cleanup || !cfg.SaveToDB {
			t.Error("expected cleanup and history enabled by default")
		}
		if cfg.Workers != config.DefaultWorkers || cfg.MaxRetries != config.DefaultMaxRetries {
			t.Errorf("unexpected defaults: %+v", cfg)
		}
		if !errors.Is(cfg.Validate(), config.ErrNoAOI) {
			t.Errorf("expected ErrNoAOI without --aoi, got %v", cfg.Validate())
		}
	})

	t.Run("crawl command has no run flags", func(t *testing.T) {
		t.Parallel()
		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"-c", emptyConfigFile(t, "defaults: {}\n")}); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, root)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.AOIPath != "" || cfg.OutputDir != "" {
			t.Errorf("expected no AOI or output, got %q %q", cfg.AOIPath, cfg.OutputDir)
		}
		if err := cfg.ValidateCrawl(); err != nil {
			t.Errorf("expected valid crawl config, got %v", err)
		}
	})

	t.Run("loads service settings from the config file", func(t *testing.T) {
		t.Parallel()
		cmd := NewCrawlCmd()
		path := emptyConfigFile(t, `services:
  gis.example.com:
    token: "abc"
    containerPatterns:
      - "_Tiled/MapServer"
`)
		if err := cmd.ParseFlags([]string{"--config", path}); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, root)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		svc := cfg.Service()
		if svc.Token != "abc" {
			t.Errorf("expected token abc, got %q", svc.Token)
		}
		if len(svc.ContainerPatterns) != 1 || svc.ContainerPatterns[0] != "_Tiled/MapServer" {
			t.Errorf("expected file container patterns, got %v", svc.ContainerPatterns)
		}
	})

	t.Run("explicit missing config file is an error", func(t *testing.T) {
		t.Parallel()
		cmd := NewCrawlCmd()
		missing := filepath.Join(t.TempDir(), "missing.yaml")
		if err := cmd.ParseFlags([]string{"--config", missing}); err != nil {
			t.Fatal(err)
		}

		if _, err := buildConfig(cmd, root); !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}

func TestGetVerboseFlag(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	if err := root.ParseFlags([]string{"-v"}); err != nil {
		t.Fatal(err)
	}
	if !getVerboseFlag(root) {
		t.Error("expected verbose to be true")
	}

	if getVerboseFlag(NewInitCmd()) {
		t.Error("expected false when no verbose flag is registered")
	}
}
