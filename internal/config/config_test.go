package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("QUAKEVIEW_HOME", home)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ingest.ChunkSize != 100 || cfg.View.PageSize != 50 || cfg.Ingest.RejectWarnRatio != 0.10 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.HomeDir != home {
		t.Fatalf("home = %q, want %q", cfg.HomeDir, home)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("QUAKEVIEW_HOME", home)
	t.Setenv("QUAKEVIEW_PAGE_SIZE", "25")
	body := `
theme = "light"

[source]
path = "/tmp/catalog.csv"
follow = true

[ingest]
chunk_size = 250

[view]
paginate = true
page_size = 10

[refresh]
schedule = "@every 5m"
`
	path := filepath.Join(home, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Theme != ThemeLight || !cfg.Source.Follow || cfg.Ingest.ChunkSize != 250 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.View.PageSize != 25 {
		t.Fatalf("env should override file page size, got %d", cfg.View.PageSize)
	}
	if cfg.Refresh.Schedule != "@every 5m" {
		t.Fatalf("schedule = %q", cfg.Refresh.Schedule)
	}
	if cfg.SourceURL() != "" {
		t.Fatalf("file source should not fall back to the default feed")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"ratio", func(c *Config) { c.Ingest.RejectWarnRatio = 2 }, "reject_warn_ratio"},
		{"delimiter", func(c *Config) { c.Ingest.Delimiter = ";;" }, "delimiter"},
		{"theme", func(c *Config) { c.Theme = "neon" }, "theme"},
		{"export", func(c *Config) { c.Export.Format = "xml" }, "export format"},
		{"follow", func(c *Config) { c.Source.Follow = true }, "follow"},
		{"page size", func(c *Config) { c.View.PageSize = 0 }, "page_size"},
		{"sort", func(c *Config) { c.View.SortField = "latitude" }, "not sortable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestValidateNormalizes(t *testing.T) {
	c := Default()
	c.Ingest.ChunkSize = 0
	c.View.ItemHeight = -3
	c.View.Overscan = -1
	c.Fetch.Attempts = 0
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if c.Ingest.ChunkSize != 100 || c.View.ItemHeight != 1 || c.View.Overscan != 0 || c.Fetch.Attempts != 1 {
		t.Fatalf("not normalized: %+v", c)
	}
}
