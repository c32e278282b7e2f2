package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mattn/go-isatty"

	"quakeview/internal/filter"
)

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// DefaultFeedURL is the USGS all-events, past-week CSV feed.
const DefaultFeedURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_week.csv"

type SourceConfig struct {
	Path     string `toml:"path"`
	URL      string `toml:"url"`
	Follow   bool   `toml:"follow"`     // tail a growing file
	UseStdin bool   `toml:"stdin"`      // read from stdin (default: auto if piped)
	Stream   bool   `toml:"stream_url"` // parse the HTTP body while it downloads
}

type IngestConfig struct {
	ChunkSize       int     `toml:"chunk_size"`
	RejectWarnRatio float64 `toml:"reject_warn_ratio"`
	FlushIntervalMS int     `toml:"flush_interval_ms"` // follow mode only
	Delimiter       string  `toml:"delimiter"`
}

type FetchConfig struct {
	TimeoutSec  int     `toml:"timeout_sec"`
	Attempts    int     `toml:"attempts"`
	BackoffMS   int     `toml:"backoff_ms"`
	CacheTTLSec int     `toml:"cache_ttl_sec"`
	QPS         float64 `toml:"qps"`
}

type ViewConfig struct {
	Paginate   bool   `toml:"paginate"`
	PageSize   int    `toml:"page_size"`
	ItemHeight int    `toml:"item_height"`
	Overscan   int    `toml:"overscan"`
	SortField  string `toml:"sort_field"`
	SortDesc   bool   `toml:"sort_desc"`
	Debug      bool   `toml:"debug"` // panic on view invariant violations
}

type DetectConfig struct {
	Offline          bool   `toml:"offline"`
	NoCache          bool   `toml:"no_cache"`
	OpenAIModel      string `toml:"openai_model"`
	OpenAIBase       string `toml:"openai_base_url"`
	OpenAITimeoutSec int    `toml:"openai_timeout_sec"`
}

type RefreshConfig struct {
	Schedule string `toml:"schedule"` // cron expression, e.g. "@every 5m"; empty disables
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Stderr bool   `toml:"stderr"`
}

type ExportConfig struct {
	Format string `toml:"format"` // csv|ndjson
	Out    string `toml:"out"`
}

type Config struct {
	Source  SourceConfig  `toml:"source"`
	Ingest  IngestConfig  `toml:"ingest"`
	Fetch   FetchConfig   `toml:"fetch"`
	View    ViewConfig    `toml:"view"`
	Detect  DetectConfig  `toml:"detect"`
	Refresh RefreshConfig `toml:"refresh"`
	Server  ServerConfig  `toml:"server"`
	Log     LogConfig     `toml:"log"`
	Export  ExportConfig  `toml:"export"`
	Theme   Theme         `toml:"theme"`

	// Internal
	HomeDir      string `toml:"-"`
	IsPipedStdin bool   `toml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Ingest: IngestConfig{ChunkSize: 100, RejectWarnRatio: 0.10, FlushIntervalMS: 500, Delimiter: ","},
		Fetch:  FetchConfig{TimeoutSec: 30, Attempts: 4, BackoffMS: 500, CacheTTLSec: 60, QPS: 2},
		View:   ViewConfig{PageSize: 50, ItemHeight: 1, Overscan: 2, SortField: "time", SortDesc: true},
		Detect: DetectConfig{
			Offline:          true,
			OpenAIModel:      getenvDefault("QUAKEVIEW_OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIBase:       getenvDefault("QUAKEVIEW_OPENAI_BASE_URL", ""),
			OpenAITimeoutSec: getenvDefaultInt("QUAKEVIEW_OPENAI_TIMEOUT_SEC", 60),
		},
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Theme:  ThemeDark,
	}
}

// DefaultHome returns the quakeview home directory, honoring QUAKEVIEW_HOME.
func DefaultHome() string {
	if h := os.Getenv("QUAKEVIEW_HOME"); h != "" {
		return h
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".quakeview"
	}
	return filepath.Join(dir, "quakeview")
}

// Load reads the optional TOML file at path (default: <home>/config.toml),
// applies environment overrides and validates the result. Flags are applied
// by the caller afterwards and must be followed by another Validate.
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.HomeDir = DefaultHome()
	cfg.IsPipedStdin = !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd())

	if path == "" {
		path = filepath.Join(cfg.HomeDir, "config.toml")
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.Source.Path = expandPath(cfg.Source.Path)
	cfg.Export.Out = expandPath(cfg.Export.Out)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Source.URL = getenvDefault("QUAKEVIEW_URL", c.Source.URL)
	c.Log.Level = getenvDefault("QUAKEVIEW_LOG_LEVEL", c.Log.Level)
	c.Refresh.Schedule = getenvDefault("QUAKEVIEW_REFRESH", c.Refresh.Schedule)
	c.Ingest.ChunkSize = getenvDefaultInt("QUAKEVIEW_CHUNK_SIZE", c.Ingest.ChunkSize)
	c.View.PageSize = getenvDefaultInt("QUAKEVIEW_PAGE_SIZE", c.View.PageSize)
}

// Validate normalizes defaults and rejects inconsistent settings.
func (c *Config) Validate() error {
	if c.Ingest.ChunkSize <= 0 {
		c.Ingest.ChunkSize = 100
	}
	if c.Ingest.RejectWarnRatio <= 0 || c.Ingest.RejectWarnRatio > 1 {
		return fmt.Errorf("ingest.reject_warn_ratio must be in (0,1], got %v", c.Ingest.RejectWarnRatio)
	}
	if len([]rune(c.Ingest.Delimiter)) != 1 {
		return fmt.Errorf("ingest.delimiter must be a single character, got %q", c.Ingest.Delimiter)
	}
	if c.Fetch.Attempts < 1 {
		c.Fetch.Attempts = 1
	}
	if c.View.PageSize <= 0 {
		return errors.New("view.page_size must be positive")
	}
	if c.View.ItemHeight <= 0 {
		c.View.ItemHeight = 1
	}
	if c.View.Overscan < 0 {
		c.View.Overscan = 0
	}
	if !slices.Contains(filter.SortFields, c.View.SortField) {
		return fmt.Errorf("view.sort_field %q is not sortable (%s)", c.View.SortField, strings.Join(filter.SortFields, "|"))
	}
	switch c.Theme {
	case ThemeDark, ThemeLight:
	default:
		return fmt.Errorf("unknown theme %q", c.Theme)
	}
	switch c.Export.Format {
	case "", "csv", "json", "ndjson":
	default:
		return fmt.Errorf("unknown export format %q (csv|ndjson)", c.Export.Format)
	}
	if c.Source.Follow && c.Source.Path == "" {
		return errors.New("follow requires a file path")
	}
	return nil
}

// UseStdin reports whether input should be read from stdin.
func (c *Config) UseStdin() bool {
	return c.Source.UseStdin || (c.IsPipedStdin && c.Source.Path == "" && c.Source.URL == "")
}

// SourceURL returns the configured URL, or the default feed when no other
// source is set.
func (c *Config) SourceURL() string {
	if c.Source.URL != "" {
		return c.Source.URL
	}
	if c.Source.Path == "" && !c.UseStdin() {
		return DefaultFeedURL
	}
	return ""
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSec) * time.Second
}

func (c *Config) FlushInterval() time.Duration {
	return time.Duration(c.Ingest.FlushIntervalMS) * time.Millisecond
}

// HeaderCacheDir stores resolved header mappings.
func (c *Config) HeaderCacheDir() string {
	return filepath.Join(c.HomeDir, "header-cache")
}

func (c *Config) OpenAIKey() string { return os.Getenv("OPENAI_API_KEY") }

func (c *Config) String() string {
	return fmt.Sprintf("file=%s url=%s stdin=%v follow=%v paginate=%v page=%d theme=%s",
		c.Source.Path, c.SourceURL(), c.UseStdin(), c.Source.Follow, c.View.Paginate, c.View.PageSize, c.Theme)
}

func getenvDefault(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvDefaultInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
