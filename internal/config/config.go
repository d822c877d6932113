package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Input         string        `yaml:"input"`
	OutputDir     string        `yaml:"output_dir"`
	Dates         []string      `yaml:"dates"`
	RestThreshold time.Duration `yaml:"rest_threshold"`
	Workers       int           `yaml:"workers"`
	Strict        bool          `yaml:"strict"`

	Log     LogConfig     `yaml:"log"`
	Tables  TablesConfig  `yaml:"tables"`
	Charts  ChartsConfig  `yaml:"charts"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TablesConfig struct {
	Laps     bool  `yaml:"laps"`
	Groups   []int `yaml:"groups"`
	Segments bool  `yaml:"segments"`
}

type ChartsConfig struct {
	Enabled bool `yaml:"enabled"`
	Width   int  `yaml:"width"`  // pixels
	Height  int  `yaml:"height"` // pixels
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		OutputDir:     ".",
		RestThreshold: 10 * time.Second,
		Workers:       4,
		Log:           LogConfig{Level: "info", Format: "text"},
		Tables:        TablesConfig{Laps: true, Groups: []int{100}, Segments: true},
		Charts:        ChartsConfig{Enabled: true, Width: 1600, Height: 1200},
	}
}

// Load starts from Default, overlays the YAML file at path when path is not
// empty, then applies environment variable overrides. Env vars use the prefix
// SWIMLAPS_ and underscore-separated paths:
//
//	SWIMLAPS_INPUT, SWIMLAPS_OUTPUT_DIR, SWIMLAPS_DATES (comma-separated),
//	SWIMLAPS_REST_THRESHOLD, SWIMLAPS_WORKERS, SWIMLAPS_STRICT,
//	SWIMLAPS_LOG_LEVEL, SWIMLAPS_LOG_FORMAT,
//	SWIMLAPS_CHARTS_ENABLED, SWIMLAPS_METRICS_TEXTFILE
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SWIMLAPS_INPUT"); v != "" {
		cfg.Input = v
	}
	if v := os.Getenv("SWIMLAPS_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("SWIMLAPS_DATES"); v != "" {
		cfg.Dates = splitList(v)
	}
	if v := os.Getenv("SWIMLAPS_REST_THRESHOLD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RestThreshold = d
		}
	}
	if v := os.Getenv("SWIMLAPS_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("SWIMLAPS_STRICT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Strict = b
		}
	}
	if v := os.Getenv("SWIMLAPS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SWIMLAPS_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("SWIMLAPS_CHARTS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Charts.Enabled = b
		}
	}
	if v := os.Getenv("SWIMLAPS_METRICS_TEXTFILE"); v != "" {
		cfg.Metrics.Textfile = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks the loaded values. The command calls it again after flags
// have been applied.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.RestThreshold <= 0 {
		return fmt.Errorf("rest_threshold must be positive, got %s", c.RestThreshold)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	for _, d := range c.Dates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return fmt.Errorf("dates: %q is not YYYY-MM-DD", d)
		}
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	for _, g := range c.Tables.Groups {
		switch g {
		case 25, 50, 100:
		default:
			return fmt.Errorf("tables.groups: %d is not one of 25, 50, 100", g)
		}
	}
	if c.Charts.Enabled && (c.Charts.Width <= 0 || c.Charts.Height <= 0) {
		return fmt.Errorf("charts.width and charts.height must be positive")
	}
	return nil
}

// SlogLevel maps log.level onto a slog level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// NewLogger builds the process logger on w.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
