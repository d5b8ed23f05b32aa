package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"HealthFetcher/internal/domain"
	"HealthFetcher/internal/timefmt"
)

const (
	defaultTimezone   = "UTC"
	ConfigPathEnv     = "HEALTH_FETCHER_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	databaseDriverEnv = "DATABASE_DRIVER"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "LOG_LEVEL"
)

// DefaultStates is the jurisdiction universe used when none is configured.
var DefaultStates = []string{
	"AK", "AL", "AR", "AS", "AZ", "CA", "CO", "CT", "DC", "DE", "FL", "GA", "GU",
	"HI", "IA", "ID", "IL", "IN", "KS", "KY", "LA", "MA", "MD", "ME", "MI",
	"MN", "MO", "MP", "MS", "MT", "NC", "ND", "NE", "NH", "NJ", "NM", "NV",
	"NY", "OH", "OK", "OR", "PA", "PR", "RI", "SC", "SD", "TN", "TX", "UT",
	"VA", "VI", "VT", "WA", "WI", "WV", "WY",
}

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Sources       SourcesConfig      `yaml:"sources"`
	States        []string           `yaml:"states"`
	Dataset       DatasetConfig      `yaml:"dataset"`
	Output        OutputConfig       `yaml:"output"`
	Fetch         FetchConfig        `yaml:"fetch"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Metrics       MetricsConfig      `yaml:"metrics"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SourcesConfig points at the source catalog and the mapping table.
type SourcesConfig struct {
	File     string `yaml:"file"`
	Mappings string `yaml:"mappings"`
}

// DatasetConfig shapes the aggregated table.
type DatasetConfig struct {
	Index      []string `yaml:"index"`
	Fields     []string `yaml:"fields"`
	DateFormat string   `yaml:"dateFormat"`
}

// OutputConfig describes where CSV files go.
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	Filename string `yaml:"filename"`
	Timezone string `yaml:"timezone"`
}

// FetchConfig bounds transport and concurrency.
type FetchConfig struct {
	Workers            int           `yaml:"workers"`
	PerHostConcurrency int64         `yaml:"perHostConcurrency"`
	PerHostRate        float64       `yaml:"perHostRate"`
	Timeout            time.Duration `yaml:"timeout"`
	CycleTimeout       time.Duration `yaml:"cycleTimeout"`
	UserAgent          string        `yaml:"userAgent"`
}

// DatabaseConfig describes the optional SQL sink. An empty DSN disables it.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines when the serve mode should run cycles.
type SchedulerConfig struct {
	CronExpression string `yaml:"cronExpression"`
	Timezone       string `yaml:"timezone"`
	RunOnStart     bool   `yaml:"runOnStart"`
}

// MetricsConfig is the listen address of /metrics in serve mode.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIBase  string `yaml:"apiBase"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Load reads YAML configuration (if present), merges the .local sibling over
// it and applies environment overrides. An empty path falls back to
// HEALTH_FETCHER_CONFIG.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}

	if path != "" {
		for _, p := range []string{path, LocalPath(path)} {
			fileCfg, err := readFile(p)
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return Config{}, err
			}
			if err := mergo.Merge(&cfg, fileCfg, mergo.WithOverride); err != nil {
				return Config{}, fmt.Errorf("merge %s: %w", p, err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// LocalPath maps config.yaml to config.local.yaml.
func LocalPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

func readFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

// Validate fails fast on settings that would only break mid-cycle.
func (c Config) Validate() error {
	var errs []error

	if len(c.States) == 0 {
		errs = append(errs, errors.New("states: universe is empty"))
	}
	seen := make(map[string]struct{}, len(c.States))
	for _, s := range c.States {
		if _, dup := seen[s]; dup {
			errs = append(errs, fmt.Errorf("states: duplicate %q", s))
		}
		seen[s] = struct{}{}
	}

	index, err := c.IndexFields()
	if err != nil {
		errs = append(errs, fmt.Errorf("dataset.index: %w", err))
	} else if len(index) == 0 || index[0] != domain.State {
		errs = append(errs, errors.New("dataset.index: must start with STATE"))
	}
	if _, err := c.ColumnFields(); err != nil {
		errs = append(errs, fmt.Errorf("dataset.fields: %w", err))
	}
	if c.Dataset.DateFormat != "" {
		if _, err := timefmt.NewDisplay(c.Dataset.DateFormat); err != nil {
			errs = append(errs, fmt.Errorf("dataset.dateFormat: %w", err))
		}
	}

	if _, err := loadLocation(c.Output.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("output.timezone: %w", err))
	}
	if _, err := loadLocation(c.Scheduler.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("scheduler.timezone: %w", err))
	}

	if c.Fetch.Workers < 0 {
		errs = append(errs, errors.New("fetch.workers: must not be negative"))
	}

	return errors.Join(errs...)
}

// IndexFields resolves dataset.index.
func (c Config) IndexFields() ([]domain.Field, error) {
	return domain.ParseFields(c.Dataset.Index)
}

// ColumnFields resolves dataset.fields; empty means every field seen.
func (c Config) ColumnFields() ([]domain.Field, error) {
	return domain.ParseFields(c.Dataset.Fields)
}

// OutputLocation resolves output.timezone, falling back to UTC.
func (c Config) OutputLocation() *time.Location {
	loc, err := loadLocation(c.Output.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SchedulerLocation resolves scheduler.timezone, falling back to UTC.
func (c Config) SchedulerLocation() *time.Location {
	loc, err := loadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func loadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		tz = defaultTimezone
	}
	return time.LoadLocation(tz)
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Sources: SourcesConfig{File: "sources.yaml", Mappings: "mappings.yaml"},
		States:  append([]string(nil), DefaultStates...),
		Dataset: DatasetConfig{Index: []string{"STATE"}},
		Output: OutputConfig{
			Dir:      ".",
			Filename: "states",
			Timezone: "America/New_York",
		},
		Fetch: FetchConfig{
			PerHostConcurrency: 4,
			Timeout:            30 * time.Second,
			CycleTimeout:       10 * time.Minute,
		},
		Database:  DatabaseConfig{Driver: "postgres"},
		Scheduler: SchedulerConfig{CronExpression: "0 * * * *", Timezone: "America/New_York"},
		Metrics:   MetricsConfig{Addr: ":9090"},
	}
}
