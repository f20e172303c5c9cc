// Package config loads and validates the focusd configuration file. The file
// is YAML with environment variable expansion; a .env or .env.local file in
// the working directory is loaded first so secrets can stay out of the YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level focusd configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Logging     LoggingConfig     `yaml:"logging"`
	Events      EventsConfig      `yaml:"events"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	OwnerHeader     string `yaml:"owner_header,omitempty"`
	ReadTimeout     string `yaml:"read_timeout,omitempty"`
	WriteTimeout    string `yaml:"write_timeout,omitempty"`
	ShutdownTimeout string `yaml:"shutdown_timeout,omitempty"`
}

// DatabaseConfig configures the SQLite store and its busy-retry policy.
type DatabaseConfig struct {
	Path      string          `yaml:"path"`
	BusyRetry BusyRetryConfig `yaml:"busy_retry,omitempty"`
}

// BusyRetryConfig controls retries of transactions that fail because the
// database is locked.
type BusyRetryConfig struct {
	Backoff     RetryBackoffMode `yaml:"backoff,omitempty"`
	BaseDelay   string           `yaml:"base_delay,omitempty"`
	MaxDelay    string           `yaml:"max_delay,omitempty"`
	MaxAttempts int              `yaml:"max_attempts,omitempty"`
}

// LoggingConfig configures structured log output.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// EventsConfig configures the optional NATS lifecycle event publisher.
type EventsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url,omitempty"`
	SubjectPrefix string `yaml:"subject_prefix,omitempty"`
	Stream        string `yaml:"stream,omitempty"`
}

// MaintenanceConfig configures the background maintenance scheduler.
type MaintenanceConfig struct {
	CheckpointInterval string `yaml:"checkpoint_interval,omitempty"`
	SummaryTime        string `yaml:"summary_time,omitempty"` // HH:MM local time
}

// Load reads, expands, defaults and validates the configuration file.
func Load(configPath string) (*Config, error) {
	// Ignore a missing .env; it is optional.
	_ = godotenv.Load(".env", ".env.local")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.OwnerHeader == "" {
		c.Server.OwnerHeader = "X-Owner-ID"
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "10s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "30s"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Database.Path == "" {
		c.Database.Path = "focusd.db"
	}
	if c.Database.BusyRetry.Backoff == "" {
		c.Database.BusyRetry.Backoff = RetryBackoffLinear
	}
	if c.Database.BusyRetry.BaseDelay == "" {
		c.Database.BusyRetry.BaseDelay = "25ms"
	}
	if c.Database.BusyRetry.MaxDelay == "" {
		c.Database.BusyRetry.MaxDelay = "500ms"
	}
	if c.Database.BusyRetry.MaxAttempts == 0 {
		c.Database.BusyRetry.MaxAttempts = 3
	}
	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
	if c.Events.URL == "" {
		c.Events.URL = "nats://127.0.0.1:4222"
	}
	if c.Events.SubjectPrefix == "" {
		c.Events.SubjectPrefix = "focusd"
	}
	if c.Events.Stream == "" {
		c.Events.Stream = "FOCUSD"
	}
	if c.Maintenance.CheckpointInterval == "" {
		c.Maintenance.CheckpointInterval = "15m"
	}
	if c.Maintenance.SummaryTime == "" {
		c.Maintenance.SummaryTime = "20:00"
	}
}

// Validate checks the configuration for errors after defaults are applied.
func (c *Config) Validate() error {
	v := &configValidator{cfg: c}
	return v.validate()
}

// Duration accessors. Validate has already checked the formats, so parse
// errors here fall back to the documented defaults rather than propagating.

func (s ServerConfig) ReadTimeoutDuration() time.Duration {
	return parseDurationOr(s.ReadTimeout, 10*time.Second)
}

func (s ServerConfig) WriteTimeoutDuration() time.Duration {
	return parseDurationOr(s.WriteTimeout, 30*time.Second)
}

func (s ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return parseDurationOr(s.ShutdownTimeout, 10*time.Second)
}

func (b BusyRetryConfig) BaseDelayDuration() time.Duration {
	return parseDurationOr(b.BaseDelay, 25*time.Millisecond)
}

func (b BusyRetryConfig) MaxDelayDuration() time.Duration {
	return parseDurationOr(b.MaxDelay, 500*time.Millisecond)
}

func (m MaintenanceConfig) CheckpointIntervalDuration() time.Duration {
	return parseDurationOr(m.CheckpointInterval, 15*time.Minute)
}

// SummaryClock returns the daily summary time as hour and minute.
func (m MaintenanceConfig) SummaryClock() (hour, minute int) {
	if _, err := fmt.Sscanf(m.SummaryTime, "%d:%d", &hour, &minute); err != nil {
		return 20, 0
	}
	return hour, minute
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Config{
		Server: ServerConfig{
			Addr:        ":8080",
			OwnerHeader: "X-Owner-ID",
		},
		Database: DatabaseConfig{
			Path: "focusd.db",
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
		Events: EventsConfig{
			Enabled:       false,
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: "focusd",
		},
		Maintenance: MaintenanceConfig{
			CheckpointInterval: "15m",
			SummaryTime:        "20:00",
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("marshal example config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
