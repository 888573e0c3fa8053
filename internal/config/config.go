// Package config loads fitstate configuration from YAML, .env files and
// FITSTATE_* environment variables, in that order of increasing precedence.
package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	derrors "git.home.luguber.info/inful/fitstate/internal/foundation/errors"
	"git.home.luguber.info/inful/fitstate/internal/retry"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "fitstate.yaml"

// Config represents the application configuration.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envPrefix:"LOGGING_"`
	Store     StoreConfig     `yaml:"store" envPrefix:"STORE_"`
	Journal   JournalConfig   `yaml:"journal" envPrefix:"JOURNAL_"`
	Seed      SeedConfig      `yaml:"seed" envPrefix:"SEED_"`
	Scheduler SchedulerConfig `yaml:"scheduler" envPrefix:"SCHEDULER_"`
	Admin     AdminConfig     `yaml:"admin" envPrefix:"ADMIN_"`
	Tracing   TracingConfig   `yaml:"tracing" envPrefix:"TRACING_"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level" env:"LEVEL"`
	Format LogFormat `yaml:"format" env:"FORMAT"`
}

// StoreConfig controls dispatch limits of the state store.
type StoreConfig struct {
	MaxDispatchDepth int           `yaml:"max_dispatch_depth" env:"MAX_DISPATCH_DEPTH"`
	NestedWrites     NestedWrites  `yaml:"nested_writes" env:"NESTED_WRITES"`
	DispatchTimeout  time.Duration `yaml:"dispatch_timeout" env:"DISPATCH_TIMEOUT"`
}

// JournalConfig controls the SQLite change journal.
type JournalConfig struct {
	Enabled   bool        `yaml:"enabled" env:"ENABLED"`
	Path      string      `yaml:"path" env:"PATH"`
	QueueSize int         `yaml:"queue_size" env:"QUEUE_SIZE"`
	Retry     RetryConfig `yaml:"retry" envPrefix:"RETRY_"`

	// Retention is how long finished sessions are kept. Zero keeps everything.
	Retention time.Duration `yaml:"retention" env:"RETENTION"`
}

// RetryConfig controls backoff for failed journal appends.
type RetryConfig struct {
	Backoff    retry.Backoff `yaml:"backoff" env:"BACKOFF"`
	Initial    time.Duration `yaml:"initial" env:"INITIAL"`
	Max        time.Duration `yaml:"max" env:"MAX"`
	MaxRetries int           `yaml:"max_retries" env:"MAX_RETRIES"`
}

// Policy converts c into a retry policy.
func (c RetryConfig) Policy() retry.Policy {
	return retry.NewPolicy(c.Backoff, c.Initial, c.Max, c.MaxRetries)
}

// SeedConfig points at an optional YAML file of initial values.
type SeedConfig struct {
	File     string        `yaml:"file,omitempty" env:"FILE"`
	Watch    bool          `yaml:"watch" env:"WATCH"`
	Debounce time.Duration `yaml:"debounce" env:"DEBOUNCE"`
}

// SchedulerConfig controls periodic jobs. A zero interval disables the heartbeat.
// JournalPrune is a five-field cron expression for journal retention.
type SchedulerConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" env:"HEARTBEAT_INTERVAL"`
	JournalPrune      string        `yaml:"journal_prune" env:"JOURNAL_PRUNE"`
}

// AdminConfig controls the diagnostics HTTP server.
type AdminConfig struct {
	Enabled     bool   `yaml:"enabled" env:"ENABLED"`
	Addr        string `yaml:"addr" env:"ADDR"`
	MetricsPath string `yaml:"metrics_path" env:"METRICS_PATH"`
}

// TracingConfig controls OTLP trace export.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" env:"ENABLED"`
	Endpoint    string  `yaml:"endpoint,omitempty" env:"ENDPOINT"`
	ServiceName string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRatio float64 `yaml:"sample_ratio" env:"SAMPLE_RATIO"`
}

// Default returns a complete configuration with every field set.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		Store:   StoreConfig{MaxDispatchDepth: 8, NestedWrites: NestedWritesAllow, DispatchTimeout: 10 * time.Second},
		Journal: JournalConfig{
			Enabled:   true,
			Path:      "fitstate-journal.db",
			QueueSize: 1024,
			Retry:     RetryConfig{Backoff: retry.BackoffExponential, Initial: 100 * time.Millisecond, Max: 2 * time.Second, MaxRetries: 3},
			Retention: 30 * 24 * time.Hour,
		},
		Seed:    SeedConfig{Watch: false, Debounce: 500 * time.Millisecond},
		Scheduler: SchedulerConfig{
			HeartbeatInterval: time.Minute,
			JournalPrune:      "0 3 * * *",
		},
		Admin: AdminConfig{
			Enabled:     true,
			Addr:        "127.0.0.1:8089",
			MetricsPath: "/metrics",
		},
		Tracing: TracingConfig{ServiceName: "fitstate", SampleRatio: 1},
	}
}

// Load reads configPath over the defaults, applies .env files and FITSTATE_*
// overrides, normalizes enums and validates the result. A missing file is not
// an error; the defaults (plus environment) are used.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	cfg := Default()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// defaults only
		case err != nil:
			return nil, derrors.ConfigError("failed to read config file").
				WithCause(err).
				WithContext("file", configPath).
				Build()
		default:
			// Expand environment variables in the YAML content
			expanded := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
				return nil, derrors.ConfigError("failed to parse config file").
					WithCause(err).
					WithContext("file", configPath).
					Build()
			}
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init writes the default configuration to configPath. An existing file is
// only replaced when force is set.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return derrors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("file", configPath).
			Build()
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return derrors.InternalError("failed to marshal config").WithCause(err).Build()
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return derrors.FileSystemError("failed to write config file").
			WithCause(err).
			WithContext("file", configPath).
			Build()
	}
	return nil
}
