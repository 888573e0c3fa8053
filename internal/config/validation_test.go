package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/fitstate/internal/foundation/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "dispatch depth", mutate: func(c *Config) { c.Store.MaxDispatchDepth = 0 }, field: "store.max_dispatch_depth"},
		{name: "dispatch timeout", mutate: func(c *Config) { c.Store.DispatchTimeout = 0 }, field: "store.dispatch_timeout"},
		{name: "journal path", mutate: func(c *Config) { c.Journal.Path = " " }, field: "journal.path"},
		{name: "journal queue", mutate: func(c *Config) { c.Journal.QueueSize = 0 }, field: "journal.queue_size"},
		{name: "journal retry delay", mutate: func(c *Config) { c.Journal.Retry.Max = -time.Second }, field: "journal.retry"},
		{name: "journal retries", mutate: func(c *Config) { c.Journal.Retry.MaxRetries = -1 }, field: "journal.retry.max_retries"},
		{name: "journal retention", mutate: func(c *Config) { c.Journal.Retention = -time.Hour }, field: "journal.retention"},
		{name: "prune schedule", mutate: func(c *Config) { c.Scheduler.JournalPrune = " " }, field: "scheduler.journal_prune"},
		{name: "seed debounce", mutate: func(c *Config) { c.Seed.Debounce = -time.Second }, field: "seed.debounce"},
		{name: "seed watch without file", mutate: func(c *Config) { c.Seed.Watch = true }, field: "seed.file"},
		{name: "heartbeat", mutate: func(c *Config) { c.Scheduler.HeartbeatInterval = -time.Second }, field: "scheduler.heartbeat_interval"},
		{name: "admin addr", mutate: func(c *Config) { c.Admin.Addr = "" }, field: "admin.addr"},
		{name: "metrics path", mutate: func(c *Config) { c.Admin.MetricsPath = "metrics" }, field: "admin.metrics_path"},
		{name: "sample ratio", mutate: func(c *Config) { c.Tracing.SampleRatio = 1.5 }, field: "tracing.sample_ratio"},
		{name: "tracing endpoint", mutate: func(c *Config) { c.Tracing.Enabled = true }, field: "tracing.endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			ce, ok := derrors.AsClassified(err)
			require.True(t, ok)
			assert.Equal(t, derrors.CategoryConfig, ce.Category())
			field, _ := ce.Context().GetString("field")
			assert.Equal(t, tt.field, field)
		})
	}
}

func TestValidate_DisabledSectionsSkipChecks(t *testing.T) {
	cfg := Default()
	cfg.Journal.Enabled = false
	cfg.Journal.Path = ""
	cfg.Admin.Enabled = false
	cfg.Admin.Addr = ""
	require.NoError(t, cfg.Validate())
}

func TestLogLevel_SlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LogLevelDebug.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogLevelInfo.SlogLevel())
	assert.Equal(t, slog.LevelWarn, LogLevelWarn.SlogLevel())
	assert.Equal(t, slog.LevelError, LogLevelError.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogLevel("loud").SlogLevel())
}

func TestNormalize(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = " Error "
	cfg.Logging.Format = ""
	cfg.Store.NestedWrites = "REJECT"
	require.NoError(t, cfg.normalize())
	assert.Equal(t, LogLevelError, cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
	assert.Equal(t, NestedWritesReject, cfg.Store.NestedWrites)

	cfg.Logging.Format = "xml"
	err := cfg.normalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid options: json, text")
}
