package config

import (
	"strings"

	derrors "git.home.luguber.info/inful/fitstate/internal/foundation/errors"
)

// Validate checks cross-field constraints and returns the first violation as a
// config-category error.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateStore,
		c.validateJournal,
		c.validateSeed,
		c.validateScheduler,
		c.validateAdmin,
		c.validateTracing,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.Store.MaxDispatchDepth < 1 {
		return invalid("store.max_dispatch_depth", "must be at least 1", c.Store.MaxDispatchDepth)
	}
	if c.Store.DispatchTimeout <= 0 {
		return invalid("store.dispatch_timeout", "must be positive", c.Store.DispatchTimeout.String())
	}
	return nil
}

func (c *Config) validateJournal() error {
	if !c.Journal.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Journal.Path) == "" {
		return invalid("journal.path", "required when the journal is enabled", c.Journal.Path)
	}
	if c.Journal.QueueSize < 1 {
		return invalid("journal.queue_size", "must be at least 1", c.Journal.QueueSize)
	}
	if c.Journal.Retry.Initial < 0 || c.Journal.Retry.Max < 0 {
		return invalid("journal.retry", "delays must not be negative", c.Journal.Retry.Initial.String()+"/"+c.Journal.Retry.Max.String())
	}
	if c.Journal.Retry.MaxRetries < 0 {
		return invalid("journal.retry.max_retries", "must not be negative", c.Journal.Retry.MaxRetries)
	}
	if c.Journal.Retention < 0 {
		return invalid("journal.retention", "must not be negative", c.Journal.Retention.String())
	}
	if c.Journal.Retention > 0 && strings.TrimSpace(c.Scheduler.JournalPrune) == "" {
		return invalid("scheduler.journal_prune", "required when journal.retention is set", c.Scheduler.JournalPrune)
	}
	return nil
}

func (c *Config) validateSeed() error {
	if c.Seed.Debounce < 0 {
		return invalid("seed.debounce", "must not be negative", c.Seed.Debounce.String())
	}
	if c.Seed.Watch && c.Seed.File == "" {
		return invalid("seed.file", "required when seed.watch is set", c.Seed.File)
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if c.Scheduler.HeartbeatInterval < 0 {
		return invalid("scheduler.heartbeat_interval", "must not be negative", c.Scheduler.HeartbeatInterval.String())
	}
	return nil
}

func (c *Config) validateAdmin() error {
	if !c.Admin.Enabled {
		return nil
	}
	if c.Admin.Addr == "" {
		return invalid("admin.addr", "required when admin is enabled", c.Admin.Addr)
	}
	if !strings.HasPrefix(c.Admin.MetricsPath, "/") {
		return invalid("admin.metrics_path", "must start with /", c.Admin.MetricsPath)
	}
	return nil
}

func (c *Config) validateTracing() error {
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return invalid("tracing.sample_ratio", "must be between 0 and 1", c.Tracing.SampleRatio)
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return invalid("tracing.endpoint", "required when tracing is enabled", c.Tracing.Endpoint)
	}
	return nil
}

func invalid(field, problem string, value any) error {
	return derrors.ConfigError("invalid configuration: "+field+" "+problem).
		WithContext("field", field).
		WithContext("value", value).
		Build()
}
