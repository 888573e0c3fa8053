package config

import (
	"log/slog"

	derrors "git.home.luguber.info/inful/fitstate/internal/foundation/errors"
	"git.home.luguber.info/inful/fitstate/internal/foundation/normalization"
	"git.home.luguber.info/inful/fitstate/internal/retry"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevels = normalization.NewEnum("log level", map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}, LogLevelInfo)

// SlogLevel maps l onto a slog level; unknown values map to info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormats = normalization.NewEnum("log format", map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

// NestedWrites selects how writes issued from inside a listener are treated.
type NestedWrites string

const (
	NestedWritesAllow  NestedWrites = "allow"
	NestedWritesReject NestedWrites = "reject"
)

var nestedWriteModes = normalization.NewEnum("nested write mode", map[string]NestedWrites{
	"allow":  NestedWritesAllow,
	"reject": NestedWritesReject,
}, NestedWritesAllow)

// normalize canonicalizes enum fields in place. Empty values take defaults;
// unknown values are config errors.
func (c *Config) normalize() error {
	var err error
	if c.Logging.Level, err = logLevels.Parse(string(c.Logging.Level)); err != nil {
		return enumError("logging.level", err)
	}
	if c.Logging.Format, err = logFormats.Parse(string(c.Logging.Format)); err != nil {
		return enumError("logging.format", err)
	}
	if c.Store.NestedWrites, err = nestedWriteModes.Parse(string(c.Store.NestedWrites)); err != nil {
		return enumError("store.nested_writes", err)
	}
	if c.Journal.Retry.Backoff, err = retry.Backoffs.Parse(string(c.Journal.Retry.Backoff)); err != nil {
		return enumError("journal.retry.backoff", err)
	}
	return nil
}

func enumError(field string, err error) error {
	return derrors.ConfigError(err.Error()).WithContext("field", field).Build()
}
