package runtime

import (
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"git.home.luguber.info/inful/fitstate/internal/journal"
)

// Option customizes Create.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	registry       *prom.Registry
	journalStore   journal.Store
	tracerProvider trace.TracerProvider
}

// WithLogger sets the logger handed to every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegistry sets the Prometheus registry metrics are registered on and the
// admin server exposes. A fresh registry is created otherwise.
func WithRegistry(reg *prom.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithJournalStore replaces the SQLite journal opened from configuration. The
// runtime does not close a store supplied this way.
func WithJournalStore(s journal.Store) Option {
	return func(o *options) { o.journalStore = s }
}

// WithTracerProvider bypasses tracing setup from configuration.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}
