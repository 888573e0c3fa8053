package state

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"git.home.luguber.info/inful/fitstate/internal/metrics"
)

// DefaultMaxDispatchDepth bounds how deeply listener writes may nest.
const DefaultMaxDispatchDepth = 8

// DefaultDispatchTimeout bounds how long a top-level write waits for another
// write's fan-out to finish.
const DefaultDispatchTimeout = 10 * time.Second

// NestedWriteMode controls whether listeners may write to the store.
type NestedWriteMode string

const (
	// NestedAllow dispatches nested writes depth-first up to the configured depth.
	NestedAllow NestedWriteMode = "allow"
	// NestedReject fails every write issued from inside a listener.
	NestedReject NestedWriteMode = "reject"
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Store) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithMaxDispatchDepth sets how many listener levels may write. Zero or a negative
// value keeps the default.
func WithMaxDispatchDepth(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxDepth = n
		}
	}
}

// WithDispatchTimeout sets how long a top-level write waits for the dispatch slot.
// Zero or a negative value keeps the default.
func WithDispatchTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.dispatchTimeout = d
		}
	}
}

// WithNestedWrites selects the nested write policy.
func WithNestedWrites(mode NestedWriteMode) Option {
	return func(s *Store) {
		if mode == NestedAllow || mode == NestedReject {
			s.nested = mode
		}
	}
}

// WithObserver registers a change observer at construction.
func WithObserver(o ChangeObserver) Option {
	return func(s *Store) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithClock overrides the time source for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTracerProvider sets the provider for write spans. The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Store) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}
