package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/fitstate/internal/logfields"
	"git.home.luguber.info/inful/fitstate/internal/metrics"
	"git.home.luguber.info/inful/fitstate/internal/retry"
	"git.home.luguber.info/inful/fitstate/internal/services"
	"git.home.luguber.info/inful/fitstate/internal/state"
)

// ServiceName identifies the journal writer among managed components.
const ServiceName = "journal"

// DefaultQueueSize is used when WriterConfig.QueueSize is not positive.
const DefaultQueueSize = 1024

const appendTimeout = 5 * time.Second

// WriterConfig configures a Writer.
type WriterConfig struct {
	SessionID string
	QueueSize int
	Logger    *slog.Logger
	Recorder  metrics.Recorder
	// Retry governs failed appends. The zero policy does not retry.
	Retry retry.Policy
}

// Writer appends store changes to a journal from a background goroutine. It
// implements state.ChangeObserver and services.ManagedService.
type Writer struct {
	store     Store
	sessionID string
	logger    *slog.Logger
	recorder  metrics.Recorder
	retry     retry.Policy

	mu      sync.RWMutex
	queue   chan Record
	started bool
	closed  bool
	done    chan struct{}

	running atomic.Bool
	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

var (
	_ state.ChangeObserver    = (*Writer)(nil)
	_ services.ManagedService = (*Writer)(nil)
)

// NewWriter creates a writer. Records observed before Start are buffered up to
// the queue size.
func NewWriter(store Store, cfg WriterConfig) *Writer {
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	w := &Writer{
		store:     store,
		sessionID: cfg.SessionID,
		logger:    cfg.Logger,
		recorder:  cfg.Recorder,
		retry:     cfg.Retry,
		queue:     make(chan Record, size),
		done:      make(chan struct{}),
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.recorder == nil {
		w.recorder = metrics.NoopRecorder{}
	}
	return w
}

// ObserveChange implements state.ChangeObserver.
func (w *Writer) ObserveChange(entry state.HistoryEntry) {
	rec, err := NewSetRecord(w.sessionID, entry)
	if err != nil {
		w.failed.Add(1)
		w.recorder.IncJournalResult(metrics.ResultFailed)
		w.logger.Warn("Journal record not encodable", logfields.Path(entry.Path.String()), logfields.Error(err))
		return
	}
	w.enqueue(rec)
}

// ObserveReset implements state.ChangeObserver.
func (w *Writer) ObserveReset(at time.Time) {
	w.enqueue(NewResetRecord(w.sessionID, at))
}

func (w *Writer) enqueue(rec Record) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.drop(rec)
		return
	}
	select {
	case w.queue <- rec:
	default:
		w.drop(rec)
	}
}

func (w *Writer) drop(rec Record) {
	w.dropped.Add(1)
	w.recorder.IncJournalResult(metrics.ResultDropped)
	w.logger.Warn("Journal record dropped", logfields.Path(rec.Path), logfields.Sequence(rec.Sequence))
}

// Name implements services.ManagedService.
func (w *Writer) Name() string { return ServiceName }

// Dependencies implements services.ManagedService.
func (w *Writer) Dependencies() []string { return []string{state.ServiceName} }

// Start launches the append loop. The loop outlives ctx; Stop ends it.
func (w *Writer) Start(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	w.started = true
	go w.loop()
	w.running.Store(true)
	w.logger.Info("Journal writer started", logfields.SessionID(w.sessionID))
	return nil
}

func (w *Writer) loop() {
	defer close(w.done)
	for rec := range w.queue {
		err := w.retry.Do(context.Background(), func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, appendTimeout)
			defer cancel()
			return w.store.Append(ctx, rec)
		}, func(attempt int, delay time.Duration, err error) {
			w.logger.Debug("Retrying journal append",
				logfields.Path(rec.Path),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				logfields.Error(err))
		})
		if err != nil {
			w.failed.Add(1)
			w.recorder.IncJournalResult(metrics.ResultFailed)
			w.logger.Error("Journal append failed", logfields.Path(rec.Path), logfields.Error(err))
			continue
		}
		w.written.Add(1)
		w.recorder.IncJournalResult(metrics.ResultSuccess)
	}
}

// Stop closes the queue and waits until buffered records are written or ctx ends.
func (w *Writer) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.queue)
	started := w.started
	w.mu.Unlock()

	defer w.running.Store(false)
	if !started {
		return nil
	}
	select {
	case <-w.done:
		w.logger.Info("Journal writer stopped",
			logfields.SessionID(w.sessionID),
			logfields.Count(int(w.written.Load())))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health implements services.ManagedService.
func (w *Writer) Health() services.HealthStatus {
	if !w.running.Load() {
		return services.Unhealthy("journal writer not running")
	}
	return services.Healthy(fmt.Sprintf("%d written, %d dropped, %d failed", w.written.Load(), w.dropped.Load(), w.failed.Load()))
}

// Stats returns the written, dropped and failed record counts.
func (w *Writer) Stats() (written, dropped, failed uint64) {
	return w.written.Load(), w.dropped.Load(), w.failed.Load()
}

// SessionID returns the session the writer tags records with.
func (w *Writer) SessionID() string { return w.sessionID }
