package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"git.home.luguber.info/inful/fitstate/internal/logfields"
	"git.home.luguber.info/inful/fitstate/internal/metrics"
)

const tracerName = "git.home.luguber.info/inful/fitstate/internal/state"

// HistoryEntry records one accepted write.
type HistoryEntry struct {
	Sequence    uint64    `json:"sequence" yaml:"sequence"`
	Path        Path      `json:"path" yaml:"path"`
	Previous    any       `json:"previous,omitempty" yaml:"previous,omitempty"`
	HadPrevious bool      `json:"had_previous" yaml:"had_previous"`
	Value       any       `json:"value" yaml:"value"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
	Depth       int       `json:"depth" yaml:"depth"`
}

// ChangeObserver receives every accepted write and every reset, in sequence order,
// before subscribers of the written path run. Entries carry copies of the stored
// values. Observers must not block and must not call back into the store.
type ChangeObserver interface {
	ObserveChange(entry HistoryEntry)
	ObserveReset(at time.Time)
}

// Store is the state container. Create one with New and release it with Dispose.
type Store struct {
	// dispatch is a one-slot semaphore held by a top-level write for its whole fan-out.
	dispatch        chan struct{}
	dispatchTimeout time.Duration

	// observeMu is taken before mu and held from commit until observers are notified,
	// so observers see writes and resets in sequence order.
	observeMu sync.Mutex

	mu        sync.RWMutex
	values    map[string]any
	history   []HistoryEntry
	nextSeq   uint64
	subs      map[string][]*subscription
	subCount  int
	observers []ChangeObserver
	disposed  bool

	maxDepth int
	nested   NestedWriteMode
	logger   *slog.Logger
	recorder metrics.Recorder
	tracer   trace.Tracer
	now      func() time.Time
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		dispatch:        make(chan struct{}, 1),
		dispatchTimeout: DefaultDispatchTimeout,
		values:          make(map[string]any),
		nextSeq:         1,
		subs:            make(map[string][]*subscription),
		maxDepth:        DefaultMaxDispatchDepth,
		nested:          NestedAllow,
		logger:          slog.Default(),
		recorder:        metrics.NoopRecorder{},
		now:             time.Now,
		tracer:          otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddObserver registers a change observer. It is a no-op once the store is disposed.
func (s *Store) AddObserver(o ChangeObserver) {
	if o == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.observers = append(s.observers, o)
}

// Get returns the value most recently written to p. ok is false when p was never
// written since construction or the last Reset.
func (s *Store) Get(p Path) (value any, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[p.s]
	if !ok {
		return nil, false
	}
	return cloneValue(v), true
}

// Snapshot returns a deep copy of the whole tree keyed by path string.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = cloneValue(v)
	}
	return out
}

// Keys returns the number of paths currently holding a value.
func (s *Store) Keys() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// History returns every entry recorded since construction or the last Reset, oldest first.
func (s *Store) History() []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]HistoryEntry, len(s.history))
	for i, e := range s.history {
		e.Previous = cloneValue(e.Previous)
		e.Value = cloneValue(e.Value)
		out[i] = e
	}
	return out
}

// HistoryLen returns the number of recorded entries.
func (s *Store) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// Reset clears values and history and restarts sequence numbering. Subscriptions
// and observers are kept. Reset may be called from a listener.
func (s *Store) Reset() {
	s.observeMu.Lock()
	defer s.observeMu.Unlock()

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	cleared := len(s.values)
	s.values = make(map[string]any)
	s.history = nil
	s.nextSeq = 1
	observers := append([]ChangeObserver(nil), s.observers...)
	at := s.now()
	s.mu.Unlock()

	for _, o := range observers {
		o.ObserveReset(at)
	}
	s.recorder.IncReset()
	s.recorder.SetHistoryLength(0)
	s.logger.Debug("State reset", logfields.Count(cleared))
}

// Dispose drops values, history, subscriptions and observers. Later calls to Set
// and Subscribe return ErrStoreDisposed; reads return empty results. Dispose is idempotent.
func (s *Store) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	for _, list := range s.subs {
		for _, sub := range list {
			sub.active.Store(false)
		}
	}
	s.values = make(map[string]any)
	s.history = nil
	s.subs = make(map[string][]*subscription)
	s.subCount = 0
	s.observers = nil
	s.mu.Unlock()

	s.recorder.SetActiveSubscriptions(0)
	s.recorder.SetHistoryLength(0)
	s.logger.Debug("State store disposed")
}

// Disposed reports whether Dispose has been called.
func (s *Store) Disposed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.disposed
}

// commit applies a write under the data lock and returns what dispatch needs.
// On success it returns with observeMu held; notifyChange releases it.
func (s *Store) commit(p Path, value any, depth int) (HistoryEntry, []*subscription, []ChangeObserver, error) {
	s.observeMu.Lock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		s.observeMu.Unlock()
		return HistoryEntry{}, nil, nil, ErrStoreDisposed
	}

	prev, had := s.values[p.s]
	stored := cloneValue(value)
	s.values[p.s] = stored

	entry := HistoryEntry{
		Sequence:    s.nextSeq,
		Path:        p,
		Previous:    prev,
		HadPrevious: had,
		Value:       stored,
		Timestamp:   s.now(),
		Depth:       depth,
	}
	s.nextSeq++
	s.history = append(s.history, entry)
	s.recorder.SetHistoryLength(len(s.history))

	return entry, append([]*subscription(nil), s.subs[p.s]...), append([]ChangeObserver(nil), s.observers...), nil
}

// notifyChange hands entry to every observer and releases observeMu.
func (s *Store) notifyChange(observers []ChangeObserver, entry HistoryEntry) {
	defer s.observeMu.Unlock()
	for _, o := range observers {
		e := entry
		e.Previous = cloneValue(entry.Previous)
		e.Value = cloneValue(entry.Value)
		o.ObserveChange(e)
	}
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
