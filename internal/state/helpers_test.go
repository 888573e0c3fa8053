package state

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"git.home.luguber.info/inful/fitstate/internal/metrics"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	s := New(opts...)
	t.Cleanup(s.Dispose)
	return s
}

// countingRecorder captures metrics calls for assertions.
type countingRecorder struct {
	mu            sync.Mutex
	writes        map[metrics.WriteKind]int
	rejected      map[metrics.RejectReason]int
	listeners     map[metrics.ResultLabel]int
	resets        int
	historyLength int
	subscriptions int
	dispatches    int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		writes:    map[metrics.WriteKind]int{},
		rejected:  map[metrics.RejectReason]int{},
		listeners: map[metrics.ResultLabel]int{},
	}
}

func (c *countingRecorder) IncWrite(kind metrics.WriteKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes[kind]++
}

func (c *countingRecorder) IncRejectedWrite(reason metrics.RejectReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejected[reason]++
}

func (c *countingRecorder) ObserveDispatchDuration(time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatches++
}

func (c *countingRecorder) IncListenerResult(result metrics.ResultLabel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners[result]++
}

func (c *countingRecorder) IncReset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets++
}

func (c *countingRecorder) SetHistoryLength(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.historyLength = n
}

func (c *countingRecorder) SetActiveSubscriptions(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions = n
}

func (c *countingRecorder) IncJournalResult(metrics.ResultLabel) {}

// recordingObserver captures observer callbacks.
type recordingObserver struct {
	mu      sync.Mutex
	entries []HistoryEntry
	resets  int
}

func (o *recordingObserver) ObserveChange(entry HistoryEntry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, entry)
}

func (o *recordingObserver) ObserveReset(time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resets++
}

func (o *recordingObserver) sequences() []uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]uint64, 0, len(o.entries))
	for _, e := range o.entries {
		out = append(out, e.Sequence)
	}
	return out
}
