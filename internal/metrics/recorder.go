package metrics

import "time"

// WriteKind distinguishes writes issued by callers from writes issued inside a listener.
type WriteKind string

const (
	WriteTopLevel WriteKind = "top_level"
	WriteNested   WriteKind = "nested"
)

// RejectReason enumerates why the store refused a write.
type RejectReason string

const (
	RejectDisposed      RejectReason = "disposed"
	RejectDepthExceeded RejectReason = "depth_exceeded"
	RejectNested        RejectReason = "nested_rejected"
	RejectDispatchWait  RejectReason = "dispatch_wait"
)

// ResultLabel enumerates outcome categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultPanic   ResultLabel = "panic"
	ResultDropped ResultLabel = "dropped"
	ResultFailed  ResultLabel = "failed"
)

// Recorder defines observability hooks for store writes, listener dispatch and the journal.
type Recorder interface {
	IncWrite(kind WriteKind)
	IncRejectedWrite(reason RejectReason)
	ObserveDispatchDuration(d time.Duration)
	IncListenerResult(result ResultLabel)
	IncReset()
	SetHistoryLength(n int)
	SetActiveSubscriptions(n int)
	IncJournalResult(result ResultLabel)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncWrite(WriteKind)                    {}
func (NoopRecorder) IncRejectedWrite(RejectReason)         {}
func (NoopRecorder) ObserveDispatchDuration(time.Duration) {}
func (NoopRecorder) IncListenerResult(ResultLabel)         {}
func (NoopRecorder) IncReset()                             {}
func (NoopRecorder) SetHistoryLength(int)                  {}
func (NoopRecorder) SetActiveSubscriptions(int)            {}
func (NoopRecorder) IncJournalResult(ResultLabel)          {}
