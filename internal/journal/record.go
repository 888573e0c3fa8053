// Package journal keeps an append-only SQLite audit log of state history.
//
// A Writer observes a state.Store and appends one Record per accepted write and
// one per reset, tagged with the runtime's session ID. Records are written from a
// background goroutine so the store's dispatch never waits on disk. Replay folds
// a session's records back into the tree it produced.
package journal

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/fitstate/internal/state"
)

// Kind distinguishes record types.
type Kind string

const (
	KindSet   Kind = "set"
	KindReset Kind = "reset"
)

// Record is one journal row.
type Record struct {
	ID          int64           `json:"id" yaml:"id"`
	SessionID   string          `json:"session_id" yaml:"session_id"`
	Kind        Kind            `json:"kind" yaml:"kind"`
	Sequence    uint64          `json:"sequence,omitempty" yaml:"sequence,omitempty"`
	Path        string          `json:"path,omitempty" yaml:"path,omitempty"`
	Previous    json.RawMessage `json:"previous,omitempty" yaml:"-"`
	Value       json.RawMessage `json:"value,omitempty" yaml:"-"`
	HadPrevious bool            `json:"had_previous,omitempty" yaml:"had_previous,omitempty"`
	Depth       int             `json:"depth,omitempty" yaml:"depth,omitempty"`
	RecordedAt  time.Time       `json:"recorded_at" yaml:"recorded_at"`
}

// Session summarizes the records written by one runtime.
type Session struct {
	ID      string    `json:"id" yaml:"id"`
	Records int       `json:"records" yaml:"records"`
	FirstAt time.Time `json:"first_at" yaml:"first_at"`
	LastAt  time.Time `json:"last_at" yaml:"last_at"`
}

// NewSetRecord converts a history entry into a record.
func NewSetRecord(sessionID string, entry state.HistoryEntry) (Record, error) {
	value, err := json.Marshal(entry.Value)
	if err != nil {
		return Record{}, ErrEncodeFailed.WithCause(err).WithContext("path", entry.Path.String())
	}
	var previous json.RawMessage
	if entry.HadPrevious {
		if previous, err = json.Marshal(entry.Previous); err != nil {
			return Record{}, ErrEncodeFailed.WithCause(err).WithContext("path", entry.Path.String())
		}
	}
	return Record{
		SessionID:   sessionID,
		Kind:        KindSet,
		Sequence:    entry.Sequence,
		Path:        entry.Path.String(),
		Previous:    previous,
		Value:       value,
		HadPrevious: entry.HadPrevious,
		Depth:       entry.Depth,
		RecordedAt:  entry.Timestamp,
	}, nil
}

// NewResetRecord returns the marker written when the store is reset.
func NewResetRecord(sessionID string, at time.Time) Record {
	return Record{SessionID: sessionID, Kind: KindReset, RecordedAt: at}
}
