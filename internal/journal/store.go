package journal

import (
	"context"
	"time"
)

// Store defines the interface for persisting and retrieving journal records.
type Store interface {
	// Append adds a record. ID is assigned by the store.
	Append(ctx context.Context, rec Record) error

	// BySession retrieves the records of one session in append order.
	BySession(ctx context.Context, sessionID string) ([]Record, error)

	// ByPath retrieves every set record for a path across sessions in append order.
	ByPath(ctx context.Context, path string) ([]Record, error)

	// Sessions lists recorded sessions, oldest first.
	Sessions(ctx context.Context) ([]Session, error)

	// Prune deletes every session, other than keep, whose newest record is older
	// than before. It returns the number of records deleted.
	Prune(ctx context.Context, before time.Time, keep string) (int64, error)

	// Close closes the store and releases resources.
	Close() error
}
