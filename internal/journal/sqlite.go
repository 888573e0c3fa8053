package journal

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory journal.
const MemoryPath = ":memory:"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based journal.
// Use MemoryPath for an in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ErrDatabaseOpenFailed.WithCause(err).WithContext("path", dbPath)
	}
	if dbPath == MemoryPath {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, ErrInitializeSchemaFailed.WithCause(err).WithContext("path", dbPath)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		sequence INTEGER NOT NULL DEFAULT 0,
		path TEXT NOT NULL DEFAULT '',
		previous BLOB,
		value BLOB,
		had_previous INTEGER NOT NULL DEFAULT 0,
		depth INTEGER NOT NULL DEFAULT 0,
		recorded_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_records_session ON records(session_id);
	CREATE INDEX IF NOT EXISTS idx_records_path ON records(path);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds a record to the journal.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordedAt := rec.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO records (session_id, kind, sequence, path, previous, value, had_previous, depth, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		rec.SessionID, string(rec.Kind), int64(rec.Sequence), rec.Path,
		nullableBlob(rec.Previous), nullableBlob(rec.Value), rec.HadPrevious, rec.Depth, recordedAt.UnixNano(),
	)
	if err != nil {
		return ErrAppendFailed.WithCause(err).
			WithContext("session_id", rec.SessionID).
			WithContext("path", rec.Path)
	}

	return nil
}

// BySession retrieves all records for a session.
func (s *SQLiteStore) BySession(ctx context.Context, sessionID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, session_id, kind, sequence, path, previous, value, had_previous, depth, recorded_at FROM records WHERE session_id = ? ORDER BY id",
		sessionID,
	)
	if err != nil {
		return nil, ErrQueryFailed.WithCause(err).WithContext("session_id", sessionID)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ByPath retrieves all set records for a path.
func (s *SQLiteStore) ByPath(ctx context.Context, path string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, session_id, kind, sequence, path, previous, value, had_previous, depth, recorded_at FROM records WHERE kind = ? AND path = ? ORDER BY id",
		string(KindSet), path,
	)
	if err != nil {
		return nil, ErrQueryFailed.WithCause(err).WithContext("path", path)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Sessions lists every session with its record count and time span.
func (s *SQLiteStore) Sessions(ctx context.Context) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT session_id, COUNT(*), MIN(recorded_at), MAX(recorded_at), MIN(id) FROM records GROUP BY session_id ORDER BY MIN(id)",
	)
	if err != nil {
		return nil, ErrQueryFailed.WithCause(err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var first, last, firstID int64
		if err := rows.Scan(&sess.ID, &sess.Records, &first, &last, &firstID); err != nil {
			return nil, ErrQueryFailed.WithCause(err)
		}
		sess.FirstAt = time.Unix(0, first)
		sess.LastAt = time.Unix(0, last)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrQueryFailed.WithCause(err)
	}
	return sessions, nil
}

// Prune removes sessions that ended before the cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time, keep string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE session_id != ? AND session_id IN (
			SELECT session_id FROM records GROUP BY session_id HAVING MAX(recorded_at) < ?
		)`,
		keep, before.UnixNano(),
	)
	if err != nil {
		return 0, ErrPruneFailed.WithCause(err).WithContext("before", before.Format(time.RFC3339))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, ErrPruneFailed.WithCause(err)
	}
	return n, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var rec Record
		var kind string
		var sequence, recordedAt int64
		var previous, value []byte

		err := rows.Scan(&rec.ID, &rec.SessionID, &kind, &sequence, &rec.Path, &previous, &value, &rec.HadPrevious, &rec.Depth, &recordedAt)
		if err != nil {
			return nil, ErrQueryFailed.WithCause(err)
		}

		rec.Kind = Kind(kind)
		rec.Sequence = uint64(sequence)
		rec.RecordedAt = time.Unix(0, recordedAt)
		if len(previous) > 0 {
			rec.Previous = previous
		}
		if len(value) > 0 {
			rec.Value = value
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, ErrQueryFailed.WithCause(err)
	}

	return records, nil
}

func nullableBlob(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
