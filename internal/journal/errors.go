package journal

import (
	"git.home.luguber.info/inful/fitstate/internal/foundation/errors"
)

var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = errors.JournalError("could not open journal database").Build()

	// ErrInitializeSchemaFailed indicates the database schema could not be initialized.
	ErrInitializeSchemaFailed = errors.JournalError("failed to initialize journal schema").Build()

	// ErrAppendFailed indicates appending a record failed.
	ErrAppendFailed = errors.JournalError("failed to append journal record").Build()

	// ErrQueryFailed indicates querying records failed.
	ErrQueryFailed = errors.JournalError("failed to query journal records").Build()

	// ErrPruneFailed indicates deleting expired sessions failed.
	ErrPruneFailed = errors.JournalError("failed to prune journal sessions").Build()

	// ErrEncodeFailed indicates a state value could not be encoded as JSON.
	ErrEncodeFailed = errors.JournalError("failed to encode state value").Build()

	// ErrDecodeFailed indicates a stored value could not be decoded during replay.
	ErrDecodeFailed = errors.JournalError("failed to decode journal value").Build()
)
