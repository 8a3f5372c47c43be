package store

import "errors"

var (
	// ErrStorageUnavailable is returned when the database cannot be opened or its schema cannot
	// be created.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrTransactionAborted wraps any failure inside a save transaction. The transaction has been
	// rolled back when this error is returned.
	ErrTransactionAborted = errors.New("transaction aborted")

	// ErrInvalidState is returned when an operation needs a persisted contact but the contact has
	// no id yet.
	ErrInvalidState = errors.New("invalid state")

	// ErrNotFound is returned when no contact exists with the requested id.
	ErrNotFound = errors.New("contact not found")

	// ErrInvalidQuery is returned for search parameters the store cannot translate into SQL.
	ErrInvalidQuery = errors.New("invalid query")
)
