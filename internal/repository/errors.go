package repository

import "errors"

var (
	// ErrItemNotFound means the item was deleted or never existed.
	ErrItemNotFound = errors.New("item not found")

	// ErrRequestNotFound means the request document is absent.
	ErrRequestNotFound = errors.New("request not found")

	// ErrTxConflict means a concurrent transaction touched the same item
	// between read and commit. Transient; callers retry.
	ErrTxConflict = errors.New("transaction conflict")

	// ErrStoreUnavailable means the store could not be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
)
