package store

import "errors"

var (
	// ErrEntryNotFound indicates the ledger entry does not exist.
	ErrEntryNotFound = errors.New("ledger entry not found")
)
