package memory

import (
	"context"
	"sync"
	"time"

	"github.com/getpup/tablemig"
	"github.com/getpup/tablemig/store"
)

// Store is an in-memory implementation of LedgerStore for testing.
// It provides thread-safe access to ledger entries using a sync.RWMutex.
type Store struct {
	mu      sync.RWMutex
	entries []tablemig.LedgerEntry // ordered by ID
	nextID  int64
	created bool
}

// Compile-time check that Store implements LedgerStore.
var _ store.LedgerStore = (*Store)(nil)

// New creates a new empty in-memory store.
func New() *Store {
	return &Store{
		entries: make([]tablemig.LedgerEntry, 0),
		nextID:  1,
	}
}

// EnsureTable marks the ledger as created.
func (s *Store) EnsureTable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.created = true
	return nil
}

// Created reports whether EnsureTable has been called.
func (s *Store) Created() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.created
}

// Insert records a new attempt and assigns the next ID.
func (s *Store) Insert(ctx context.Context, version string, status tablemig.Status) (tablemig.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := tablemig.LedgerEntry{
		ID:        s.nextID,
		Version:   version,
		Status:    status,
		CreatedAt: time.Now(),
	}
	s.nextID++
	s.entries = append(s.entries, entry)

	return entry, nil
}

// UpdateStatus finalizes an attempt.
// Returns store.ErrEntryNotFound if no entry has the ID.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status tablemig.Status, note *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID != id {
			continue
		}
		s.entries[i].Status = status
		if note != nil {
			n := *note
			s.entries[i].Note = &n
		} else {
			s.entries[i].Note = nil
		}
		return nil
	}

	return store.ErrEntryNotFound
}

// List returns a copy of every entry ordered by ID ascending.
func (s *Store) List(ctx context.Context) ([]tablemig.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]tablemig.LedgerEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// Recent returns at most limit entries ordered by ID descending.
func (s *Store) Recent(ctx context.Context, limit int) ([]tablemig.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.entries)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]tablemig.LedgerEntry, 0, n)
	for i := len(s.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}
