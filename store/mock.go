package store

import (
	"context"
	"sync"

	"github.com/getpup/tablemig"
)

// MockLedgerStore is a configurable mock implementation of LedgerStore
// for use in tests. It allows setting up expected return values, tracking
// method calls, and injecting errors for testing error paths.
type MockLedgerStore struct {
	mu sync.RWMutex

	// EnsureTableFunc is called by EnsureTable if set.
	EnsureTableFunc func(ctx context.Context) error

	// InsertFunc is called by Insert if set.
	InsertFunc func(ctx context.Context, version string, status tablemig.Status) (tablemig.LedgerEntry, error)

	// UpdateStatusFunc is called by UpdateStatus if set.
	UpdateStatusFunc func(ctx context.Context, id int64, status tablemig.Status, note *string) error

	// ListFunc is called by List if set.
	ListFunc func(ctx context.Context) ([]tablemig.LedgerEntry, error)

	// RecentFunc is called by Recent if set.
	RecentFunc func(ctx context.Context, limit int) ([]tablemig.LedgerEntry, error)

	// Call tracking
	EnsureTableCalls  int
	InsertCalls       []InsertCall
	UpdateStatusCalls []UpdateStatusCall
	ListCalls         int
	RecentCalls       []int
}

// InsertCall records a call to Insert.
type InsertCall struct {
	Version string
	Status  tablemig.Status
}

// UpdateStatusCall records a call to UpdateStatus.
type UpdateStatusCall struct {
	ID     int64
	Status tablemig.Status
	Note   *string
}

// NewMockLedgerStore creates a new MockLedgerStore with empty call history.
func NewMockLedgerStore() *MockLedgerStore {
	return &MockLedgerStore{
		InsertCalls:       make([]InsertCall, 0),
		UpdateStatusCalls: make([]UpdateStatusCall, 0),
		RecentCalls:       make([]int, 0),
	}
}

// EnsureTable implements LedgerStore.
func (m *MockLedgerStore) EnsureTable(ctx context.Context) error {
	m.mu.Lock()
	m.EnsureTableCalls++
	m.mu.Unlock()

	if m.EnsureTableFunc != nil {
		return m.EnsureTableFunc(ctx)
	}
	return nil
}

// Insert implements LedgerStore.
// Without InsertFunc it returns an entry whose ID is the call count.
func (m *MockLedgerStore) Insert(ctx context.Context, version string, status tablemig.Status) (tablemig.LedgerEntry, error) {
	m.mu.Lock()
	m.InsertCalls = append(m.InsertCalls, InsertCall{Version: version, Status: status})
	id := int64(len(m.InsertCalls))
	m.mu.Unlock()

	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, version, status)
	}
	return tablemig.LedgerEntry{ID: id, Version: version, Status: status}, nil
}

// UpdateStatus implements LedgerStore.
func (m *MockLedgerStore) UpdateStatus(ctx context.Context, id int64, status tablemig.Status, note *string) error {
	m.mu.Lock()
	m.UpdateStatusCalls = append(m.UpdateStatusCalls, UpdateStatusCall{ID: id, Status: status, Note: note})
	m.mu.Unlock()

	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status, note)
	}
	return nil
}

// List implements LedgerStore.
func (m *MockLedgerStore) List(ctx context.Context) ([]tablemig.LedgerEntry, error) {
	m.mu.Lock()
	m.ListCalls++
	m.mu.Unlock()

	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []tablemig.LedgerEntry{}, nil
}

// Recent implements LedgerStore.
func (m *MockLedgerStore) Recent(ctx context.Context, limit int) ([]tablemig.LedgerEntry, error) {
	m.mu.Lock()
	m.RecentCalls = append(m.RecentCalls, limit)
	m.mu.Unlock()

	if m.RecentFunc != nil {
		return m.RecentFunc(ctx, limit)
	}
	return []tablemig.LedgerEntry{}, nil
}

// Reset clears all call tracking.
func (m *MockLedgerStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EnsureTableCalls = 0
	m.InsertCalls = make([]InsertCall, 0)
	m.UpdateStatusCalls = make([]UpdateStatusCall, 0)
	m.ListCalls = 0
	m.RecentCalls = make([]int, 0)
}

// Compile-time check that MockLedgerStore implements LedgerStore.
var _ LedgerStore = (*MockLedgerStore)(nil)
