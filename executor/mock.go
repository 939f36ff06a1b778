package executor

import (
	"context"
	"sync"
)

// MockExecutor is a mock implementation of Executor for testing.
type MockExecutor struct {
	mu        sync.Mutex
	ExecFunc  func(ctx context.Context, body string) error
	ExecCalls []string
}

// NewMockExecutor creates a new MockExecutor with an empty call history.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		ExecCalls: make([]string, 0),
	}
}

// Exec implements the Executor interface.
// It records the body, then calls ExecFunc if set; otherwise it succeeds.
func (m *MockExecutor) Exec(ctx context.Context, body string) error {
	m.mu.Lock()
	m.ExecCalls = append(m.ExecCalls, body)
	m.mu.Unlock()

	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, body)
	}
	return nil
}

// Calls returns a copy of the recorded bodies.
func (m *MockExecutor) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ExecCalls...)
}

// Reset clears the call history.
func (m *MockExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExecCalls = make([]string, 0)
}
