package gitrepo

import (
	"context"
	"sync"
)

// Memory is an in-memory Repository for tests.
type Memory struct {
	mu    sync.RWMutex
	tags  []string
	files map[string]map[string]string // revision -> path -> content

	// ReadCalls counts ReadFileAt invocations.
	ReadCalls int

	// Err, when set, is returned by every call.
	Err error
}

var _ Repository = (*Memory)(nil)

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{files: make(map[string]map[string]string)}
}

// Tag records a tag whose tree contains files (path -> content).
func (m *Memory) Tag(tag string, files map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tags = append(m.tags, tag)
	tree := make(map[string]string, len(files))
	for p, c := range files {
		tree[p] = c
	}
	m.files[tag] = tree
}

// ListTags implements Repository.
func (m *Memory) ListTags(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return append([]string(nil), m.tags...), nil
}

// ReadFileAt implements Repository.
func (m *Memory) ReadFileAt(ctx context.Context, path, revision string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReadCalls++
	if m.Err != nil {
		return "", m.Err
	}
	tree, ok := m.files[revision]
	if !ok {
		return "", ErrNotFound
	}
	content, ok := tree[path]
	if !ok {
		return "", ErrNotFound
	}
	return content, nil
}
