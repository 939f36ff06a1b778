package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/getpup/tablemig/executor"
	"github.com/getpup/tablemig/version"
)

// Script is a programmatic migration. It receives the database execution
// handle and returns once the migration has completed.
type Script func(ctx context.Context, exec executor.Executor) error

// Registry maps migration versions to programmatic scripts.
type Registry struct {
	mu      sync.RWMutex
	scripts map[string]Script
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{scripts: make(map[string]Script)}
}

// DefaultRegistry receives the scripts of generated .go artifacts.
var DefaultRegistry = NewRegistry()

// Register adds script under version to the DefaultRegistry.
// It is meant to be called from init functions and panics on misuse.
func Register(version string, script Script) {
	DefaultRegistry.Register(version, script)
}

// Register adds script under v.
// Panics if v is not valid semver, script is nil, or v is already registered.
func (r *Registry) Register(v string, script Script) {
	if err := version.Validate(v); err != nil {
		panic(fmt.Sprintf("runner: Register: %v", err))
	}
	if script == nil {
		panic("runner: Register script is nil for " + v)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.scripts[v]; dup {
		panic("runner: Register called twice for " + v)
	}
	r.scripts[v] = script
}

// Lookup returns the script registered for v.
func (r *Registry) Lookup(v string) (Script, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	script, ok := r.scripts[v]
	return script, ok
}

// Versions returns the registered versions in ascending order.
func (r *Registry) Versions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := make([]string, 0, len(r.scripts))
	for v := range r.scripts {
		versions = append(versions, v)
	}
	return version.SortAscending(versions)
}
