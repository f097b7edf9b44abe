package provider

import (
	"fmt"
	"sync"
)

// Registry resolves named adapters and selects the best available one.
// Enablement is re-evaluated on every lookup since configuration can change
// between worker passes.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	primary  string
	fallback string
}

// NewRegistry creates an empty registry. The primary and fallback names
// drive Best's selection order; the fallback adapter is expected to be
// always enabled.
func NewRegistry(primary, fallback string) *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		primary:  primary,
		fallback: fallback,
	}
}

// Register adds an adapter under its own name, replacing any previous one.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
}

// Get returns the named adapter.
// Returns ErrUnknownProvider if no adapter is registered under the name.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return a, nil
}

// Best selects an adapter in preference order: the preferred name if given
// and enabled, then the primary if enabled, then the fallback. It fails only
// when nothing at all is registered.
func (r *Registry) Best(preferred string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if preferred != "" {
		if a, ok := r.adapters[preferred]; ok && a.Enabled() {
			return a, nil
		}
	}
	if a, ok := r.adapters[r.primary]; ok && a.Enabled() {
		return a, nil
	}
	if a, ok := r.adapters[r.fallback]; ok {
		return a, nil
	}

	// No configured selection matched; settle for any enabled adapter.
	for _, a := range r.adapters {
		if a.Enabled() {
			return a, nil
		}
	}

	return nil, ErrNoProviders
}

// ForTaskID infers the owning adapter from the task-id prefix convention.
// This is the documented fallback path for resuming orphaned jobs whose
// creating context is gone; normal lookups go through the provider name
// carried on the job record.
func (r *Registry) ForTaskID(taskID string) (Adapter, error) {
	name, _ := SplitTaskID(taskID)
	if name == "" {
		return nil, fmt.Errorf("%w: task id %q carries no provider prefix", ErrUnknownProvider, taskID)
	}
	return r.Get(name)
}

// Names returns the registered adapter names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
