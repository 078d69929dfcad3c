package plugins

import (
	"sort"
	"sync"

	"github.com/warren-labs/warren/internal/core/domain"
)

// Provider supplies a plugin's hooks and tools when it activates.
// Implementations are compiled into the binary and registered under the
// plugin's folder id; the on-disk folder carries the manifest and settings.
//
// A provider is invoked on every activation, so it must return fresh
// slices rather than shared mutable state.
type Provider func() (hooks []domain.Hook, tools []domain.Tool, err error)

// Registry maps plugin ids to their providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider under the given plugin id.
// Registering the same id twice replaces the previous provider.
func (r *Registry) Register(id string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[id] = provider
}

// Provider returns the provider registered for the given plugin id.
func (r *Registry) Provider(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// IDs returns all registered plugin ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// defaultRegistry backs the package-level Register used by plugin
// packages in their init functions, following the database/sql driver
// registration pattern.
var defaultRegistry = NewRegistry()

// Register adds a provider to the default registry.
func Register(id string, provider Provider) {
	defaultRegistry.Register(id, provider)
}

// DefaultRegistry returns the process-wide provider registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}
