package provision

import (
	"sort"
	"sync"
)

// ProviderRegistry maps a source key to the identity provider that owns
// users declaring that source. Providers are registered at startup and
// resolved per operation; this is the only extension point for backing
// identity stores.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[string]UserProvider
}

// NewProviderRegistry creates an empty registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]UserProvider),
	}
}

// Register binds a provider to a source key, replacing any previous binding.
func (r *ProviderRegistry) Register(source string, provider UserProvider) {
	if provider == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[source] = provider
}

// Resolve returns the provider registered for source, or ErrProviderNotFound.
func (r *ProviderRegistry) Resolve(source string) (UserProvider, error) {
	r.mu.RLock()
	provider, ok := r.providers[source]
	r.mu.RUnlock()

	if !ok {
		return nil, providerNotFound(source)
	}
	return provider, nil
}

// Sources lists the registered source keys in stable order.
func (r *ProviderRegistry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]string, 0, len(r.providers))
	for source := range r.providers {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	return sources
}
