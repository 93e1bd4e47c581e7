// Package registry provides the registry that dispatches content-page
// addresses to site resolvers.
package registry

import (
	"sync"

	"aniweek-resolver-go/pkg/interfaces"
)

// ResolverRegistry manages site resolvers.
type ResolverRegistry struct {
	mu        sync.RWMutex
	resolvers []interfaces.Resolver
	byName    map[string]interfaces.Resolver
	fallback  interfaces.Resolver
}

// NewResolverRegistry creates a new resolver registry.
func NewResolverRegistry() *ResolverRegistry {
	return &ResolverRegistry{
		resolvers: make([]interfaces.Resolver, 0),
		byName:    make(map[string]interfaces.Resolver),
	}
}

// Register adds a resolver to the registry.
func (r *ResolverRegistry) Register(resolver interfaces.Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers = append(r.resolvers, resolver)
	r.byName[resolver.Name()] = resolver
}

// SetFallback sets the fallback resolver used when no resolver matches.
func (r *ResolverRegistry) SetFallback(resolver interfaces.Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = resolver
}

// Get returns the appropriate resolver for the given page address.
func (r *ResolverRegistry) Get(url string) interfaces.Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, resolver := range r.resolvers {
		if resolver.CanResolve(url) {
			return resolver
		}
	}
	return r.fallback
}

// GetByName returns a resolver by its name.
func (r *ResolverRegistry) GetByName(name string) interfaces.Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if resolver, ok := r.byName[name]; ok {
		return resolver
	}
	return r.fallback
}

// All returns all registered resolvers.
func (r *ResolverRegistry) All() []interfaces.Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]interfaces.Resolver, len(r.resolvers))
	copy(result, r.resolvers)
	return result
}

// Close closes all registered resolvers.
func (r *ResolverRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, resolver := range r.resolvers {
		_ = resolver.Close()
	}
	if r.fallback != nil {
		_ = r.fallback.Close()
	}
	return nil
}
