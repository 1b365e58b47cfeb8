package llmprovider

import (
	"sync"
)

// Registry maps provider identifiers to adapters and credentials.
//
// It is read-mostly: register adapters and credentials at startup, then
// resolve from any number of goroutines. The Registry implements
// CredentialLookup so adapters can resolve their API key at request time.
type Registry struct {
	mu       sync.RWMutex
	adapters map[ProviderID]Adapter
	order    []ProviderID
	auth     map[ProviderID]Auth
	catalog  *Catalog
}

// NewRegistry creates an empty registry routing models through catalog.
// A nil catalog uses DefaultCatalog().
func NewRegistry(catalog *Catalog) *Registry {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Registry{
		adapters: make(map[ProviderID]Adapter),
		auth:     make(map[ProviderID]Auth),
		catalog:  catalog,
	}
}

// Register adds or replaces the adapter for adapter.ID().
func (r *Registry) Register(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := adapter.ID()
	if _, exists := r.adapters[id]; !exists {
		r.order = append(r.order, id)
	}
	r.adapters[id] = adapter
}

// SetAuth stores the credential for a provider.
func (r *Registry) SetAuth(id ProviderID, auth Auth) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auth[id] = auth
}

// Credential returns the stored credential for a provider.
func (r *Registry) Credential(id ProviderID) (Auth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	auth, ok := r.auth[id]
	return auth, ok
}

// Get returns the adapter registered for id.
func (r *Registry) Get(id ProviderID) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[id]
	if !ok {
		return nil, &LookupError{Key: id.String(), Err: ErrUnknownProvider}
	}
	return adapter, nil
}

// ForModel resolves the adapter serving model.
// The catalog is consulted first, then each adapter's SupportsModel in registration order.
func (r *Registry) ForModel(model string) (Adapter, error) {
	if known, err := r.catalog.Lookup(model); err == nil {
		if adapter, err := r.Get(known.Provider()); err == nil {
			return adapter, nil
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if adapter := r.adapters[id]; adapter.SupportsModel(model) {
			return adapter, nil
		}
	}
	return nil, &LookupError{Key: model, Err: ErrUnknownProvider}
}

// Providers returns registered provider IDs in registration order.
func (r *Registry) Providers() []ProviderID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderID, len(r.order))
	copy(out, r.order)
	return out
}

// Catalog returns the model catalog used for routing.
func (r *Registry) Catalog() *Catalog {
	return r.catalog
}
