package orchestrator

import (
	"fmt"
	"sync"

	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

// Registry owns one provider client per registered name. Clients are built
// by their factory on first lookup and reused afterwards.
type Registry struct {
	mu        sync.Mutex
	order     []domain.ProviderName
	factories map[domain.ProviderName]ports.ProviderFactory
	instances map[domain.ProviderName]ports.ProviderClient
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[domain.ProviderName]ports.ProviderFactory),
		instances: make(map[domain.ProviderName]ports.ProviderClient),
	}
}

// Register adds a factory for name. Only known provider names are accepted.
func (r *Registry) Register(name domain.ProviderName, factory ports.ProviderFactory) error {
	if !name.Valid() {
		return fmt.Errorf("register provider: %w: %q", domain.ErrInvalidProviderName, name)
	}
	if factory == nil {
		return fmt.Errorf("register provider %s: nil factory", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("register provider %s: already registered", name)
	}
	r.factories[name] = factory
	r.order = append(r.order, name)
	return nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name domain.ProviderName) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.factories[name]
	return ok
}

// Names returns registered provider names in registration order.
func (r *Registry) Names() []domain.ProviderName {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]domain.ProviderName, len(r.order))
	copy(names, r.order)
	return names
}

// GetInstance returns the client for name, building it on first use.
func (r *Registry) GetInstance(name domain.ProviderName) (ports.ProviderClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.instances[name]; ok {
		return client, nil
	}

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}

	client, err := factory()
	if err != nil {
		return nil, fmt.Errorf("create provider %s: %w", name, err)
	}
	r.instances[name] = client
	return client, nil
}
