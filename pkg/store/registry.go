package store

import (
	"fmt"
	"sync"
)

// Factory creates a TaskStore from provider configuration.
type Factory func() (TaskStore, error)

var (
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

// RegisterProvider registers a store factory for a provider type.
func RegisterProvider(providerType string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[providerType] = factory
}

// NewStore creates a TaskStore for the given provider type.
func NewStore(providerType string) (TaskStore, error) {
	mu.RLock()
	factory, ok := registry[providerType]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown store provider type: %s", providerType)
	}
	return factory()
}

// ListProviders returns registered provider types.
func ListProviders() []string {
	mu.RLock()
	defer mu.RUnlock()

	providers := make([]string, 0, len(registry))
	for name := range registry {
		providers = append(providers, name)
	}
	return providers
}
