package generator

import (
	"fmt"
	"sort"
	"sync"
)

var (
	providers    = make(map[string]func() Provider)
	providerLock sync.RWMutex
)

// Register adds a provider factory to the registry.
func Register(name string, factory func() Provider) {
	providerLock.Lock()
	defer providerLock.Unlock()
	providers[name] = factory
}

// Get retrieves a provider by name from the registry.
func Get(name string) (Provider, error) {
	providerLock.RLock()
	defer providerLock.RUnlock()

	factory, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s (registered: %v)", name, listLocked())
	}
	return factory(), nil
}

// List returns all registered provider names, sorted.
func List() []string {
	providerLock.RLock()
	defer providerLock.RUnlock()
	return listLocked()
}

func listLocked() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
