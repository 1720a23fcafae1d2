// Package registry maps node type names to their integrations. The runner
// resolves the integration for each incoming run message here.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/wehubfusion/Talos/pkg/engine"
	sdkerrors "github.com/wehubfusion/Talos/pkg/errors"
)

// Registry is a concurrency-safe node type registry.
type Registry struct {
	mu           sync.RWMutex
	integrations map[string]engine.Integration
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{integrations: make(map[string]engine.Integration)}
}

// Register adds an integration under its description name. Registering the
// same name twice is an error.
func (r *Registry) Register(integration engine.Integration) error {
	if integration == nil {
		return fmt.Errorf("integration cannot be nil")
	}

	name := integration.Description().Name
	if name == "" {
		return fmt.Errorf("integration description has no name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.integrations[name]; exists {
		return fmt.Errorf("integration %q already registered", name)
	}
	r.integrations[name] = integration
	return nil
}

// Get returns the integration registered under name.
func (r *Registry) Get(name string) (engine.Integration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	integration, ok := r.integrations[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", sdkerrors.ErrNodeTypeNotRegistered, name)
	}
	return integration, nil
}

// Names returns the registered node type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.integrations))
	for name := range r.integrations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
