package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps entity names to resources.
type Registry struct {
	mu        sync.RWMutex
	resources map[string]Resource
}

func NewRegistry() *Registry {
	return &Registry{resources: make(map[string]Resource)}
}

// Register adds r under its name. Names must be unique.
func (reg *Registry) Register(r Resource) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	name := r.Name()
	if name == "" {
		return fmt.Errorf("register: resource has no name")
	}
	if _, exists := reg.resources[name]; exists {
		return fmt.Errorf("register: entity %s already registered", name)
	}
	reg.resources[name] = r
	return nil
}

func (reg *Registry) Get(name string) (Resource, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.resources[name]
	return r, ok
}

// All returns the resources sorted by name.
func (reg *Registry) All() []Resource {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]Resource, 0, len(reg.resources))
	for _, r := range reg.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
