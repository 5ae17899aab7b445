package graph

import (
	"sort"
	"sync"
)

// Registry owns one Topology per namespace.
//
// Topologies are created on first use and live for the lifetime of the
// registry. There is no teardown; hosts that need eviction wrap the registry.
type Registry struct {
	mu         sync.RWMutex
	topologies map[string]*Topology
}

// NewRegistry creates an empty namespace registry.
func NewRegistry() *Registry {
	return &Registry{
		topologies: make(map[string]*Topology),
	}
}

// GetOrCreate returns the topology for namespace, creating it if needed.
func (r *Registry) GetOrCreate(namespace string) *Topology {
	r.mu.RLock()
	t, ok := r.topologies[namespace]
	r.mu.RUnlock()
	if ok {
		return t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.topologies[namespace]; ok {
		return t
	}
	t = NewTopology(namespace)
	r.topologies[namespace] = t
	return t
}

// Get returns the topology for namespace without creating it.
func (r *Registry) Get(namespace string) (*Topology, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.topologies[namespace]
	return t, ok
}

// Namespaces lists known namespaces in sorted order.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.topologies))
	for ns := range r.topologies {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}
