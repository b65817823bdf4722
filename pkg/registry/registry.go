// Package registry maps inbound model names to backend model names.
package registry

import (
	"sort"
	"sync"
)

// Registry resolves the model name of an inbound request to the model
// the backend should serve it with. Unknown names fall back to the
// default target when one is configured.
type Registry struct {
	mu       sync.RWMutex
	mappings map[string]string
	fallback string
}

// New creates a Registry from a source-to-target mapping. fallback is
// the target used for unmapped names; empty means unmapped names are
// rejected.
func New(mappings map[string]string, fallback string) *Registry {
	m := make(map[string]string, len(mappings))
	for k, v := range mappings {
		m[k] = v
	}
	return &Registry{mappings: m, fallback: fallback}
}

// Resolve returns the backend model for source. ok is false only when
// the name is unmapped and no fallback is configured.
func (r *Registry) Resolve(source string) (target string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, found := r.mappings[source]; found {
		return t, true
	}
	if r.fallback != "" {
		return r.fallback, true
	}
	return "", false
}

// Set adds or replaces a single mapping.
func (r *Registry) Set(source, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings[source] = target
}

// Sources returns the explicitly mapped model names in sorted order.
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.mappings))
	for k := range r.mappings {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
