// Package adapter defines the destination-adapter contract and a registry of
// the available adapters. Each adapter is a pure function of one
// CanonicalSpec: it performs no I/O, holds no shared state, and never fails
// on malformed or partial canonical input, so any number of adapters may run
// concurrently over the same spec.
package adapter

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/planforge/planforge/internal/spec"
)

// Renderer renders one destination document from a canonical spec. The
// returned bytes are a self-contained JSON document; no renderer's output
// depends on any other renderer's output. The only error a Renderer may
// return is a marshalling failure of its own document.
type Renderer interface {
	// Name returns the destination identifier (e.g. "segment", "adobe").
	Name() string

	// Render produces the destination document for s. Implementations must
	// not mutate s and must be deterministic apart from the generated_at
	// timestamp embedded in the document's metadata block.
	Render(s *spec.CanonicalSpec) (json.RawMessage, error)
}

// Registry holds the available renderers keyed by name.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Renderer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Renderer)}
}

// Register adds a renderer. Registering the same name twice is a programming
// error and panics, matching the behavior callers expect from init-time
// registration.
func (r *Registry) Register(rend Renderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := rend.Name()
	if _, dup := r.byName[name]; dup {
		panic(fmt.Sprintf("adapter: duplicate renderer %q", name))
	}
	r.byName[name] = rend
}

// Get returns the renderer registered under name.
func (r *Registry) Get(name string) (Renderer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rend, ok := r.byName[name]
	return rend, ok
}

// Names returns the registered destination names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
