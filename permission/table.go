// Package permission provides a frozen capability registry and a static
// route-to-requirements table. Authorization is a pure subset check: a route
// declares the capabilities it needs, an identity either carries them all or
// is denied.
package permission

import (
	"errors"
	"sync"
)

// Registry holds the closed set of capability names known to the system.
// Register everything at startup, then [Registry.Freeze] before serving.
type Registry struct {
	mu     sync.RWMutex
	names  map[string]struct{}
	frozen bool
}

// NewRegistry creates an empty capability [Registry].
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register adds a capability name. Must be called before [Registry.Freeze].
func (r *Registry) Register(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errors.New("registry frozen")
	}
	if name == "" {
		return errors.New("capability name cannot be empty")
	}
	if _, exists := r.names[name]; exists {
		return errors.New("capability already registered")
	}

	r.names[name] = struct{}{}
	return nil
}

// Known reports whether the capability name was registered.
func (r *Registry) Known(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.names[name]
	return ok
}

// Freeze prevents further registrations. Must be called before the registry
// is used to validate a route table.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Count returns the number of registered capabilities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Table maps route ids to the capabilities they require. The mapping is a
// single static structure built at startup, never consulted for routes that
// are not in it (unknown route means no requirements, which means allow after
// authentication).
type Table struct {
	routes map[string][]string
}

// NewTable builds a route table, validating every required capability against
// the (frozen) registry so a typo in a route declaration fails at startup
// instead of silently never matching.
func NewTable(registry *Registry, routes map[string][]string) (*Table, error) {
	if registry == nil {
		return nil, errors.New("registry required")
	}

	out := make(map[string][]string, len(routes))
	for route, required := range routes {
		if route == "" {
			return nil, errors.New("route id cannot be empty")
		}
		for _, cap := range required {
			if !registry.Known(cap) {
				return nil, errors.New("unknown capability in route table: " + cap)
			}
		}
		out[route] = append([]string(nil), required...)
	}

	return &Table{routes: out}, nil
}

// Required returns the capabilities the route demands. A route absent from
// the table requires nothing.
func (t *Table) Required(route string) []string {
	if t == nil {
		return nil
	}
	return t.routes[route]
}

// Check reports whether the granted capabilities cover every required one.
// An empty requirement list always passes; an empty grant list passes only
// an empty requirement list.
func Check(required, granted []string) bool {
	if len(required) == 0 {
		return true
	}
	if len(granted) == 0 {
		return false
	}

	set := make(map[string]struct{}, len(granted))
	for _, g := range granted {
		set[g] = struct{}{}
	}
	for _, req := range required {
		if _, ok := set[req]; !ok {
			return false
		}
	}
	return true
}
