package method

import "sync"

// Registry is the runtime's table of live methods keyed by "Owner#name".
type Registry struct {
	methods map[string]*Method
	order   []string
	mu      sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{methods: make(map[string]*Method)}
}

// Define adds m, returning the method it replaced, if any.
func (r *Registry) Define(m *Method) *Method {
	key := m.QualifiedName()

	r.mu.Lock()
	defer r.mu.Unlock()

	prev, exists := r.methods[key]
	if !exists {
		r.order = append(r.order, key)
	}
	r.methods[key] = m
	return prev
}

// Lookup finds a method by owner and method name.
func (r *Registry) Lookup(owner, name string) (*Method, bool) {
	key := name
	if owner != "" {
		key = owner + "#" + name
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.methods[key]
	return m, ok
}

// Methods returns all methods in definition order.
func (r *Registry) Methods() []*Method {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Method, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.methods[key])
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.methods)
}
