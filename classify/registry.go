package classify

import (
	"slices"
	"strings"
	"sync"
)

// Registry resolves the classifier names policies refer to. It is safe for concurrent use; a nil
// *Registry is empty.
type Registry struct {
	mu sync.RWMutex
	m  map[string]Classifier
}

// NewRegistry returns an empty registry. RegisterBuiltins adds the built-in names.
func NewRegistry() *Registry {
	return &Registry{m: make(map[string]Classifier)}
}

// Register binds name, trimmed of surrounding space, to c, replacing any earlier binding. Blank
// names and nil classifiers are ignored.
func (r *Registry) Register(name string, c Classifier) {
	name = strings.TrimSpace(name)
	if r == nil || name == "" || c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.m == nil {
		r.m = make(map[string]Classifier)
	}
	r.m[name] = c
}

// Get returns the classifier bound to name.
func (r *Registry) Get(name string) (Classifier, bool) {
	name = strings.TrimSpace(name)
	if r == nil || name == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.m[name]
	return c, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	names := make([]string, 0, len(r.m))
	for name := range r.m {
		names = append(names, name)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}
