package runtime

import (
	"sync"
)

// --------------------------------------------------------------------------
// Class Registry
// --------------------------------------------------------------------------

// SelectFunc picks among multiple classes registered under one name.
type SelectFunc func(name string, candidates []*Class) *Class

// Registry maps type names to block classes. More than one class may be
// registered per name; LoadClass resolves the ambiguity with a SelectFunc.
// This is the equivalent-registration replacement for package entry-point
// discovery.
type Registry struct {
	mu      sync.RWMutex
	classes map[string][]*Class
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{classes: map[string][]*Class{}}
}

// Register adds a class under a type name.
func (r *Registry) Register(name string, class *Class) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[name] = append(r.classes[name], class)
}

// Names returns all registered type names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.classes))
	for name := range r.classes {
		out = append(out, name)
	}
	return out
}

// Classes returns all registered classes.
func (r *Registry) Classes() []*Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Class
	for _, cs := range r.classes {
		out = append(out, cs...)
	}
	return out
}

// LoadClass resolves a type name to a class. When the name is unregistered
// the default is returned if non-nil, otherwise ErrNoSuchBlockType. When
// several classes share the name, sel picks one; without a sel the first
// registration wins.
func (r *Registry) LoadClass(name string, def *Class, sel SelectFunc) (*Class, error) {
	r.mu.RLock()
	candidates := r.classes[name]
	r.mu.RUnlock()

	if len(candidates) == 0 {
		if def != nil {
			return def, nil
		}
		return nil, errNoSuchBlockType(name)
	}
	if len(candidates) == 1 || sel == nil {
		return candidates[0], nil
	}
	if picked := sel(name, candidates); picked != nil {
		return picked, nil
	}
	return candidates[0], nil
}
