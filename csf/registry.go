package csf

import (
	"fmt"
	"strings"
)

// Registry is an ordered set of adapters with unique names.
type Registry struct {
	adapters []Adapter
	byName   map[string]int
}

func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{byName: make(map[string]int, len(adapters))}
	for _, a := range adapters {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends a. It fails if the name is already taken.
func (r *Registry) Register(a Adapter) error {
	name := a.Name()
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	r.byName[name] = len(r.adapters)
	r.adapters = append(r.adapters, a)
	return nil
}

// All returns the adapters in registration order.
func (r *Registry) All() []Adapter {
	return append([]Adapter(nil), r.adapters...)
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.adapters))
	for i, a := range r.adapters {
		names[i] = a.Name()
	}
	return names
}

func (r *Registry) Lookup(name string) (Adapter, bool) {
	i, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.adapters[i], true
}

// Select returns the named adapters in the requested order. An empty list
// selects every adapter. Naming an adapter twice is an error.
func (r *Registry) Select(names []string) ([]Adapter, error) {
	if len(names) == 0 {
		return r.All(), nil
	}
	out := make([]Adapter, 0, len(names))
	picked := make(map[string]bool, len(names))
	for _, n := range names {
		a, ok := r.Lookup(n)
		if !ok {
			return nil, fmt.Errorf("%w: %q (registered: %s)", ErrUnknownImplementation, n, strings.Join(r.Names(), ", "))
		}
		if picked[n] {
			return nil, fmt.Errorf("%w: %q selected twice", ErrDuplicateName, n)
		}
		picked[n] = true
		out = append(out, a)
	}
	return out, nil
}
