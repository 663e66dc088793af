package expect

import (
	"reflect"
	"sort"
	"sync"
)

// ConstructFunc builds a value of a leaf type from an arbitrary input.
// It is only called when the input does not already conform.
type ConstructFunc func(v any) (any, error)

// InstanceFunc decides whether v already counts as a value of a leaf type.
type InstanceFunc func(v any) bool

// TypeInfo describes a leaf type that can appear in a declaration.
type TypeInfo struct {
	// Name is the identifier used in declarations and error messages.
	Name string

	// Type is the Go type values of this leaf have after coercion.
	Type reflect.Type

	// Construct converts a non-conforming value. Required.
	Construct ConstructFunc

	// IsInstance overrides the default "is-a" check. Optional.
	IsInstance InstanceFunc
}

// Validate reports whether the type can be used in an expectation.
func (t *TypeInfo) Validate() error {
	if t == nil {
		return configErrorf("", "missing leaf type")
	}
	if t.Name == "" {
		return configErrorf("", "leaf type has no name")
	}
	if t.Type == nil {
		return configErrorf(t.Name, "leaf type has no Go type")
	}
	if t.Construct == nil {
		return configErrorf(t.Name, "type is not constructible")
	}
	return nil
}

// Accepts applies the leaf's "is-a" check to v.
func (t *TypeInfo) Accepts(v any) bool {
	if t.IsInstance != nil {
		return t.IsInstance(v)
	}
	if v == nil {
		return false
	}
	rt := reflect.TypeOf(v)
	if t.Type.Kind() == reflect.Interface {
		return rt.Implements(t.Type)
	}
	return rt == t.Type
}

// Registry maps names to leaf types. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*TypeInfo
	byType map[reflect.Type]*TypeInfo
}

// NewRegistry creates a registry preloaded with the builtin leaf types.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	for _, b := range builtins() {
		if err := r.Register(b.info); err != nil {
			panic(err)
		}
		for _, alias := range b.aliases {
			r.byName[alias] = r.byName[b.info.Name]
		}
	}
	return r
}

// NewEmptyRegistry creates a registry without any leaf types.
func NewEmptyRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*TypeInfo),
		byType: make(map[reflect.Type]*TypeInfo),
	}
}

// Register adds a leaf type. Registering a name twice is an error.
func (r *Registry) Register(info TypeInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[info.Name]; exists {
		return configErrorf(info.Name, "type already registered")
	}
	stored := info
	r.byName[info.Name] = &stored
	if _, exists := r.byType[info.Type]; !exists {
		r.byType[info.Type] = &stored
	}
	return nil
}

// Register adds a leaf type for T whose constructor returns T.
func Register[T any](r *Registry, name string, construct func(v any) (T, error)) error {
	var info TypeInfo
	info.Name = name
	info.Type = reflect.TypeOf((*T)(nil)).Elem()
	if construct != nil {
		info.Construct = func(v any) (any, error) {
			return construct(v)
		}
	}
	return r.Register(info)
}

// Lookup returns the leaf type registered under name.
func (r *Registry) Lookup(name string) (*TypeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// Names returns all registered names, aliases included, sorted.
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

// Types returns the distinct leaf types, sorted by name.
func (r *Registry) Types() []*TypeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[*TypeInfo]bool)
	var out []*TypeInfo
	for _, t := range r.byName {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FromType derives an expectation from a Go type: registered leaf types map
// to Concrete, slices to SequenceOf, maps to MappingOf. Arrays are not
// mapped: sequences are rebuilt as slices, which an array cannot hold.
func (r *Registry) FromType(t reflect.Type) (*Expectation, error) {
	if t == nil {
		return nil, configErrorf("", "missing Go type")
	}

	r.mu.RLock()
	leaf, ok := r.byType[t]
	r.mu.RUnlock()
	if ok {
		return Concrete(leaf), nil
	}

	switch t.Kind() {
	case reflect.Slice:
		elem, err := r.FromType(t.Elem())
		if err != nil {
			return nil, err
		}
		return SequenceOf(elem), nil
	case reflect.Map:
		key, err := r.FromType(t.Key())
		if err != nil {
			return nil, err
		}
		val, err := r.FromType(t.Elem())
		if err != nil {
			return nil, err
		}
		return MappingOf(key, val), nil
	}
	return nil, configErrorf(t.String(), "no registered leaf type for Go type")
}

