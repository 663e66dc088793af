package runtime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/artpar/checked/core/validation"
)

// ErrNotRegistered is returned by Registry.Call for an unknown name.
var ErrNotRegistered = errors.New("function not registered")

// Registry holds guarded functions by name.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]*Func
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		funcs: make(map[string]*Func),
	}
}

// Register adds a function. A later registration under the same name
// replaces the earlier one.
func (r *Registry) Register(name string, fn *Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Get returns the function registered under name.
func (r *Registry) Get(name string) (*Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Call invokes a registered function by name. A context that is already
// done stops the call before any argument is checked.
func (r *Registry) Call(ctx context.Context, name string, args []any, kwargs map[string]any, opts ...validation.CallOption) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fn, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}

	return fn.Call(args, kwargs, opts...)
}

// Has checks if a function is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// List returns all registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
