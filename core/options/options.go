// Package options holds the process-wide switches that steer argument checking.
//
// The store is sticky: a value written by any caller stays in effect for every
// later read until it is written again. There is no reset other than setting
// an option back to its default.
package options

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidValue is returned by Set for a recognized option given a value of
// the wrong type.
var ErrInvalidValue = errors.New("invalid option value")

// Recognized option names.
const (
	// Coerce enables best-effort conversion of non-conforming arguments.
	Coerce = "coerce"

	// Active turns checking on or off entirely.
	Active = "active"

	// Debug logs construction failures swallowed during coercion.
	Debug = "debug"
)

// Defaults returns the built-in value of every recognized option.
func Defaults() map[string]any {
	return map[string]any{
		Coerce: true,
		Active: true,
		Debug:  false,
	}
}

// Recognized reports whether name is an option with defined behaviour.
func Recognized(name string) bool {
	_, ok := Defaults()[name]
	return ok
}

// Source is the read side of a Store. The validator depends on this so tests
// can inject a private store instead of the global one.
type Source interface {
	Bool(name string) bool
}

// Store maps option names to values.
//
// Each Get and Set is atomic, but a caller that reads an option and then acts
// on it may race with a concurrent Set from another goroutine. Callers that
// need a consistent view across several reads must take a Snapshot.
type Store struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewStore creates an empty store. Unset options read as their default.
func NewStore() *Store {
	return &Store{values: make(map[string]any)}
}

// Get returns the value of name, or its default when unset.
// Unset unrecognized options return nil.
func (s *Store) Get(name string) any {
	s.mu.RLock()
	v, ok := s.values[name]
	s.mu.RUnlock()
	if ok {
		return v
	}
	return Defaults()[name]
}

// Set stores value under name. Recognized options take a bool; anything else
// is rejected and the previous value stays. Unrecognized names are kept
// whatever the value but have no effect on checking.
func (s *Store) Set(name string, value any) error {
	if _, isBool := value.(bool); Recognized(name) && !isBool {
		return fmt.Errorf("%w: option %q takes a bool, got %T", ErrInvalidValue, name, value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
	return nil
}

// Unset removes a stored value, so name reads as its default again.
func (s *Store) Unset(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, name)
}

// Bool returns the option as a boolean. An option without a bool value reads
// as its default.
func (s *Store) Bool(name string) bool {
	if b, ok := s.Get(name).(bool); ok {
		return b
	}
	b, _ := Defaults()[name].(bool)
	return b
}

// Snapshot returns a copy of every recognized option plus any explicitly set
// unrecognized ones.
func (s *Store) Snapshot() map[string]any {
	out := Defaults()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Frozen is a read-only view captured from a store at one point in time.
type Frozen map[string]any

// Freeze captures the current values of s.
func (s *Store) Freeze() Frozen {
	return Frozen(s.Snapshot())
}

// Bool implements Source.
func (f Frozen) Bool(name string) bool {
	if b, ok := f[name].(bool); ok {
		return b
	}
	b, _ := Defaults()[name].(bool)
	return b
}

var (
	globalOnce  sync.Once
	globalStore *Store
)

// Global returns the process-wide store, creating it on first use.
func Global() *Store {
	globalOnce.Do(func() {
		globalStore = NewStore()
	})
	return globalStore
}

// Get reads name from the global store.
func Get(name string) any {
	return Global().Get(name)
}

// Set writes name to the global store.
func Set(name string, value any) error {
	return Global().Set(name, value)
}
