// Package expect models declared type expectations and decides whether a
// runtime value already conforms to one.
//
// An expectation is a tagged variant over four shapes:
//
//   - Concrete: a leaf type such as int or str, see TypeInfo
//   - Sequence: a slice of any length whose elements share one expectation
//   - Mapping:  a map whose keys and values each share one expectation
//   - Tuple:    a fixed-length slice with one expectation per position
//
// Expectations are immutable once built. They are usually parsed from
// declaration text with Registry.Parse or derived from Go types with
// Registry.FromType.
package expect

import (
	"fmt"
	"reflect"
	"strings"
)

// Kind identifies the shape of an expectation.
type Kind int

const (
	KindConcrete Kind = iota + 1
	KindSequence
	KindMapping
	KindTuple
)

func (k Kind) String() string {
	switch k {
	case KindConcrete:
		return "concrete"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindTuple:
		return "tuple"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Expectation is a declared, possibly compound, type requirement.
type Expectation struct {
	kind  Kind
	leaf  *TypeInfo
	elem  *Expectation
	key   *Expectation
	value *Expectation
	items []*Expectation
}

// Concrete expects a value of the given leaf type.
func Concrete(t *TypeInfo) *Expectation {
	return &Expectation{kind: KindConcrete, leaf: t}
}

// SequenceOf expects a slice whose every element conforms to elem.
func SequenceOf(elem *Expectation) *Expectation {
	return &Expectation{kind: KindSequence, elem: elem}
}

// MappingOf expects a map whose keys conform to key and values to value.
func MappingOf(key, value *Expectation) *Expectation {
	return &Expectation{kind: KindMapping, key: key, value: value}
}

// TupleOf expects a slice of exactly len(items) elements, element i
// conforming to items[i].
func TupleOf(items ...*Expectation) *Expectation {
	return &Expectation{kind: KindTuple, items: append([]*Expectation(nil), items...)}
}

// Kind returns the shape of e.
func (e *Expectation) Kind() Kind { return e.kind }

// Leaf returns the leaf type of a Concrete expectation.
func (e *Expectation) Leaf() *TypeInfo { return e.leaf }

// Elem returns the element expectation of a Sequence.
func (e *Expectation) Elem() *Expectation { return e.elem }

// Key returns the key expectation of a Mapping.
func (e *Expectation) Key() *Expectation { return e.key }

// Value returns the value expectation of a Mapping.
func (e *Expectation) Value() *Expectation { return e.value }

// Items returns the per-position expectations of a Tuple.
func (e *Expectation) Items() []*Expectation {
	return append([]*Expectation(nil), e.items...)
}

// Len returns the arity of a Tuple.
func (e *Expectation) Len() int { return len(e.items) }

// Item returns the expectation for tuple position i.
func (e *Expectation) Item(i int) *Expectation { return e.items[i] }

// Validate reports a ConfigError if e, or anything nested in it, cannot be
// used for checking.
func (e *Expectation) Validate() error {
	if e == nil {
		return configErrorf("", "missing expectation")
	}

	switch e.kind {
	case KindConcrete:
		return e.leaf.Validate()
	case KindSequence:
		if e.elem == nil {
			return configErrorf(e.String(), "sequence has no element type")
		}
		return e.elem.Validate()
	case KindMapping:
		if e.key == nil || e.value == nil {
			return configErrorf(e.String(), "mapping needs both key and value types")
		}
		if err := e.key.Validate(); err != nil {
			return err
		}
		if err := e.value.Validate(); err != nil {
			return err
		}
		if !e.key.GoType().Comparable() {
			return configErrorf(e.String(), "key type %s cannot be used as a map key", e.key)
		}
		return nil
	case KindTuple:
		if len(e.items) == 0 {
			return configErrorf(e.String(), "tuple needs at least one element type")
		}
		for _, item := range e.items {
			if err := item.Validate(); err != nil {
				return err
			}
		}
		return nil
	}
	return configErrorf("", "unsupported expectation shape %s", e.kind)
}

// String describes e the way error messages refer to it, e.g.
// "mapping of int to sequence of str".
func (e *Expectation) String() string {
	if e == nil {
		return "<nil>"
	}

	switch e.kind {
	case KindConcrete:
		if e.leaf == nil {
			return "<nil>"
		}
		return e.leaf.Name
	case KindSequence:
		return "sequence of " + e.elem.String()
	case KindMapping:
		return "mapping of " + e.key.String() + " to " + e.value.String()
	case KindTuple:
		parts := make([]string, len(e.items))
		for i, item := range e.items {
			parts[i] = item.String()
		}
		return "tuple of (" + strings.Join(parts, ", ") + ")"
	}
	return e.kind.String()
}

// Decl renders e back into declaration text accepted by Registry.Parse.
func (e *Expectation) Decl() string {
	switch e.kind {
	case KindConcrete:
		return e.leaf.Name
	case KindSequence:
		return "[" + e.elem.Decl() + "]"
	case KindMapping:
		return "{" + e.key.Decl() + ": " + e.value.Decl() + "}"
	case KindTuple:
		parts := make([]string, len(e.items))
		for i, item := range e.items {
			parts[i] = item.Decl()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return ""
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// GoType returns the Go type of a value rebuilt to satisfy e:
// the leaf type, []E, map[K]V, or []any for tuples.
func (e *Expectation) GoType() reflect.Type {
	switch e.kind {
	case KindConcrete:
		return e.leaf.Type
	case KindSequence:
		return reflect.SliceOf(e.elem.GoType())
	case KindMapping:
		return reflect.MapOf(e.key.GoType(), e.value.GoType())
	case KindTuple:
		return reflect.SliceOf(anyType)
	}
	return anyType
}

// Equal reports structural equality: same shapes, same leaf names.
func (e *Expectation) Equal(other *Expectation) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.kind != other.kind {
		return false
	}

	switch e.kind {
	case KindConcrete:
		if e.leaf == nil || other.leaf == nil {
			return e.leaf == other.leaf
		}
		return e.leaf.Name == other.leaf.Name
	case KindSequence:
		return e.elem.Equal(other.elem)
	case KindMapping:
		return e.key.Equal(other.key) && e.value.Equal(other.value)
	case KindTuple:
		if len(e.items) != len(other.items) {
			return false
		}
		for i := range e.items {
			if !e.items[i].Equal(other.items[i]) {
				return false
			}
		}
		return true
	}
	return false
}
