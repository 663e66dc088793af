// Package coerce converts values that do not conform to an expectation into
// values that do.
//
// Coercion is structural and eager: compound values are always rebuilt into
// fresh containers, never modified in place, so a failed coercion leaves
// nothing half-converted behind. Elements are visited in collection order
// (sorted key order for maps) and the first failure stops the walk.
package coerce

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/rs/zerolog"

	"github.com/artpar/checked/core/expect"
)

// Engine performs coercion. The zero value is ready to use and logs nothing.
type Engine struct {
	logger zerolog.Logger
	debug  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for construction failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithDebug enables logging of construction failures that are swallowed and
// turned into mismatches.
func WithDebug(debug bool) Option {
	return func(e *Engine) {
		e.debug = debug
	}
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Coerce returns v converted to satisfy exp, or a *expect.MismatchError.
// A value that already conforms comes back equivalent: leaves unchanged,
// compound values rebuilt without calling any constructor on conforming
// elements. Containers are of exp.GoType() when every element fits it; an
// element accepted only through a custom IsInstance keeps its own type and
// its container falls back to any elements.
func (e *Engine) Coerce(exp *expect.Expectation, v any) (any, error) {
	out, mm := e.coerce(exp, v, false)
	if mm != nil {
		return nil, mm
	}
	return out.Interface(), nil
}

// Materialize is like Coerce but the result is always of exactly
// exp.GoType(), so it can be passed to a Go function declared with that
// type. Leaf values accepted only through a custom IsInstance are rebuilt
// with the leaf constructor.
func (e *Engine) Materialize(exp *expect.Expectation, v any) (reflect.Value, error) {
	out, mm := e.coerce(exp, v, true)
	if mm != nil {
		return reflect.Value{}, mm
	}
	return out, nil
}

// coerce converts v. With typed set, every leaf result must be assignable to
// the leaf's Go type.
func (e *Engine) coerce(exp *expect.Expectation, v any, typed bool) (reflect.Value, *expect.MismatchError) {
	switch exp.Kind() {
	case expect.KindConcrete:
		return e.coerceLeaf(exp, v, typed)
	case expect.KindSequence:
		return e.coerceSequence(exp, v, typed)
	case expect.KindMapping:
		return e.coerceMapping(exp, v, typed)
	case expect.KindTuple:
		return e.coerceTuple(exp, v, typed)
	}
	return reflect.Value{}, expect.Mismatch(exp, v)
}

func (e *Engine) coerceLeaf(exp *expect.Expectation, v any, typed bool) (reflect.Value, *expect.MismatchError) {
	leaf := exp.Leaf()
	if leaf.Accepts(v) && (!typed || assignable(v, leaf.Type)) {
		return valueOf(v, leaf.Type), nil
	}
	// No nullable markers: nil is never handed to a constructor.
	if v == nil {
		return reflect.Value{}, expect.Mismatch(exp, v)
	}

	out, err := construct(leaf, v)
	if err != nil {
		if e.debug {
			e.logger.Debug().
				Err(err).
				Str("type", leaf.Name).
				Str("source_type", expect.TypeName(v)).
				Msg("construction failed")
		}
		return reflect.Value{}, expect.Mismatch(exp, v)
	}
	if !leaf.Accepts(out) || (typed && !assignable(out, leaf.Type)) {
		if e.debug {
			e.logger.Debug().
				Str("type", leaf.Name).
				Str("result_type", expect.TypeName(out)).
				Msg("constructor returned a non-conforming value")
		}
		return reflect.Value{}, expect.Mismatch(exp, v)
	}
	return valueOf(out, leaf.Type), nil
}

// construct calls the leaf constructor, turning a panic into an error.
func construct(leaf *expect.TypeInfo, v any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("constructor panicked: %v", r)
		}
	}()
	return leaf.Construct(v)
}

func (e *Engine) coerceSequence(exp *expect.Expectation, v any, typed bool) (reflect.Value, *expect.MismatchError) {
	src, ok := expect.AsSequence(v)
	if !ok {
		return reflect.Value{}, expect.Mismatch(exp, v)
	}

	items := make([]reflect.Value, src.Len())
	for i := range items {
		item, mm := e.coerce(exp.Elem(), src.Index(i).Interface(), typed)
		if mm != nil {
			return reflect.Value{}, mm.WithPath(fmt.Sprintf("[%d]", i))
		}
		items[i] = item
	}
	return sliceOf(elemType(exp.Elem().GoType(), items), items), nil
}

func (e *Engine) coerceMapping(exp *expect.Expectation, v any, typed bool) (reflect.Value, *expect.MismatchError) {
	src, ok := expect.AsMapping(v)
	if !ok {
		return reflect.Value{}, expect.Mismatch(exp, v)
	}

	entries := sortedEntries(src)
	keys := make([]reflect.Value, len(entries))
	vals := make([]reflect.Value, len(entries))
	for i, ent := range entries {
		rawKey := valueInterface(ent.key)
		key, mm := e.coerce(exp.Key(), rawKey, typed)
		if mm != nil {
			return reflect.Value{}, mm.WithPath("{" + expect.Repr(rawKey) + "}")
		}
		val, mm := e.coerce(exp.Value(), valueInterface(ent.value), typed)
		if mm != nil {
			return reflect.Value{}, mm.WithPath("[" + expect.Repr(rawKey) + "]")
		}
		keys[i], vals[i] = key, val
	}

	mt := reflect.MapOf(elemType(exp.Key().GoType(), keys), elemType(exp.Value().GoType(), vals))
	out := reflect.MakeMapWithSize(mt, len(entries))
	for i := range keys {
		// Keys that collide after coercion: the later entry wins.
		out.SetMapIndex(keys[i], vals[i])
	}
	return out, nil
}

func (e *Engine) coerceTuple(exp *expect.Expectation, v any, typed bool) (reflect.Value, *expect.MismatchError) {
	src, ok := expect.AsSequence(v)
	if !ok {
		return reflect.Value{}, expect.Mismatch(exp, v)
	}
	if src.Len() != exp.Len() {
		mm := expect.Mismatch(exp, v)
		mm.Reason = fmt.Sprintf("expected %d elements, got %d", exp.Len(), src.Len())
		return reflect.Value{}, mm
	}

	items := make([]reflect.Value, src.Len())
	for i := range items {
		item, mm := e.coerce(exp.Item(i), src.Index(i).Interface(), typed)
		if mm != nil {
			return reflect.Value{}, mm.WithPath(fmt.Sprintf("[%d]", i))
		}
		items[i] = item
	}
	return sliceOf(exp.GoType().Elem(), items), nil
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// elemType returns want when every item is assignable to it, else any.
func elemType(want reflect.Type, items []reflect.Value) reflect.Type {
	for _, item := range items {
		if !item.Type().AssignableTo(want) {
			return anyType
		}
	}
	return want
}

func sliceOf(elem reflect.Type, items []reflect.Value) reflect.Value {
	out := reflect.MakeSlice(reflect.SliceOf(elem), len(items), len(items))
	for i, item := range items {
		out.Index(i).Set(item)
	}
	return out
}

func assignable(v any, t reflect.Type) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).AssignableTo(t)
}

// valueOf wraps v in a reflect.Value of type t when v's own type is
// assignable to t, so it can be stored in a typed container. Values accepted
// through a custom IsInstance keep their own type.
func valueOf(v any, t reflect.Type) reflect.Value {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return reflect.Zero(t)
	}
	if rv.Type().AssignableTo(t) && rv.Type() != t {
		conv := reflect.New(t).Elem()
		conv.Set(rv)
		return conv
	}
	return rv
}

// SortedKeys returns the keys of a map value in a deterministic order:
// grouped by Go type, then natural order for numbers and strings and
// formatted order for everything else. NaN sorts before other floats.
func SortedKeys(m reflect.Value) []reflect.Value {
	keys := m.MapKeys()
	sort.SliceStable(keys, func(i, j int) bool {
		return lessKey(keys[i], keys[j])
	})
	return keys
}

type entry struct {
	key, value reflect.Value
}

// sortedEntries returns the entries of a map value in SortedKeys order.
// Values are read while ranging; a NaN key cannot be looked up again.
func sortedEntries(m reflect.Value) []entry {
	entries := make([]entry, 0, m.Len())
	iter := m.MapRange()
	for iter.Next() {
		entries = append(entries, entry{key: iter.Key(), value: iter.Value()})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return lessKey(entries[i].key, entries[j].key)
	})
	return entries
}

func lessKey(a, b reflect.Value) bool {
	if a.Kind() == reflect.Interface {
		a = a.Elem()
	}
	if b.Kind() == reflect.Interface {
		b = b.Elem()
	}
	ia, ib := valueInterface(a), valueInterface(b)

	if ta, tb := expect.TypeName(ia), expect.TypeName(ib); ta != tb {
		return ta < tb
	}
	if a.IsValid() {
		switch {
		case a.CanInt():
			return a.Int() < b.Int()
		case a.CanUint():
			return a.Uint() < b.Uint()
		case a.CanFloat():
			fa, fb := a.Float(), b.Float()
			if math.IsNaN(fa) || math.IsNaN(fb) {
				return math.IsNaN(fa) && !math.IsNaN(fb)
			}
			return fa < fb
		case a.Kind() == reflect.String:
			return a.String() < b.String()
		}
	}
	return fmt.Sprintf("%v", ia) < fmt.Sprintf("%v", ib)
}

func valueInterface(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}
