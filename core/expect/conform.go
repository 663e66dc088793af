package expect

import (
	"reflect"
)

// Conforms reports whether v already satisfies e without modification.
// Empty sequences and mappings conform trivially. A tuple of the wrong
// length does not conform.
func Conforms(e *Expectation, v any) bool {
	switch e.kind {
	case KindConcrete:
		return e.leaf.Accepts(v)

	case KindSequence:
		rv, ok := AsSequence(v)
		if !ok {
			return false
		}
		for i := 0; i < rv.Len(); i++ {
			if !Conforms(e.elem, rv.Index(i).Interface()) {
				return false
			}
		}
		return true

	case KindMapping:
		rv, ok := AsMapping(v)
		if !ok {
			return false
		}
		iter := rv.MapRange()
		for iter.Next() {
			if !Conforms(e.key, iter.Key().Interface()) || !Conforms(e.value, iter.Value().Interface()) {
				return false
			}
		}
		return true

	case KindTuple:
		rv, ok := AsSequence(v)
		if !ok || rv.Len() != len(e.items) {
			return false
		}
		for i, item := range e.items {
			if !Conforms(item, rv.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	return false
}

// AsSequence returns v as an ordered collection. Slices and arrays qualify;
// strings, byte slices and maps do not.
func AsSequence(v any) (reflect.Value, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return reflect.Value{}, false
		}
		return rv, true
	case reflect.Array:
		return rv, true
	}
	return reflect.Value{}, false
}

// AsMapping returns v as a key/value collection.
func AsMapping(v any) (reflect.Value, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return reflect.Value{}, false
	}
	return rv, true
}
