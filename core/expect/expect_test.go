package expect_test

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/checked/core/expect"
)

func TestParse_Shapes(t *testing.T) {
	reg := expect.NewRegistry()

	tests := []struct {
		decl string
		kind expect.Kind
		desc string
	}{
		{"int", expect.KindConcrete, "int"},
		{"string", expect.KindConcrete, "str"},
		{"[int]", expect.KindSequence, "sequence of int"},
		{"{int: str}", expect.KindMapping, "mapping of int to str"},
		{"(int, bool)", expect.KindTuple, "tuple of (int, bool)"},
		{"[int, bool]", expect.KindTuple, "tuple of (int, bool)"},
		{"(uuid)", expect.KindTuple, "tuple of (uuid)"},
		{" { str : [ (int, float) ] } ", expect.KindMapping, "mapping of str to sequence of tuple of (int, float)"},
	}
	for _, tt := range tests {
		t.Run(tt.decl, func(t *testing.T) {
			e, err := reg.Parse(tt.decl)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, e.Kind())
			assert.Equal(t, tt.desc, e.String())

			again, err := reg.Parse(e.Decl())
			require.NoError(t, err)
			assert.True(t, e.Equal(again), "Decl() should round-trip %q", e.Decl())
		})
	}
}

func TestParse_ConfigErrors(t *testing.T) {
	reg := expect.NewRegistry()

	bad := []string{
		"",
		"integer",
		"[]",
		"()",
		"{int}",
		"{int: }",
		"[int",
		"(int, bool",
		"int]",
		"{[int]: str}",
		"{bytes: str}",
		"@",
	}
	for _, decl := range bad {
		t.Run(decl, func(t *testing.T) {
			_, err := reg.Parse(decl)
			require.Error(t, err)
			assert.True(t, errors.Is(err, expect.ErrConfiguration), "got %v", err)

			var cfgErr *expect.ConfigError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestMustParse_Panics(t *testing.T) {
	reg := expect.NewRegistry()
	assert.Panics(t, func() { reg.MustParse("nope") })
	assert.NotPanics(t, func() { reg.MustParse("[int]") })
}

func TestExpectation_ValidateRejectsMalformed(t *testing.T) {
	intT, _ := expect.NewRegistry().Lookup("int")

	tests := map[string]*expect.Expectation{
		"nil":               nil,
		"nil leaf":          expect.Concrete(nil),
		"not constructible": expect.Concrete(&expect.TypeInfo{Name: "widget", Type: reflect.TypeOf(0)}),
		"no go type":        expect.Concrete(&expect.TypeInfo{Name: "widget", Construct: func(v any) (any, error) { return v, nil }}),
		"sequence of nil":   expect.SequenceOf(nil),
		"mapping half":      expect.MappingOf(expect.Concrete(intT), nil),
		"empty tuple":       expect.TupleOf(),
		"zero value":        {},
	}
	for name, e := range tests {
		t.Run(name, func(t *testing.T) {
			err := e.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, expect.ErrConfiguration)
		})
	}
}

func TestExpectation_GoType(t *testing.T) {
	reg := expect.NewRegistry()

	assert.Equal(t, reflect.TypeOf(0), reg.MustParse("int").GoType())
	assert.Equal(t, reflect.TypeOf([]int(nil)), reg.MustParse("[int]").GoType())
	assert.Equal(t, reflect.TypeOf(map[int]string(nil)), reg.MustParse("{int: str}").GoType())
	assert.Equal(t, reflect.TypeOf([]any(nil)), reg.MustParse("(int, bool)").GoType())
	assert.Equal(t, reflect.TypeOf([][]byte(nil)), reg.MustParse("[bytes]").GoType())
}

func TestExpectation_Equal(t *testing.T) {
	a := expect.NewRegistry()
	b := expect.NewRegistry()

	assert.True(t, a.MustParse("{int: [str]}").Equal(b.MustParse("{int: [string]}")))
	assert.False(t, a.MustParse("[int]").Equal(a.MustParse("(int)")))
	assert.False(t, a.MustParse("(int, str)").Equal(a.MustParse("(int, int)")))
	assert.False(t, a.MustParse("(int)").Equal(a.MustParse("(int, int)")))
	assert.False(t, a.MustParse("int").Equal(nil))
}

func TestConforms(t *testing.T) {
	reg := expect.NewRegistry()

	tests := []struct {
		decl string
		val  any
		want bool
	}{
		{"int", 3, true},
		{"int", int64(3), false},
		{"int", "3", false},
		{"int", nil, false},
		{"bool", true, true},
		{"bool", 1, false},
		{"str", "x", true},
		{"bytes", []byte("x"), true},
		{"[int]", []int{1, 2}, true},
		{"[int]", []any{1, 2}, true},
		{"[int]", []any{1, "2"}, false},
		{"[int]", []any{}, true},
		{"[int]", [2]int{1, 2}, true},
		{"[int]", "12", false},
		{"[int]", map[int]int{}, false},
		{"[int]", nil, false},
		{"{int: str}", map[int]string{1: "a"}, true},
		{"{int: str}", map[any]any{1: "a", 2: 3}, false},
		{"{int: str}", map[string]string{}, true},
		{"{int: str}", []any{1, "a"}, false},
		{"(int, bool)", []any{1, true}, true},
		{"(int, bool)", []any{1, true, 3}, false},
		{"(int, bool)", []any{true, 1}, false},
		{"(int, bool)", [2]any{1, false}, true},
		{"[[int]]", [][]int{{1}, {}}, true},
		{"uuid", uuid.New(), true},
		{"duration", time.Second, true},
		{"timestamp", time.Now(), true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v", tt.decl, tt.val), func(t *testing.T) {
			assert.Equal(t, tt.want, expect.Conforms(reg.MustParse(tt.decl), tt.val))
		})
	}
}

type celsius float64

type proxy struct{ target float64 }

func TestConforms_PluggableIsInstance(t *testing.T) {
	reg := expect.NewRegistry()
	require.NoError(t, reg.Register(expect.TypeInfo{
		Name: "celsius",
		Type: reflect.TypeOf(celsius(0)),
		Construct: func(v any) (any, error) {
			f, ok := v.(float64)
			if !ok {
				return nil, errors.New("need float64")
			}
			return celsius(f), nil
		},
		IsInstance: func(v any) bool {
			switch v.(type) {
			case celsius, proxy:
				return true
			}
			return false
		},
	}))

	e := reg.MustParse("celsius")
	assert.True(t, expect.Conforms(e, celsius(3)))
	assert.True(t, expect.Conforms(e, proxy{target: 3}))
	assert.False(t, expect.Conforms(e, 3.0))
}

func TestConforms_InterfaceLeafIsStructural(t *testing.T) {
	reg := expect.NewEmptyRegistry()
	require.NoError(t, expect.Register[fmt.Stringer](reg, "stringer", func(v any) (fmt.Stringer, error) {
		return nil, errors.New("cannot build a stringer")
	}))

	e := reg.MustParse("stringer")
	assert.True(t, expect.Conforms(e, time.Second))
	assert.True(t, expect.Conforms(e, uuid.Nil))
	assert.False(t, expect.Conforms(e, 5))
}

func TestRegistry_Register(t *testing.T) {
	reg := expect.NewRegistry()

	err := expect.Register[celsius](reg, "int", func(v any) (celsius, error) { return 0, nil })
	assert.ErrorIs(t, err, expect.ErrConfiguration, "duplicate name")

	err = expect.Register[celsius](reg, "celsius", nil)
	assert.ErrorIs(t, err, expect.ErrConfiguration, "missing constructor")

	_, ok := reg.Lookup("celsius")
	assert.False(t, ok)

	require.NoError(t, expect.Register(reg, "celsius", func(v any) (celsius, error) { return 1, nil }))
	info, ok := reg.Lookup("celsius")
	require.True(t, ok)
	assert.Equal(t, reflect.TypeOf(celsius(0)), info.Type)

	assert.Contains(t, reg.Names(), "string")
	assert.Contains(t, reg.Names(), "celsius")

	var names []string
	for _, ti := range reg.Types() {
		names = append(names, ti.Name)
	}
	assert.NotContains(t, names, "string", "aliases are not separate types")
	assert.Contains(t, names, "str")
}

func TestRegistry_FromType(t *testing.T) {
	reg := expect.NewRegistry()

	tests := []struct {
		typ  reflect.Type
		desc string
	}{
		{reflect.TypeOf(0), "int"},
		{reflect.TypeOf([]string(nil)), "sequence of str"},
		{reflect.TypeOf([]byte(nil)), "bytes"},
		{reflect.TypeOf(map[string][]float64(nil)), "mapping of str to sequence of float"},
		{reflect.TypeOf([]uuid.UUID(nil)), "sequence of uuid"},
	}
	for _, tt := range tests {
		e, err := reg.FromType(tt.typ)
		require.NoError(t, err, tt.typ.String())
		assert.Equal(t, tt.desc, e.String())
	}

	for _, typ := range []reflect.Type{nil, reflect.TypeOf(int8(0)), reflect.TypeOf([2]int{}), reflect.TypeOf(struct{}{})} {
		_, err := reg.FromType(typ)
		assert.ErrorIs(t, err, expect.ErrConfiguration)
	}
}

func TestMismatchError_Message(t *testing.T) {
	reg := expect.NewRegistry()

	err := expect.Mismatch(reg.MustParse("int"), "x").WithPath("[1]")
	err.Param = "items"

	assert.Equal(t, `argument "items": element [1] "x" is of type string, expecting int`, err.Error())
	assert.ErrorIs(t, err, expect.ErrTypeMismatch)
	assert.NotErrorIs(t, err, expect.ErrConfiguration)

	nested := err.WithPath(`["k"]`)
	assert.Equal(t, `["k"][1]`, nested.Path)
	assert.Equal(t, "[1]", err.Path, "WithPath must not modify the receiver")

	plain := expect.Mismatch(reg.MustParse("(int, bool)"), []any{1, 2, 3})
	plain.Reason = "expected 2 elements, got 3"
	assert.Equal(t, "[1 2 3] is of type []interface {}, expecting tuple of (int, bool) (expected 2 elements, got 3)", plain.Error())
}

func TestRepr(t *testing.T) {
	assert.Equal(t, "nil", expect.Repr(nil))
	assert.Equal(t, `"a"`, expect.Repr("a"))
	assert.Equal(t, "42", expect.Repr(42))

	long := expect.Repr(strings.Repeat("x", 200))
	assert.Equal(t, 60, len([]rune(long)))
	assert.True(t, strings.HasSuffix(long, "..."))

	assert.Equal(t, "nil", expect.TypeName(nil))
	assert.Equal(t, "map[string]int", expect.TypeName(map[string]int{}))
}

func TestConfigError_Message(t *testing.T) {
	_, err := expect.NewRegistry().Parse("[integer]")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), `invalid type declaration "integer": not a registered type`))
}
