package schema_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/checked/core/expect"
	"github.com/artpar/checked/core/schema"
)

const scaleYAML = `
function: scale
description: Multiply every value by a factor.
params:
  - name: values
    type: "[float]"
  - name: factor
    type: float
  - name: note
variadic:
  name: extra
  type: int
keywords:
  name: labels
  type: str
`

func TestParse_SingleDocument(t *testing.T) {
	decls, err := schema.Parse([]byte(scaleYAML))
	require.NoError(t, err)
	require.Len(t, decls, 1)

	d := decls[0]
	assert.Equal(t, "scale", d.Function)
	assert.Equal(t, "Multiply every value by a factor.", d.Description)
	require.Len(t, d.Params, 3)
	assert.Equal(t, schema.ParamDecl{Name: "values", Type: "[float]"}, d.Params[0])
	assert.Equal(t, "", d.Params[2].Type)
	require.NotNil(t, d.Variadic)
	assert.Equal(t, "extra", d.Variadic.Name)
	require.NotNil(t, d.Keywords)
	assert.Equal(t, "str", d.Keywords.Type)
}

func TestParse_MultipleDocuments(t *testing.T) {
	data := `
function: first
params: [{name: a, type: int}]
---
function: second
params: [{name: b, type: "{str: int}"}]
`
	decls, err := schema.Parse([]byte(data))
	require.NoError(t, err)
	require.Len(t, decls, 2)
	assert.Equal(t, "first", decls[0].Function)
	assert.Equal(t, "second", decls[1].Function)
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := schema.Parse([]byte("function: f\nparameters: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse yaml")
}

func TestParse_StructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"missing function", "params: [{name: a}]\n", "function name is required"},
		{"bad function name", "function: 1f\n", `function name "1f" is not a valid identifier`},
		{"bad param name", "function: f\nparams: [{name: a-b}]\n", `parameter name "a-b"`},
		{"empty param name", "function: f\nparams: [{type: int}]\n", `parameter name ""`},
		{"duplicate param", "function: f\nparams: [{name: a}, {name: a}]\n", `parameter "a" declared more than once`},
		{"variadic clashes", "function: f\nparams: [{name: a}]\nvariadic: {name: a}\n", `parameter "a" declared more than once`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.Parse([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_CollectsAllStructuralErrors(t *testing.T) {
	_, err := schema.Parse([]byte("function: f\nparams: [{name: 1a}, {name: 2b}]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"1a"`)
	assert.Contains(t, err.Error(), `"2b"`)
}

func TestParseFile_SetsSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scale.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scaleYAML), 0o644))

	decls, err := schema.ParseFile(path)
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, path, decls[0].Source)
}

func TestParseFile_ErrorNamesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("function: \"\"\n"), 0o644))

	_, err := schema.ParseFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestParseFile_Missing(t *testing.T) {
	_, err := schema.ParseFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseDir_Recursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("function: a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "b.yml"), []byte("function: b\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("not yaml"), 0o644))

	decls, err := schema.ParseDir(dir)
	require.NoError(t, err)

	var names []string
	for _, d := range decls {
		names = append(names, d.Function)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, names)
}

func TestIsDeclarationFile(t *testing.T) {
	assert.True(t, schema.IsDeclarationFile("f.yaml"))
	assert.True(t, schema.IsDeclarationFile("f.yml"))
	assert.False(t, schema.IsDeclarationFile("f.json"))
}

func TestCompile(t *testing.T) {
	decls, err := schema.Parse([]byte(scaleYAML))
	require.NoError(t, err)

	reg := expect.NewRegistry()
	sig, err := decls[0].Compile(reg)
	require.NoError(t, err)

	assert.Equal(t, "scale", sig.Name())
	params := sig.Params()
	require.Len(t, params, 3)
	assert.True(t, params[0].Expect.Equal(reg.MustParse("[float]")))
	assert.True(t, params[1].Expect.Equal(reg.MustParse("float")))
	assert.Nil(t, params[2].Expect)

	vp, ok := sig.VariadicParam()
	require.True(t, ok)
	assert.Equal(t, "extra", vp.Name)
	assert.True(t, vp.Expect.Equal(reg.MustParse("int")))

	kp, ok := sig.KeywordsParam()
	require.True(t, ok)
	assert.True(t, kp.Expect.Equal(reg.MustParse("str")))
}

func TestCompile_UnknownTypeIsConfigError(t *testing.T) {
	d := schema.Declaration{
		Function: "f",
		Params:   []schema.ParamDecl{{Name: "a", Type: "widget"}},
	}

	_, err := d.Compile(expect.NewRegistry())
	require.Error(t, err)
	assert.ErrorIs(t, err, expect.ErrConfiguration)
	assert.Contains(t, err.Error(), `parameter "a"`)
}

func TestCompile_BadCatchAllType(t *testing.T) {
	d := schema.Declaration{
		Function: "f",
		Keywords: &schema.ParamDecl{Name: "kw", Type: "[int"},
	}

	_, err := d.Compile(expect.NewRegistry())
	assert.ErrorIs(t, err, expect.ErrConfiguration)
}

func TestCatalog(t *testing.T) {
	decls, err := schema.Parse([]byte("function: b\n---\nfunction: a\nparams: [{name: x, type: int}]\n"))
	require.NoError(t, err)

	cat, err := schema.NewCatalog(expect.NewRegistry(), decls)
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())
	assert.Equal(t, []string{"b", "a"}, cat.Names())

	entry, ok := cat.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "a", entry.Signature.Name())
	assert.Len(t, entry.Signature.Params(), 1)

	_, ok = cat.Lookup("missing")
	assert.False(t, ok)
}

func TestCatalog_DuplicateFunction(t *testing.T) {
	decls := []schema.Declaration{
		{Function: "f", Source: "one.yaml"},
		{Function: "f", Source: "two.yaml"},
	}

	_, err := schema.NewCatalog(expect.NewRegistry(), decls)
	require.Error(t, err)
	assert.ErrorIs(t, err, expect.ErrConfiguration)
	assert.Contains(t, err.Error(), "one.yaml")
	assert.Contains(t, err.Error(), "two.yaml")
}

func TestCatalog_CompileErrorNamesSource(t *testing.T) {
	decls := []schema.Declaration{
		{Function: "f", Source: "sigs.yaml", Params: []schema.ParamDecl{{Name: "a", Type: "nope"}}},
	}

	_, err := schema.NewCatalog(expect.NewRegistry(), decls)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sigs.yaml")
	assert.ErrorIs(t, err, expect.ErrConfiguration)
}
