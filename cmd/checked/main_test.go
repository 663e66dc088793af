package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/checked/core/expect"
)

const scaleDecl = `function: scale
params:
  - {name: values, type: "[float]"}
  - {name: factor, type: float}
`

const tagDecl = `function: tag
params:
  - {name: id, type: uuid}
variadic: {name: labels, type: str}
keywords: {name: attrs, type: int}
`

// resetFlags restores every flag to its default so runs do not leak into
// each other.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

// workdir switches into a fresh directory holding the given files.
func workdir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
	return dir
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "checked dev")
	assert.Contains(t, out, "commit:")
}

func TestLint(t *testing.T) {
	t.Run("valid files", func(t *testing.T) {
		workdir(t, map[string]string{
			"sigs/scale.yaml":   scaleDecl,
			"sigs/nested/t.yml": tagDecl,
			"sigs/README.md":    "not a declaration",
		})

		out, err := execute(t, "", "lint", "sigs")
		require.NoError(t, err)
		assert.Contains(t, out, checkMark)
		assert.Contains(t, out, "2 functions in 2 files")
	})

	t.Run("unknown type", func(t *testing.T) {
		workdir(t, map[string]string{
			"bad.yaml": "function: f\nparams:\n  - {name: x, type: widget}\n",
		})

		out, err := execute(t, "", "lint", "bad.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 1 signature files failed")
		assert.Contains(t, out, crossMark)
		assert.Contains(t, out, "widget")
	})

	t.Run("duplicate across files", func(t *testing.T) {
		workdir(t, map[string]string{
			"a.yaml": scaleDecl,
			"b.yaml": scaleDecl,
		})

		out, err := execute(t, "", "lint", "a.yaml", "b.yaml")
		require.ErrorIs(t, err, errReported)
		assert.Contains(t, out, "declared twice")
	})

	t.Run("configured directory", func(t *testing.T) {
		workdir(t, map[string]string{
			"checked.yaml":     "signatures:\n  dir: decls\n",
			"decls/scale.yaml": scaleDecl,
		})

		out, err := execute(t, "", "lint")
		require.NoError(t, err)
		assert.Contains(t, out, "1 functions in 1 files")
	})

	t.Run("nothing to lint", func(t *testing.T) {
		workdir(t, nil)

		_, err := execute(t, "", "lint")
		require.Error(t, err)
	})
}

func TestCall(t *testing.T) {
	t.Run("coerces arguments", func(t *testing.T) {
		workdir(t, map[string]string{"scale.yaml": scaleDecl})

		out, err := execute(t, "", "call", "--sig", "scale.yaml", "--args", `[["1.5", 2], "3"]`, "-o", "json")
		require.NoError(t, err)

		var call struct {
			Function  string `json:"function"`
			Arguments []struct {
				Name     string `json:"name"`
				Expected string `json:"expected"`
				Value    any    `json:"value"`
			} `json:"arguments"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &call))
		assert.Equal(t, "scale", call.Function)
		require.Len(t, call.Arguments, 2)
		assert.Equal(t, "values", call.Arguments[0].Name)
		assert.Equal(t, "[float]", call.Arguments[0].Expected)
		assert.Equal(t, []any{1.5, 2.0}, call.Arguments[0].Value)
		assert.Equal(t, 3.0, call.Arguments[1].Value)
	})

	t.Run("no-coerce rejects", func(t *testing.T) {
		workdir(t, map[string]string{"scale.yaml": scaleDecl})

		out, err := execute(t, "", "call", "--sig", "scale.yaml", "--args", `[["1.5"], 3.0]`, "--no-coerce", "-o", "json")
		require.ErrorIs(t, err, errReported)

		var fields map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &fields))
		assert.Equal(t, "type_mismatch", fields["kind"])
		assert.Equal(t, "values", fields["param"])
	})

	t.Run("picks function by name", func(t *testing.T) {
		workdir(t, map[string]string{
			"sigs/scale.yaml": scaleDecl,
			"sigs/tag.yaml":   tagDecl,
		})

		_, err := execute(t, "", "call", "--sig", "sigs", "--args", `[[1], 2]`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pick one with --func")

		out, err := execute(t, "", "call", "--sig", "sigs", "--func", "tag",
			"--args", `["6ba7b810-9dad-11d1-80b4-00c04fd430c8", "a", "b"]`,
			"--kwargs", `{"weight": "7"}`)
		require.NoError(t, err)
		assert.Contains(t, out, "tag()")
		assert.Contains(t, out, "labels[1]")
		assert.Contains(t, out, "weight")
		assert.Contains(t, out, "6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	})

	t.Run("bad json", func(t *testing.T) {
		workdir(t, map[string]string{"scale.yaml": scaleDecl})

		_, err := execute(t, "", "call", "--sig", "scale.yaml", "--args", `{`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--args must be a JSON array")
	})
}

func TestTypes(t *testing.T) {
	workdir(t, nil)

	out, err := execute(t, "", "types", "-o", "json")
	require.NoError(t, err)

	var listing struct {
		Kind string           `json:"kind"`
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listing))
	assert.Equal(t, "types", listing.Kind)

	byName := make(map[string]map[string]any)
	for _, r := range listing.Data {
		byName[r["name"].(string)] = r
	}
	require.Contains(t, byName, "str")
	assert.Equal(t, "string", byName["str"]["aliases"])
	assert.Equal(t, "string", byName["str"]["go_type"])
	assert.Contains(t, byName, "uuid")
	assert.Contains(t, byName, "duration")
}

func TestServe(t *testing.T) {
	workdir(t, map[string]string{"scale.yaml": scaleDecl})

	stdin := strings.Join([]string{
		`{"function": "scale", "args": [["1", 2], 3]}`,
		``,
		`{"function": "scale", "args": [["1"], 3], "coerce": false}`,
		`{"function": "missing"}`,
		`not json`,
	}, "\n")

	out, err := execute(t, stdin, "serve", "--sig", "scale.yaml")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)

	var responses []map[string]any
	for _, line := range lines {
		var r map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &r))
		responses = append(responses, r)
	}

	assert.Equal(t, true, responses[0]["ok"])
	assert.NotNil(t, responses[0]["call"])

	assert.Equal(t, false, responses[1]["ok"])
	assert.Equal(t, "type_mismatch", responses[1]["error"].(map[string]any)["kind"])

	assert.Equal(t, false, responses[2]["ok"])
	assert.Equal(t, "request", responses[2]["error"].(map[string]any)["kind"])

	assert.Equal(t, false, responses[3]["ok"])
	assert.Contains(t, responses[3]["error"].(map[string]any)["error"], "invalid request")
}

func TestParseArgs(t *testing.T) {
	args, err := parseArgs(`[1, 2.5, "x", [3], {"k": 4}, null]`)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2.5, "x", []any{3}, map[string]any{"k": 4}, nil}, args)

	args, err = parseArgs("")
	require.NoError(t, err)
	assert.Nil(t, args)

	_, err = parseKwargs(`[1]`)
	require.Error(t, err)
}

func TestParseFiles_CancelledContext(t *testing.T) {
	dir := workdir(t, map[string]string{
		"a.yaml": scaleDecl,
		"b.yaml": tagDecl,
	})
	files := []string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.yaml")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := parseFiles(ctx, expect.NewRegistry(), files)
	require.Len(t, results, 2)
	for i, res := range results {
		assert.Equal(t, files[i], res.path)
		assert.ErrorIs(t, res.err, context.Canceled)
	}

	results = parseFiles(context.Background(), expect.NewRegistry(), files)
	for _, res := range results {
		assert.NoError(t, res.err)
	}
}
