// Package formatter renders checked calls, listings and errors for the CLI.
// Formatters convert structured data to various output formats (table, json, yaml).
package formatter

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/artpar/checked/core/expect"
	"github.com/artpar/checked/core/validation"
)

// Formatter converts structured data to a specific output format.
type Formatter interface {
	// Name returns the formatter name (e.g., "table", "json", "yaml").
	Name() string

	// Description returns a human-readable description.
	Description() string

	// FormatList formats a list of records under a title.
	FormatList(w io.Writer, title string, records []map[string]any, opts FormatOptions) error

	// FormatCall formats the bound arguments of a validated call.
	FormatCall(w io.Writer, call Call, opts FormatOptions) error

	// FormatError formats an error.
	FormatError(w io.Writer, err error) error
}

// FormatOptions configures formatting behavior.
type FormatOptions struct {
	// Columns specifies which fields to include (nil = all).
	Columns []string

	// NoHeader disables header row for tabular formats.
	NoHeader bool

	// Compact minimizes whitespace (for json).
	Compact bool

	// MaxWidth truncates long values (0 = no limit).
	MaxWidth int
}

// Argument kinds in a Call.
const (
	ArgParam    = "param"
	ArgVariadic = "variadic"
	ArgKeyword  = "keyword"
)

// Arg is one bound argument.
type Arg struct {
	Name     string `json:"name" yaml:"name"`
	Kind     string `json:"kind" yaml:"kind"`
	Expected string `json:"expected,omitempty" yaml:"expected,omitempty"`
	Type     string `json:"type" yaml:"type"`
	Value    any    `json:"value" yaml:"value"`
}

// Call is a validated call ready for display.
type Call struct {
	Function string `json:"function" yaml:"function"`
	Args     []Arg  `json:"arguments" yaml:"arguments"`
}

// FromBound flattens a validated call into display form: declared
// parameters, variadic extras, then extra keywords sorted by name.
func FromBound(sig *validation.Signature, b *validation.Bound) Call {
	c := Call{Function: sig.Name()}

	for i, p := range sig.Params() {
		c.Args = append(c.Args, newArg(p.Name, ArgParam, p.Expect, b.Args[i]))
	}

	if vp, ok := sig.VariadicParam(); ok {
		for i, v := range b.Variadic {
			c.Args = append(c.Args, newArg(fmt.Sprintf("%s[%d]", vp.Name, i), ArgVariadic, vp.Expect, v))
		}
	}

	if kp, ok := sig.KeywordsParam(); ok {
		names := make([]string, 0, len(b.Keywords))
		for name := range b.Keywords {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			c.Args = append(c.Args, newArg(name, ArgKeyword, kp.Expect, b.Keywords[name]))
		}
	}

	return c
}

func newArg(name, kind string, exp *expect.Expectation, v any) Arg {
	a := Arg{
		Name:  name,
		Kind:  kind,
		Type:  expect.TypeName(v),
		Value: displayValue(v),
	}
	if exp != nil {
		a.Expected = exp.Decl()
	}
	return a
}

// displayValue turns leaf values with a textual form (uuid, duration,
// timestamp) into that text.
func displayValue(v any) any {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return v
}

// ErrorFields returns the structured form of err for json and yaml output.
func ErrorFields(err error) map[string]any {
	out := map[string]any{
		"error": err.Error(),
	}

	var mm *expect.MismatchError
	var usage *validation.UsageError
	var cfg *expect.ConfigError
	switch {
	case errors.As(err, &mm):
		out["kind"] = "type_mismatch"
		out["param"] = mm.Param
		if mm.Path != "" {
			out["path"] = mm.Path
		}
		out["expected"] = mm.Expected
		out["actual_type"] = mm.ActualType
	case errors.As(err, &usage):
		out["kind"] = "usage"
		if usage.Param != "" {
			out["param"] = usage.Param
		}
	case errors.As(err, &cfg):
		out["kind"] = "configuration"
	}
	return out
}

// columnsOf returns the requested columns, or the sorted union of record keys.
func columnsOf(records []map[string]any, requested []string) []string {
	if len(requested) > 0 {
		return requested
	}

	seen := make(map[string]bool)
	var columns []string
	for _, r := range records {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)
	return columns
}

// project keeps only the given columns of each record.
func project(records []map[string]any, columns []string) []map[string]any {
	if len(columns) == 0 {
		return records
	}

	result := make([]map[string]any, len(records))
	for i, record := range records {
		row := make(map[string]any, len(columns))
		for _, col := range columns {
			if val, ok := record[col]; ok {
				row[col] = val
			}
		}
		result[i] = row
	}
	return result
}

// Registry manages registered formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
	defaultFmt string
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
		defaultFmt: "table",
	}
}

// Register adds a formatter to the registry.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Name()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}

	r.formatters[f.Name()] = f
	return nil
}

// Get returns a formatter by name.
func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[name]
	return f, ok
}

// Default returns the default formatter.
func (r *Registry) Default() Formatter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.formatters[r.defaultFmt]; ok {
		return f
	}
	// Fallback to the first name in order
	names := r.sortedNames()
	if len(names) == 0 {
		return nil
	}
	return r.formatters[names[0]]
}

// SetDefault sets the default formatter.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[name]; !exists {
		return fmt.Errorf("formatter %q not registered", name)
	}

	r.defaultFmt = name
	return nil
}

// List returns all registered formatter names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter to the default registry.
func Register(f Formatter) error {
	return DefaultRegistry.Register(f)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// Default returns the default formatter from the default registry.
func Default() Formatter {
	return DefaultRegistry.Default()
}

// List returns all formatter names from the default registry.
func List() []string {
	return DefaultRegistry.List()
}
