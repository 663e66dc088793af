package schema

import (
	"fmt"

	"github.com/artpar/checked/core/expect"
	"github.com/artpar/checked/core/validation"
)

// Declaration is the YAML form of one checked callable's signature.
type Declaration struct {
	// Function is the callable's name.
	Function string `yaml:"function"`

	// Description is free text for documentation.
	Description string `yaml:"description,omitempty"`

	// Params are the declared parameters in positional order.
	Params []ParamDecl `yaml:"params,omitempty"`

	// Variadic collects extra positional arguments.
	Variadic *ParamDecl `yaml:"variadic,omitempty"`

	// Keywords collects extra keyword arguments.
	Keywords *ParamDecl `yaml:"keywords,omitempty"`

	// Source is the file the declaration was read from, if any.
	Source string `yaml:"-"`
}

// ParamDecl declares one parameter. An empty Type leaves the parameter
// unchecked.
type ParamDecl struct {
	Name string `yaml:"name"`
	Type string `yaml:"type,omitempty"`
}

// Compile resolves every type against reg and builds the signature.
// Unknown or malformed types are *expect.ConfigError.
func (d Declaration) Compile(reg *expect.Registry) (*validation.Signature, error) {
	params := make([]validation.Param, 0, len(d.Params))
	for _, p := range d.Params {
		param, err := compileParam(d.Function, reg, p)
		if err != nil {
			return nil, err
		}
		params = append(params, param)
	}

	var opts []validation.SignatureOption
	if d.Variadic != nil {
		p, err := compileParam(d.Function, reg, *d.Variadic)
		if err != nil {
			return nil, err
		}
		opts = append(opts, validation.Variadic(p))
	}
	if d.Keywords != nil {
		p, err := compileParam(d.Function, reg, *d.Keywords)
		if err != nil {
			return nil, err
		}
		opts = append(opts, validation.Keywords(p))
	}

	return validation.NewSignature(d.Function, params, opts...)
}

func compileParam(fn string, reg *expect.Registry, p ParamDecl) (validation.Param, error) {
	param := validation.Param{Name: p.Name}
	if p.Type == "" {
		return param, nil
	}
	exp, err := reg.Parse(p.Type)
	if err != nil {
		return validation.Param{}, fmt.Errorf("%s: parameter %q: %w", fn, p.Name, err)
	}
	param.Expect = exp
	return param, nil
}

// Compiled pairs a declaration with its compiled signature.
type Compiled struct {
	Declaration Declaration
	Signature   *validation.Signature
}

// Catalog indexes compiled signatures by function name.
type Catalog struct {
	entries map[string]Compiled
	order   []string
}

// NewCatalog compiles every declaration. Duplicate function names are a
// configuration error.
func NewCatalog(reg *expect.Registry, decls []Declaration) (*Catalog, error) {
	c := &Catalog{entries: make(map[string]Compiled, len(decls))}
	for _, d := range decls {
		if prev, dup := c.entries[d.Function]; dup {
			return nil, &expect.ConfigError{
				Subject: d.Function,
				Reason:  fmt.Sprintf("declared twice (%s and %s)", sourceOf(prev.Declaration), sourceOf(d)),
			}
		}
		sig, err := d.Compile(reg)
		if err != nil {
			if d.Source != "" {
				return nil, fmt.Errorf("%s: %w", d.Source, err)
			}
			return nil, err
		}
		c.entries[d.Function] = Compiled{Declaration: d, Signature: sig}
		c.order = append(c.order, d.Function)
	}
	return c, nil
}

func sourceOf(d Declaration) string {
	if d.Source == "" {
		return "inline"
	}
	return d.Source
}

// Lookup returns the compiled signature for a function name.
func (c *Catalog) Lookup(name string) (Compiled, bool) {
	e, ok := c.entries[name]
	return e, ok
}

// Names returns function names in declaration order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}

// Len returns the number of functions.
func (c *Catalog) Len() int {
	return len(c.order)
}
