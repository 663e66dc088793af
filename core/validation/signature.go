package validation

import (
	"fmt"

	"github.com/artpar/checked/core/expect"
)

// Param declares one parameter of a checked callable.
type Param struct {
	// Name is the parameter name used for keyword binding and in errors.
	Name string

	// Expect is the declared expectation. Nil means the parameter is not
	// annotated and its value is passed through unchecked.
	Expect *expect.Expectation

	// Position is the zero-based positional index, assigned by NewSignature.
	Position int
}

// Signature is the ordered parameter list of one callable. It is built once
// and read-only afterwards.
type Signature struct {
	name     string
	params   []Param
	index    map[string]int
	variadic *Param
	keywords *Param
}

// SignatureOption adds a catch-all parameter to a signature.
type SignatureOption func(*Signature)

// Variadic collects extra positional arguments, each checked against p.Expect.
func Variadic(p Param) SignatureOption {
	return func(s *Signature) {
		s.variadic = &p
	}
}

// Keywords collects extra keyword arguments, each checked against p.Expect.
func Keywords(p Param) SignatureOption {
	return func(s *Signature) {
		s.keywords = &p
	}
}

// NewSignature validates every expectation and returns the signature.
// A malformed expectation or a duplicate name is a *expect.ConfigError.
func NewSignature(name string, params []Param, opts ...SignatureOption) (*Signature, error) {
	s := &Signature{
		name:   name,
		params: make([]Param, len(params)),
		index:  make(map[string]int, len(params)),
	}
	for _, opt := range opts {
		opt(s)
	}

	for i, p := range params {
		if p.Name == "" {
			return nil, &expect.ConfigError{Subject: name, Reason: fmt.Sprintf("parameter %d has no name", i)}
		}
		if _, dup := s.index[p.Name]; dup {
			return nil, &expect.ConfigError{Subject: name, Reason: fmt.Sprintf("duplicate parameter %q", p.Name)}
		}
		if err := checkParam(name, p); err != nil {
			return nil, err
		}
		p.Position = i
		s.params[i] = p
		s.index[p.Name] = i
	}

	for _, extra := range []*Param{s.variadic, s.keywords} {
		if extra == nil {
			continue
		}
		if extra.Name == "" {
			return nil, &expect.ConfigError{Subject: name, Reason: "catch-all parameter has no name"}
		}
		if _, dup := s.index[extra.Name]; dup {
			return nil, &expect.ConfigError{Subject: name, Reason: fmt.Sprintf("duplicate parameter %q", extra.Name)}
		}
		if err := checkParam(name, *extra); err != nil {
			return nil, err
		}
		extra.Position = -1
	}
	if s.variadic != nil && s.keywords != nil && s.variadic.Name == s.keywords.Name {
		return nil, &expect.ConfigError{Subject: name, Reason: fmt.Sprintf("duplicate parameter %q", s.variadic.Name)}
	}

	return s, nil
}

func checkParam(fn string, p Param) error {
	if p.Expect == nil {
		return nil
	}
	if err := p.Expect.Validate(); err != nil {
		return fmt.Errorf("%s: parameter %q: %w", fn, p.Name, err)
	}
	return nil
}

// Name returns the callable's name.
func (s *Signature) Name() string { return s.name }

// Params returns the declared parameters in order.
func (s *Signature) Params() []Param {
	return append([]Param(nil), s.params...)
}

// Param looks up a declared parameter by name.
func (s *Signature) Param(name string) (Param, bool) {
	i, ok := s.index[name]
	if !ok {
		return Param{}, false
	}
	return s.params[i], true
}

// VariadicParam returns the catch-all for extra positional arguments.
func (s *Signature) VariadicParam() (Param, bool) {
	if s.variadic == nil {
		return Param{}, false
	}
	return *s.variadic, true
}

// KeywordsParam returns the catch-all for extra keyword arguments.
func (s *Signature) KeywordsParam() (Param, bool) {
	if s.keywords == nil {
		return Param{}, false
	}
	return *s.keywords, true
}
