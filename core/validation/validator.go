// Package validation binds call arguments to a signature and checks each one
// against its declared expectation before the callable runs.
//
// Checking stops at the first rejected argument; the remaining arguments are
// not looked at. A rejected call never reaches the callable.
package validation

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/artpar/checked/core/coerce"
	"github.com/artpar/checked/core/expect"
	"github.com/artpar/checked/core/options"
)

// Validator checks calls against signatures.
type Validator struct {
	options   options.Source
	logger    zerolog.Logger
	observers []Observer
}

// Option configures a Validator.
type Option func(*Validator)

// WithOptions sets the option source. Defaults to options.Global().
func WithOptions(src options.Source) Option {
	return func(v *Validator) {
		v.options = src
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// WithObserver registers an observer for every checked argument.
func WithObserver(o Observer) Option {
	return func(v *Validator) {
		v.observers = append(v.observers, o)
	}
}

// New creates a validator.
func New(opts ...Option) *Validator {
	v := &Validator{
		options: options.Global(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// CallOption adjusts a single Validate call.
type CallOption func(*callConfig)

type callConfig struct {
	coerce *bool
}

// WithCoerce overrides the coerce option for one call without touching the
// shared option store.
func WithCoerce(enabled bool) CallOption {
	return func(c *callConfig) {
		c.coerce = &enabled
	}
}

// Bound holds the arguments of a successfully validated call.
type Bound struct {
	// Args are the declared parameters in declaration order.
	Args []any

	// Variadic are extra positional arguments collected by the variadic
	// catch-all, in call order.
	Variadic []any

	// Keywords are extra keyword arguments collected by the keywords
	// catch-all.
	Keywords map[string]any
}

// Positional returns Args followed by Variadic.
func (b *Bound) Positional() []any {
	out := make([]any, 0, len(b.Args)+len(b.Variadic))
	out = append(out, b.Args...)
	return append(out, b.Variadic...)
}

// Validate binds args and kwargs to sig, then checks every bound value in
// declaration order: declared parameters, variadic extras, then extra
// keywords in sorted name order.
//
// Binding failures return a *UsageError. The first value that does not
// conform, with coercion disabled or failing, returns a
// *expect.MismatchError naming the parameter.
func (v *Validator) Validate(sig *Signature, args []any, kwargs map[string]any, opts ...CallOption) (*Bound, error) {
	bound, err := bind(sig, args, kwargs)
	if err != nil {
		return nil, err
	}

	if !v.options.Bool(options.Active) {
		return bound, nil
	}

	var cfg callConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	c := &call{
		validator: v,
		sig:       sig,
		coerce:    v.options.Bool(options.Coerce),
	}
	if cfg.coerce != nil {
		c.coerce = *cfg.coerce
	}
	if c.coerce {
		c.engine = coerce.New(
			coerce.WithLogger(v.logger),
			coerce.WithDebug(v.options.Bool(options.Debug)),
		)
	}

	for i, p := range sig.params {
		out, err := c.check(p.Name, p.Expect, bound.Args[i])
		if err != nil {
			return nil, err
		}
		bound.Args[i] = out
	}

	if vp, ok := sig.VariadicParam(); ok {
		for i, raw := range bound.Variadic {
			out, err := c.check(fmt.Sprintf("%s[%d]", vp.Name, i), vp.Expect, raw)
			if err != nil {
				return nil, err
			}
			bound.Variadic[i] = out
		}
	}

	if kp, ok := sig.KeywordsParam(); ok {
		for _, name := range sortedNames(bound.Keywords) {
			out, err := c.check(name, kp.Expect, bound.Keywords[name])
			if err != nil {
				return nil, err
			}
			bound.Keywords[name] = out
		}
	}

	return bound, nil
}

// call carries the per-call decisions so concurrent Validate calls never
// share mutable state.
type call struct {
	validator *Validator
	sig       *Signature
	coerce    bool
	engine    *coerce.Engine
}

func (c *call) check(param string, exp *expect.Expectation, raw any) (any, error) {
	if exp == nil {
		return raw, nil
	}

	if expect.Conforms(exp, raw) {
		c.notify(param, exp, OutcomeConformed)
		return raw, nil
	}

	if !c.coerce {
		mm := expect.Mismatch(exp, raw)
		mm.Param = param
		c.reject(param, exp, mm)
		return nil, mm
	}

	out, err := c.engine.Coerce(exp, raw)
	if err != nil {
		mm, ok := err.(*expect.MismatchError)
		if !ok {
			mm = expect.Mismatch(exp, raw)
		}
		mm.Param = param
		c.reject(param, exp, mm)
		return nil, mm
	}

	c.validator.logger.Debug().
		Str("func", c.sig.name).
		Str("param", param).
		Str("expected", exp.String()).
		Str("source_type", expect.TypeName(raw)).
		Msg("argument coerced")
	c.notify(param, exp, OutcomeCoerced)
	return out, nil
}

func (c *call) reject(param string, exp *expect.Expectation, mm *expect.MismatchError) {
	c.validator.logger.Debug().
		Str("func", c.sig.name).
		Str("param", param).
		Str("expected", exp.String()).
		Str("actual_type", mm.ActualType).
		Bool("coerce", c.coerce).
		Msg("argument rejected")
	c.notify(param, exp, OutcomeRejected)
}

func (c *call) notify(param string, exp *expect.Expectation, outcome Outcome) {
	if len(c.validator.observers) == 0 {
		return
	}
	ev := Event{
		Func:     c.sig.name,
		Param:    param,
		Expected: exp.String(),
		Outcome:  outcome,
	}
	for _, o := range c.validator.observers {
		o.Observe(ev)
	}
}

// bind assigns each argument to a parameter without looking at types.
func bind(sig *Signature, args []any, kwargs map[string]any) (*Bound, error) {
	b := &Bound{Args: make([]any, len(sig.params))}

	for i, p := range sig.params {
		kv, byKeyword := kwargs[p.Name]
		switch {
		case i < len(args) && byKeyword:
			return nil, &UsageError{Func: sig.name, Param: p.Name, Reason: "given both positionally and by keyword"}
		case i < len(args):
			b.Args[i] = args[i]
		case byKeyword:
			b.Args[i] = kv
		default:
			return nil, &UsageError{Func: sig.name, Param: p.Name, Reason: "missing"}
		}
	}

	if extra := len(args) - len(sig.params); extra > 0 {
		if sig.variadic == nil {
			return nil, &UsageError{
				Func:   sig.name,
				Reason: fmt.Sprintf("takes %d positional arguments but %d were given", len(sig.params), len(args)),
			}
		}
		b.Variadic = append([]any(nil), args[len(sig.params):]...)
	}

	for _, name := range sortedNames(kwargs) {
		if _, declared := sig.index[name]; declared {
			continue
		}
		if sig.keywords == nil {
			return nil, &UsageError{Func: sig.name, Param: name, Reason: "unexpected keyword argument"}
		}
		if b.Keywords == nil {
			b.Keywords = make(map[string]any)
		}
		b.Keywords[name] = kwargs[name]
	}

	return b, nil
}

func sortedNames(m map[string]any) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
