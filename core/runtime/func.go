// Package runtime wraps Go functions so every call is checked against a
// signature before the function runs.
package runtime

import (
	"fmt"
	"reflect"
	goruntime "runtime"
	"sort"
	"strings"

	"github.com/artpar/checked/core/coerce"
	"github.com/artpar/checked/core/expect"
	"github.com/artpar/checked/core/validation"
)

var (
	errorType = reflect.TypeOf((*error)(nil)).Elem()
	anyType   = reflect.TypeOf((*any)(nil)).Elem()
)

// Func is a Go function guarded by a signature.
//
// Go parameters map onto the signature in order: one per declared parameter,
// then a map[string]T for the keywords catch-all if the signature has one,
// then the Go variadic parameter for the variadic catch-all.
type Func struct {
	fn        reflect.Value
	sig       *validation.Signature
	validator *validation.Validator
	engine    *coerce.Engine

	// kwIndex is the Go parameter index of the keywords map, or -1.
	kwIndex int
}

// Wrap checks that fn can receive every value sig lets through and returns
// the guarded function. A shape mismatch is a *expect.ConfigError.
func Wrap(fn any, sig *validation.Signature, v *validation.Validator) (*Func, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return nil, &expect.ConfigError{Subject: sig.Name(), Reason: fmt.Sprintf("cannot wrap %T: not a function", fn)}
	}
	if v == nil {
		v = validation.New()
	}

	ft := rv.Type()
	params := sig.Params()
	vp, hasVariadic := sig.VariadicParam()
	kp, hasKeywords := sig.KeywordsParam()

	want := len(params)
	if hasKeywords {
		want++
	}
	if hasVariadic {
		want++
	}
	if ft.NumIn() != want {
		return nil, &expect.ConfigError{
			Subject: sig.Name(),
			Reason:  fmt.Sprintf("signature needs %d Go parameters, function has %d", want, ft.NumIn()),
		}
	}
	if hasVariadic != ft.IsVariadic() {
		return nil, &expect.ConfigError{Subject: sig.Name(), Reason: "variadic parameter does not match the Go function"}
	}

	for i, p := range params {
		if err := checkAssignable(sig.Name(), p, ft.In(i)); err != nil {
			return nil, err
		}
	}

	f := &Func{
		fn:        rv,
		sig:       sig,
		validator: v,
		engine:    coerce.New(),
		kwIndex:   -1,
	}

	if hasKeywords {
		f.kwIndex = len(params)
		mt := ft.In(f.kwIndex)
		if mt.Kind() != reflect.Map || mt.Key().Kind() != reflect.String {
			return nil, &expect.ConfigError{
				Subject: sig.Name(),
				Reason:  fmt.Sprintf("keywords parameter %q needs a map[string]T, function takes %s", kp.Name, mt),
			}
		}
		if err := checkAssignable(sig.Name(), kp, mt.Elem()); err != nil {
			return nil, err
		}
	}
	if hasVariadic {
		if err := checkAssignable(sig.Name(), vp, ft.In(ft.NumIn()-1).Elem()); err != nil {
			return nil, err
		}
	}

	return f, nil
}

func checkAssignable(fn string, p validation.Param, t reflect.Type) error {
	if p.Expect == nil {
		return nil
	}
	if gt := p.Expect.GoType(); !gt.AssignableTo(t) {
		return &expect.ConfigError{
			Subject: fn,
			Reason:  fmt.Sprintf("parameter %q: %s (%s) is not assignable to Go type %s", p.Name, p.Expect, gt, t),
		}
	}
	return nil
}

// MustWrap is like Wrap but panics on error.
func MustWrap(fn any, sig *validation.Signature, v *validation.Validator) *Func {
	f, err := Wrap(fn, sig, v)
	if err != nil {
		panic(err)
	}
	return f
}

// Name returns the signature's name.
func (f *Func) Name() string { return f.sig.Name() }

// Signature returns the signature the function is guarded by.
func (f *Func) Signature() *validation.Signature { return f.sig }

// Call validates args and kwargs, then invokes the function. The function
// does not run when validation fails. If its last result is an error, that
// error is returned and left out of the results.
func (f *Func) Call(args []any, kwargs map[string]any, opts ...validation.CallOption) ([]any, error) {
	bound, err := f.validator.Validate(f.sig, args, kwargs, opts...)
	if err != nil {
		return nil, err
	}

	in, err := f.arguments(bound)
	if err != nil {
		return nil, err
	}

	return results(f.fn.Call(in))
}

func (f *Func) arguments(b *validation.Bound) ([]reflect.Value, error) {
	ft := f.fn.Type()
	in := make([]reflect.Value, 0, len(b.Args)+len(b.Variadic)+1)

	for i, p := range f.sig.Params() {
		rv, err := f.value(p.Name, p.Expect, b.Args[i], ft.In(i))
		if err != nil {
			return nil, err
		}
		in = append(in, rv)
	}

	if f.kwIndex >= 0 {
		kp, _ := f.sig.KeywordsParam()
		mt := ft.In(f.kwIndex)
		m := reflect.MakeMapWithSize(mt, len(b.Keywords))
		names := make([]string, 0, len(b.Keywords))
		for name := range b.Keywords {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			rv, err := f.value(name, kp.Expect, b.Keywords[name], mt.Elem())
			if err != nil {
				return nil, err
			}
			m.SetMapIndex(reflect.ValueOf(name).Convert(mt.Key()), rv)
		}
		in = append(in, m)
	}

	if vp, ok := f.sig.VariadicParam(); ok {
		et := ft.In(ft.NumIn() - 1).Elem()
		for i, raw := range b.Variadic {
			rv, err := f.value(fmt.Sprintf("%s[%d]", vp.Name, i), vp.Expect, raw, et)
			if err != nil {
				return nil, err
			}
			in = append(in, rv)
		}
	}

	return in, nil
}

// value turns a validated argument into a reflect.Value of Go type t.
// Compound values and proxy leaves are rebuilt into the expectation's Go type.
func (f *Func) value(param string, exp *expect.Expectation, v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		if nillable(t) {
			return reflect.Zero(t), nil
		}
	} else if reflect.TypeOf(v).AssignableTo(t) {
		return assignTo(reflect.ValueOf(v), t), nil
	}

	if exp == nil {
		return reflect.Value{}, &validation.UsageError{
			Func:   f.sig.Name(),
			Param:  param,
			Reason: fmt.Sprintf("cannot use %s as Go type %s", expect.TypeName(v), t),
		}
	}

	rv, err := f.engine.Materialize(exp, v)
	if err != nil {
		mm, ok := err.(*expect.MismatchError)
		if ok {
			mm.Param = param
		}
		return reflect.Value{}, err
	}
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, &validation.UsageError{
			Func:   f.sig.Name(),
			Param:  param,
			Reason: fmt.Sprintf("cannot use %s as Go type %s", rv.Type(), t),
		}
	}
	return assignTo(rv, t), nil
}

func assignTo(rv reflect.Value, t reflect.Type) reflect.Value {
	if rv.Type() == t {
		return rv
	}
	out := reflect.New(t).Elem()
	out.Set(rv)
	return out
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

func results(out []reflect.Value) ([]any, error) {
	var err error
	if n := len(out); n > 0 && out[n-1].Type() == errorType {
		if e := out[n-1].Interface(); e != nil {
			err = e.(error)
		}
		out = out[:n-1]
	}

	res := make([]any, len(out))
	for i, rv := range out {
		res[i] = rv.Interface()
	}
	return res, err
}

// Infer builds a signature from fn's Go parameter types. Parameters of type
// any are left unchecked; a variadic Go parameter becomes the variadic
// catch-all. names gives the parameter names; when empty they default to
// arg0, arg1 and so on. The signature is named after the function.
func Infer(fn any, reg *expect.Registry, names ...string) (*validation.Signature, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return nil, &expect.ConfigError{Reason: fmt.Sprintf("cannot infer a signature for %T: not a function", fn)}
	}

	ft := rv.Type()
	name := funcName(rv)
	if len(names) == 0 {
		names = make([]string, ft.NumIn())
		for i := range names {
			names[i] = fmt.Sprintf("arg%d", i)
		}
	}
	if len(names) != ft.NumIn() {
		return nil, &expect.ConfigError{
			Subject: name,
			Reason:  fmt.Sprintf("%d parameter names given for %d parameters", len(names), ft.NumIn()),
		}
	}

	fixed := ft.NumIn()
	if ft.IsVariadic() {
		fixed--
	}

	params := make([]validation.Param, 0, fixed)
	for i := 0; i < fixed; i++ {
		p, err := inferParam(reg, name, names[i], ft.In(i))
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}

	var opts []validation.SignatureOption
	if ft.IsVariadic() {
		p, err := inferParam(reg, name, names[fixed], ft.In(fixed).Elem())
		if err != nil {
			return nil, err
		}
		opts = append(opts, validation.Variadic(p))
	}

	return validation.NewSignature(name, params, opts...)
}

func inferParam(reg *expect.Registry, fn, name string, t reflect.Type) (validation.Param, error) {
	if t == anyType {
		return validation.Param{Name: name}, nil
	}
	exp, err := reg.FromType(t)
	if err != nil {
		return validation.Param{}, fmt.Errorf("%s: parameter %q: %w", fn, name, err)
	}
	return validation.Param{Name: name, Expect: exp}, nil
}

// funcName returns the unqualified name of the function behind rv.
func funcName(rv reflect.Value) string {
	f := goruntime.FuncForPC(rv.Pointer())
	if f == nil {
		return "func"
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
