package expect

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrConfiguration marks a malformed declaration.
	ErrConfiguration = errors.New("invalid type declaration")

	// ErrTypeMismatch marks a value that does not conform and could not be coerced.
	ErrTypeMismatch = errors.New("type mismatch")
)

// ConfigError reports a declaration that cannot be used for checking.
// It indicates a programming mistake and is raised before any call is made.
type ConfigError struct {
	Subject string `json:"subject"`
	Reason  string `json:"reason"`
}

func (e *ConfigError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("invalid type declaration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid type declaration %q: %s", e.Subject, e.Reason)
}

// Is matches ErrConfiguration.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErrorf(subject, format string, args ...any) *ConfigError {
	return &ConfigError{Subject: subject, Reason: fmt.Sprintf(format, args...)}
}

// MismatchError reports a value that does not satisfy an expectation.
type MismatchError struct {
	// Param is the parameter name, filled in by the validator.
	Param string `json:"param,omitempty"`

	// Path locates the offending element inside a compound value:
	// "[1]" for an element, `{"a"}` for a mapping key, `["a"]` for the
	// value stored under that key. Empty for the top-level value.
	Path string `json:"path,omitempty"`

	// Expected describes the expected shape, e.g. "sequence of int".
	Expected string `json:"expected"`

	// ActualType is the Go type name of the offending value.
	ActualType string `json:"actual_type"`

	// Value is a short representation of the offending value.
	Value string `json:"value"`

	// Reason adds detail that the type names alone do not carry,
	// such as a length mismatch.
	Reason string `json:"reason,omitempty"`
}

func (e *MismatchError) Error() string {
	var b strings.Builder
	if e.Param != "" {
		fmt.Fprintf(&b, "argument %q: ", e.Param)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, "element %s ", e.Path)
	}
	fmt.Fprintf(&b, "%s is of type %s, expecting %s", e.Value, e.ActualType, e.Expected)
	if e.Reason != "" {
		fmt.Fprintf(&b, " (%s)", e.Reason)
	}
	return b.String()
}

// Is matches ErrTypeMismatch.
func (e *MismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// Mismatch builds a MismatchError for value against e.
func Mismatch(e *Expectation, value any) *MismatchError {
	return &MismatchError{
		Expected:   e.String(),
		ActualType: TypeName(value),
		Value:      Repr(value),
	}
}

// WithPath returns a copy of the error with step prepended to its path.
func (e *MismatchError) WithPath(step string) *MismatchError {
	out := *e
	out.Path = step + out.Path
	return &out
}

// TypeName returns the Go type name of v, or "nil".
func TypeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}

const maxReprRunes = 60

// Repr returns a short quoted-where-useful representation of v.
func Repr(v any) string {
	var s string
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		s = fmt.Sprintf("%q", x)
	case []byte:
		s = fmt.Sprintf("%q", x)
	default:
		s = fmt.Sprintf("%v", x)
	}
	if utf8.RuneCountInString(s) <= maxReprRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxReprRunes-3]) + "..."
}
