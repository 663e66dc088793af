package validation

import (
	"errors"
	"fmt"
)

// ErrUsage marks a call whose arguments cannot be bound to the signature.
// It is distinct from a type mismatch: the caller passed the wrong set of
// arguments, not a wrongly-typed one.
var ErrUsage = errors.New("invalid call")

// UsageError describes an argument binding failure.
type UsageError struct {
	Func   string `json:"func"`
	Param  string `json:"param,omitempty"`
	Reason string `json:"reason"`
}

func (e *UsageError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("%s(): %s", e.Func, e.Reason)
	}
	return fmt.Sprintf("%s(): argument %q: %s", e.Func, e.Param, e.Reason)
}

// Is matches ErrUsage.
func (e *UsageError) Is(target error) bool {
	return target == ErrUsage
}
