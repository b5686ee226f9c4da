package config

import (
	"errors"
	"fmt"
)

// ErrConfig is the kind shared by all configuration failures.
var ErrConfig = errors.New("invalid configuration")

// Error reports malformed or unresolvable configuration. Resolution is
// all-or-nothing: no partially resolved configuration is ever returned
// alongside an Error.
type Error struct {
	Msg string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", ErrConfig.Error(), e.Msg)
}

func (e *Error) Unwrap() error { return ErrConfig }

func errorf(format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}
