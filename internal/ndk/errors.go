package ndk

import (
	"errors"
	"fmt"
)

// ErrToolchainNotFound is the kind shared by all toolchain discovery
// failures.
var ErrToolchainNotFound = errors.New("toolchain not found")

// NotFoundError reports a missing cross-toolchain binary or directory. It is
// fatal for the architecture being resolved.
type NotFoundError struct {
	Tool string
	Path string
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ""
	}
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", ErrToolchainNotFound.Error(), e.Tool)
	}
	return fmt.Sprintf("%s: %s at %s", ErrToolchainNotFound.Error(), e.Tool, e.Path)
}

func (e *NotFoundError) Unwrap() error { return ErrToolchainNotFound }
