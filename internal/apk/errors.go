package apk

import (
	"errors"
	"fmt"
)

var (
	// ErrAssembly is the kind for package assembly failures, including
	// refusing to assemble an architecture-incomplete package.
	ErrAssembly = errors.New("package assembly failed")

	// ErrSigning is the kind for signing failures. Signing is terminal:
	// there is no retry.
	ErrSigning = errors.New("package signing failed")
)

// AssemblyError reports why an APK could not be assembled.
type AssemblyError struct {
	Artifact string
	Msg      string
}

func (e *AssemblyError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: artifact %q: %s", ErrAssembly.Error(), e.Artifact, e.Msg)
}

func (e *AssemblyError) Unwrap() error { return ErrAssembly }

func assemblyErrorf(artifact, format string, args ...any) error {
	return &AssemblyError{Artifact: artifact, Msg: fmt.Sprintf(format, args...)}
}

// SigningError reports a failed signing-tool invocation.
type SigningError struct {
	APK string
	Msg string
}

func (e *SigningError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s: %s", ErrSigning.Error(), e.APK, e.Msg)
}

func (e *SigningError) Unwrap() error { return ErrSigning }
