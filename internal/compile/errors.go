package compile

import (
	"errors"
	"fmt"

	"droidpack/internal/abi"
)

var (
	// ErrBuildFailed is the kind for compiler-driver invocations that
	// exited non-zero.
	ErrBuildFailed = errors.New("build failed")

	// ErrArtifactNotProduced is the kind for a zero-exit build that left no
	// shared library behind. It points at toolchain misconfiguration.
	ErrArtifactNotProduced = errors.New("artifact not produced")
)

// BuildFailure identifies which artifact and architecture failed and with
// what exit code. It aborts packaging for that artifact only.
type BuildFailure struct {
	Artifact string
	Target   abi.Target
	ExitCode int
	Stderr   string
}

func (e *BuildFailure) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: artifact %q for %s (exit code %d)",
		ErrBuildFailed.Error(), e.Artifact, e.Target, e.ExitCode)
}

func (e *BuildFailure) Unwrap() error { return ErrBuildFailed }

// ArtifactNotProducedError is the defensive check for a successful exit
// with a missing output file.
type ArtifactNotProducedError struct {
	Artifact string
	Target   abi.Target
	Path     string
}

func (e *ArtifactNotProducedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: artifact %q for %s, expected %s",
		ErrArtifactNotProduced.Error(), e.Artifact, e.Target, e.Path)
}

func (e *ArtifactNotProducedError) Unwrap() error { return ErrArtifactNotProduced }
