package manifest

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidManifest is the kind shared by manifest validation failures.
var ErrInvalidManifest = errors.New("invalid manifest")

// ValidationError reports a configuration value the OS loader would reject,
// caught before any external process is invoked.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", ErrInvalidManifest.Error(), e.Msg)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidManifest }

// Package identifiers are reverse-domain names: at least two dot-separated
// segments, each starting with a letter, containing only letters, digits
// and underscores.
var packageNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z][A-Za-z0-9_]*)+$`)

// ValidatePackageName checks that name is a syntactically valid package
// identifier.
func ValidatePackageName(name string) error {
	if name == "" {
		return &ValidationError{Msg: "package identifier is empty"}
	}
	if !packageNameRe.MatchString(name) {
		return &ValidationError{Msg: fmt.Sprintf("package identifier %q is not a valid reverse-domain name", name)}
	}
	return nil
}

func boolAttr(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
