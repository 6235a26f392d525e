// Package deferr holds the error taxonomy shared by deft's core
// components: a small Kind enumeration plus an Error type that wraps an
// underlying cause with a kind and a human-readable message: one Kind
// per failure mode, carried by a single Go type rather than a distinct
// Go type per case.
package deferr

import "fmt"

// Kind classifies an Error.
type Kind string

const (
	// PackageError is a malformed name, version, or dep string.
	PackageError Kind = "package-error"
	// DepError is a missing catalog entry, no compatible candidate, or a
	// prod-dep cycle.
	DepError Kind = "dep-error"
	// DepConflict is incompatible majors or incompatible branch
	// identifiers required simultaneously.
	DepConflict Kind = "dep-conflict"
	// InstallError is a fetch or filesystem failure during store
	// population.
	InstallError Kind = "install-error"
	// WorkspaceError is a missing workspace, invalid manifest JSON, or a
	// structural contradiction (e.g. nested workspaces).
	WorkspaceError Kind = "workspace-error"
)

// Error is a typed, contextual error. Construct with New or Wrap; inspect
// with Kind.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an Error with no underlying cause.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error that carries cause as context.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error, and the
// ok return is false otherwise.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return "", false
}
