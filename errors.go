package deft

import "github.com/cgay/deft/internal/deferr"

// ErrorKind classifies an error Update can return.
type ErrorKind = deferr.Kind

// The error kinds Update's callers may need to distinguish, re-exported
// from internal/deferr for a stable public surface.
const (
	PackageError   = deferr.PackageError
	DepError       = deferr.DepError
	DepConflict    = deferr.DepConflict
	InstallError   = deferr.InstallError
	WorkspaceError = deferr.WorkspaceError
)

// KindOf extracts the ErrorKind from err, if err is or wraps one of the
// typed errors Update's components produce.
func KindOf(err error) (ErrorKind, bool) {
	return deferr.KindOf(err)
}
