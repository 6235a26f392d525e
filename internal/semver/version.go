// Package semver implements deft's version algebra: a two-variant tagged
// union of semantic (major.minor.patch) versions and branch identifiers,
// plus the compatibility and selection rules the resolver needs.
//
// Numeric versions are backed by github.com/Masterminds/semver. deft
// does not need general semver range constraints -- only "minimum
// acceptable version" -- so only a thin slice of that package's surface
// (NewVersion, Compare, Major, Minor, Patch) is exercised.
package semver

import (
	"fmt"

	mmsemver "github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// Version is either a numeric (major.minor.patch) version or a branch
// identifier. The two variants are incomparable except through Compatible
// and Max, which fail explicitly rather than silently picking a winner.
type Version struct {
	branch string            // non-empty iff this is a branch version
	sv     *mmsemver.Version // non-nil iff this is a numeric version
}

// IsBranch reports whether v is a branch version.
func (v Version) IsBranch() bool {
	return v.branch != ""
}

// Branch returns the branch identifier and true, if v is a branch version.
func (v Version) Branch() (string, bool) {
	if v.branch == "" {
		return "", false
	}
	return v.branch, true
}

// Major returns the major component of a numeric version. It panics if v is
// a branch version; callers must check IsBranch first.
func (v Version) Major() int64 {
	if v.sv == nil {
		panic("semver: Major called on a branch version")
	}
	return v.sv.Major()
}

func (v Version) String() string {
	if v.IsBranch() {
		return v.branch
	}
	return fmt.Sprintf("%d.%d.%d", v.sv.Major(), v.sv.Minor(), v.sv.Patch())
}

// Zero reports whether v is the zero Version (neither variant set). A zero
// Version never compares equal or compatible to anything.
func (v Version) Zero() bool {
	return v.branch == "" && v.sv == nil
}

// Equal reports exact equality: same variant, same value.
func (v Version) Equal(o Version) bool {
	if v.Zero() || o.Zero() {
		return false
	}
	if v.IsBranch() != o.IsBranch() {
		return false
	}
	if v.IsBranch() {
		return v.branch == o.branch
	}
	return v.sv.Compare(o.sv) == 0
}

// compareMinorPatch orders two numeric versions by (minor, patch); callers must have
// already established equal majors.
func (v Version) compareMinorPatch(o Version) int {
	return v.sv.Compare(o.sv)
}

// ParseVersion parses a version string: "M", "M.N", or "M.N.P" (missing
// trailing components default to zero) is a numeric version; anything
// else that is a non-empty identifier not beginning with a digit is a
// branch version.
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return Version{}, errors.New("semver: empty version string")
	}
	if looksNumeric(s) {
		if sv, err := mmsemver.NewVersion(normalizeNumeric(s)); err == nil {
			return Version{sv: sv}, nil
		}
	}
	if s[0] >= '0' && s[0] <= '9' {
		return Version{}, errors.Errorf("semver: %q is neither a numeric version nor a branch identifier", s)
	}
	return Version{branch: s}, nil
}

// normalizeNumeric pads "M" and "M.N" forms out to "M.N.P" so that
// Masterminds/semver, which requires at least major.minor, always has
// something to parse when the input looks purely numeric.
func normalizeNumeric(s string) string {
	if !looksNumeric(s) {
		return s
	}
	dots := 0
	for _, r := range s {
		if r == '.' {
			dots++
		}
	}
	switch dots {
	case 0:
		return s + ".0.0"
	case 1:
		return s + ".0"
	default:
		return s
	}
}

func looksNumeric(s string) bool {
	dots := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.':
			dots++
		default:
			return false
		}
	}
	return dots <= 2
}

// ConflictError is returned by Max when two versions cannot be compared:
// numeric versions with differing majors, or branch versions with
// differing identifiers, or a numeric version against a branch version.
type ConflictError struct {
	A, B Version
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version-conflict: %s is incompatible with %s", e.A, e.B)
}

// Compatible reports whether a and b could both be satisfied by a single
// chosen release: both numeric with equal majors, or both branch with
// equal identifiers.
func Compatible(a, b Version) bool {
	if a.Zero() || b.Zero() {
		return false
	}
	if a.IsBranch() != b.IsBranch() {
		return false
	}
	if a.IsBranch() {
		return a.branch == b.branch
	}
	return a.sv.Major() == b.sv.Major()
}

// Max returns the greater of two compatible versions: for numeric
// versions, the one with the higher (minor, patch); for branch versions,
// either (they're required to be equal already). It returns a
// *ConflictError if a and b are not Compatible.
func Max(a, b Version) (Version, error) {
	if !Compatible(a, b) {
		return Version{}, &ConflictError{A: a, B: b}
	}
	if a.IsBranch() {
		return a, nil
	}
	if a.compareMinorPatch(b) >= 0 {
		return a, nil
	}
	return b, nil
}

// Less orders two Versions for deterministic display and catalog sorting.
// Branch versions sort after all numeric versions, then lexically among
// themselves.
func Less(a, b Version) bool {
	if a.IsBranch() != b.IsBranch() {
		return b.IsBranch()
	}
	if a.IsBranch() {
		return a.branch < b.branch
	}
	return a.sv.Compare(b.sv) < 0
}
