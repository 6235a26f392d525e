package semver

import (
	"fmt"
	"regexp"

	"github.com/pkg/errors"
)

// namePattern matches the package-name grammar: a letter, then letters,
// digits, '.', '_', or '-'.
var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9._-]*$`)

// ValidName reports whether name is a legal package name.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Dep is a (package-name, minimum-version) pair. A Dep with a zero Version
// is unconstrained -- it names a package with no minimum, the "p" (no "@")
// form of the dep-string grammar.
type Dep struct {
	Name    string
	Version Version
}

// ParseDep parses the "name" | "name@version" grammar. An empty name, an
// invalid name, or an empty version after "@" is an error.
func ParseDep(s string) (Dep, error) {
	name := s
	var verStr string
	hasVer := false
	for i, r := range s {
		if r == '@' {
			name, verStr = s[:i], s[i+1:]
			hasVer = true
			break
		}
	}

	if !ValidName(name) {
		return Dep{}, errors.Errorf("package-error: invalid package name %q", name)
	}

	if !hasVer {
		return Dep{Name: name}, nil
	}
	if verStr == "" {
		return Dep{}, errors.Errorf("package-error: empty version in dep string %q", s)
	}

	v, err := ParseVersion(verStr)
	if err != nil {
		return Dep{}, errors.Wrapf(err, "package-error: parsing version in dep string %q", s)
	}
	return Dep{Name: name, Version: v}, nil
}

// String renders the canonical form of d: "name" if unconstrained,
// otherwise "name@version".
func (d Dep) String() string {
	if d.Version.Zero() {
		return d.Name
	}
	return fmt.Sprintf("%s@%s", d.Name, d.Version)
}

// Equal reports whether two Deps name the same package at the same
// version (or are both unconstrained for that package).
func (d Dep) Equal(o Dep) bool {
	if d.Name != o.Name {
		return false
	}
	if d.Version.Zero() != o.Version.Zero() {
		return false
	}
	if d.Version.Zero() {
		return true
	}
	return d.Version.Equal(o.Version)
}
