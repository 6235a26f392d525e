// Package catalog defines the interface the resolver consults to look up
// releases, plus a reference on-disk implementation backed by a TOML file.
//
// How a catalog stores its data is never the resolver's concern: it only
// ever calls through the Catalog interface.
package catalog

import (
	"fmt"
	"sort"

	"github.com/cgay/deft/internal/semver"
)

// Source describes where a Release's code can be acquired from.
type Source struct {
	// Kind is "vcs" or "archive".
	Kind string
	// URL is the repository or archive URL.
	URL string
	// Ref is the VCS tag/branch/commit to check out. For archive sources
	// it is unused.
	Ref string
}

// Release is an immutable (name, version) pair with its declared
// dependencies and a source descriptor.
type Release struct {
	Name     string
	Version  semver.Version
	ProdDeps []semver.Dep
	DevDeps  []semver.Dep
	Source   Source
}

// ID renders the release's (name, version) identity, e.g. "alpha@1.20.0".
func (r Release) ID() string {
	return fmt.Sprintf("%s@%s", r.Name, r.Version)
}

// Catalog maps package names to their known releases.
type Catalog interface {
	// Releases returns every known release of name, ascending by version.
	// An unknown name returns a nil slice and no error; callers that need
	// to distinguish "unknown package" from "no releases" should check
	// len(result) == 0 and consult Release for a specific version.
	Releases(name string) ([]Release, error)

	// Release looks up a single (name, version) release.
	Release(name string, version semver.Version) (Release, bool)

	// Validate checks that every prod-dep of every release names a
	// package present in the catalog with at least one release whose
	// version is >= the constraint and whose major equals the
	// constraint's major.
	Validate() error
}

// ValidationError reports a catalog invariant violation.
type ValidationError struct {
	Release Release
	Dep     semver.Dep
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("package-error: %s's dependency on %s is unsatisfiable in this catalog: %s",
		e.Release.ID(), e.Dep, e.Reason)
}

// validate is shared by Catalog implementations: it walks every release's
// prod-deps and checks them against a name->releases lookup function.
func validate(releasesByName func(name string) []Release, all []Release) error {
	for _, r := range all {
		for _, dep := range r.ProdDeps {
			candidates := releasesByName(dep.Name)
			if len(candidates) == 0 {
				return &ValidationError{Release: r, Dep: dep, Reason: "no such package in catalog"}
			}
			if dep.Version.Zero() {
				// Unconstrained deps only need the package to exist.
				continue
			}
			found := false
			for _, c := range candidates {
				if c.Version.IsBranch() != dep.Version.IsBranch() {
					continue
				}
				if c.Version.IsBranch() {
					if semver.Compatible(c.Version, dep.Version) {
						found = true
						break
					}
					continue
				}
				if c.Version.Major() == dep.Version.Major() && !semver.Less(c.Version, dep.Version) {
					found = true
					break
				}
			}
			if !found {
				return &ValidationError{Release: r, Dep: dep, Reason: "no release satisfies the minimum version within the required major"}
			}
		}
	}
	return nil
}

// sortReleases sorts releases ascending by version, per Catalog.Releases'
// documented contract.
func sortReleases(rs []Release) {
	sort.Slice(rs, func(i, j int) bool {
		return semver.Less(rs[i].Version, rs[j].Version)
	})
}
