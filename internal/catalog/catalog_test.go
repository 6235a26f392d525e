package catalog

import (
	"testing"

	"github.com/cgay/deft/internal/semver"
)

func rel(t *testing.T, name, version string, prod, dev []string) Release {
	t.Helper()
	v, err := semver.ParseVersion(version)
	if err != nil {
		t.Fatalf("ParseVersion(%q): %v", version, err)
	}
	toDeps := func(ss []string) []semver.Dep {
		var deps []semver.Dep
		for _, s := range ss {
			d, err := semver.ParseDep(s)
			if err != nil {
				t.Fatalf("ParseDep(%q): %v", s, err)
			}
			deps = append(deps, d)
		}
		return deps
	}
	return Release{Name: name, Version: v, ProdDeps: toDeps(prod), DevDeps: toDeps(dev)}
}

func TestMemCatalogReleasesAscending(t *testing.T) {
	c := NewMemCatalog([]Release{
		rel(t, "d", "1.5.0", nil, nil),
		rel(t, "d", "1.3.0", nil, nil),
		rel(t, "d", "1.4.0", nil, nil),
	})

	rs, err := c.Releases("d")
	if err != nil {
		t.Fatalf("Releases: %v", err)
	}
	want := []string{"1.3.0", "1.4.0", "1.5.0"}
	for i, r := range rs {
		if r.Version.String() != want[i] {
			t.Errorf("rs[%d] = %s, want %s", i, r.Version, want[i])
		}
	}
}

func TestValidateCatchesMissingPackage(t *testing.T) {
	c := NewMemCatalog([]Release{
		rel(t, "a", "1.0.0", []string{"missing@1.0"}, nil),
	})
	if err := c.Validate(); err == nil {
		t.Fatalf("Validate() succeeded, want error for missing dependency package")
	}
}

func TestValidateCatchesUnsatisfiableMinimum(t *testing.T) {
	c := NewMemCatalog([]Release{
		rel(t, "a", "1.0.0", []string{"b@2.0"}, nil),
		rel(t, "b", "1.0.0", nil, nil),
	})
	if err := c.Validate(); err == nil {
		t.Fatalf("Validate() succeeded, want error for unsatisfiable minimum")
	}
}

func TestValidatePassesSatisfiableCatalog(t *testing.T) {
	c := NewMemCatalog([]Release{
		rel(t, "a", "1.20.0", []string{"b@1.3", "c@1.8"}, nil),
		rel(t, "b", "1.3.0", []string{"d@1.3"}, nil),
		rel(t, "c", "1.8.0", []string{"d@1.4"}, nil),
		rel(t, "d", "1.3.0", nil, nil),
		rel(t, "d", "1.4.0", nil, nil),
	})
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateIgnoresDevDeps(t *testing.T) {
	// A dev-dep on a nonexistent package must not fail catalog validation.
	c := NewMemCatalog([]Release{
		rel(t, "a", "1.0.0", nil, []string{"ghost@1.0"}),
	})
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil (dev-deps are exempt)", err)
	}
}
