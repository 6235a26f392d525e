package catalog

import (
	"os"

	"github.com/cgay/deft/internal/semver"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// rawCatalog mirrors catalog.toml's shape for direct unmarshaling via
// go-toml's struct-tag support: catalog.toml has no shorthand field
// forms to disambiguate, so a plain struct unmarshal is the idiomatic
// fit.
type rawCatalog struct {
	Release []rawRelease `toml:"release"`
}

type rawRelease struct {
	Name    string    `toml:"name"`
	Version string    `toml:"version"`
	ProdDep []rawDep  `toml:"prod-dep"`
	DevDep  []rawDep  `toml:"dev-dep"`
	Source  rawSource `toml:"source"`
}

type rawDep struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

type rawSource struct {
	Kind string `toml:"kind"`
	URL  string `toml:"url"`
	Ref  string `toml:"ref"`
}

// FileCatalog is a Catalog loaded once from a catalog.toml file and kept
// entirely in memory; Releases/Release never touch disk again.
type FileCatalog struct {
	byName map[string][]Release
}

// LoadFile reads and parses a catalog.toml file at path.
func LoadFile(path string) (*FileCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening catalog file %s", path)
	}
	defer f.Close()

	var raw rawCatalog
	if err := toml.NewDecoder(f).Decode(&raw); err != nil {
		return nil, errors.Wrapf(err, "parsing catalog file %s", path)
	}

	c := &FileCatalog{byName: make(map[string][]Release)}
	for _, rr := range raw.Release {
		r, err := toRelease(rr)
		if err != nil {
			return nil, errors.Wrapf(err, "package-error: in catalog file %s", path)
		}
		c.byName[r.Name] = append(c.byName[r.Name], r)
	}
	for name := range c.byName {
		sortReleases(c.byName[name])
	}
	return c, nil
}

func toRelease(rr rawRelease) (Release, error) {
	if !semver.ValidName(rr.Name) {
		return Release{}, errors.Errorf("invalid package name %q", rr.Name)
	}
	v, err := semver.ParseVersion(rr.Version)
	if err != nil {
		return Release{}, errors.Wrapf(err, "parsing version of %s", rr.Name)
	}

	toDeps := func(raw []rawDep) ([]semver.Dep, error) {
		deps := make([]semver.Dep, 0, len(raw))
		for _, d := range raw {
			s := d.Name
			if d.Version != "" {
				s += "@" + d.Version
			}
			dep, err := semver.ParseDep(s)
			if err != nil {
				return nil, err
			}
			deps = append(deps, dep)
		}
		return deps, nil
	}

	prod, err := toDeps(rr.ProdDep)
	if err != nil {
		return Release{}, errors.Wrapf(err, "parsing prod-deps of %s", rr.Name)
	}
	dev, err := toDeps(rr.DevDep)
	if err != nil {
		return Release{}, errors.Wrapf(err, "parsing dev-deps of %s", rr.Name)
	}

	return Release{
		Name:     rr.Name,
		Version:  v,
		ProdDeps: prod,
		DevDeps:  dev,
		Source: Source{
			Kind: rr.Source.Kind,
			URL:  rr.Source.URL,
			Ref:  rr.Source.Ref,
		},
	}, nil
}

func (c *FileCatalog) Releases(name string) ([]Release, error) {
	return c.byName[name], nil
}

func (c *FileCatalog) Release(name string, version semver.Version) (Release, bool) {
	for _, r := range c.byName[name] {
		if r.Version.Equal(version) {
			return r, true
		}
	}
	return Release{}, false
}

func (c *FileCatalog) Validate() error {
	return validate(func(name string) []Release { return c.byName[name] }, c.all())
}

func (c *FileCatalog) all() []Release {
	var out []Release
	for _, rs := range c.byName {
		out = append(out, rs...)
	}
	return out
}

// MemCatalog is an in-memory Catalog built directly from a slice of
// Releases, used in tests and by callers that already have releases
// (e.g. an active-package shadow map) without needing a TOML file on disk.
type MemCatalog struct {
	byName map[string][]Release
}

// NewMemCatalog builds a MemCatalog from releases, sorting each package's
// releases ascending by version as Catalog.Releases requires.
func NewMemCatalog(releases []Release) *MemCatalog {
	c := &MemCatalog{byName: make(map[string][]Release)}
	for _, r := range releases {
		c.byName[r.Name] = append(c.byName[r.Name], r)
	}
	for name := range c.byName {
		sortReleases(c.byName[name])
	}
	return c
}

func (c *MemCatalog) Releases(name string) ([]Release, error) {
	return c.byName[name], nil
}

func (c *MemCatalog) Release(name string, version semver.Version) (Release, bool) {
	for _, r := range c.byName[name] {
		if r.Version.Equal(version) {
			return r, true
		}
	}
	return Release{}, false
}

func (c *MemCatalog) Validate() error {
	return validate(func(name string) []Release { return c.byName[name] }, c.all())
}

func (c *MemCatalog) all() []Release {
	var out []Release
	for _, rs := range c.byName {
		out = append(out, rs...)
	}
	return out
}
