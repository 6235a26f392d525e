// Package workspace discovers a deft workspace on disk and loads its
// active packages: an upward directory walk that recognizes a workspace
// file and a per-package manifest file.
package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cgay/deft/internal/catalog"
	"github.com/cgay/deft/internal/deferr"
	"github.com/cgay/deft/internal/semver"
	"github.com/pkg/errors"
)

// WorkspaceFile is the recognized workspace-root marker.
const WorkspaceFile = "workspace.json"

// manifestNames lists the recognized per-package manifest filenames, in
// lookup priority order. pkg.json is a legacy alias surfaced with a
// warning.
var manifestNames = []string{"dylan-package.json", "deft-package.json", "pkg.json"}

const legacyManifestName = "pkg.json"

// Manifest mirrors dylan-package.json's recognized keys. Unknown keys
// are ignored by encoding/json by default.
type Manifest struct {
	Name           string   `json:"name"`
	Version        string   `json:"version"`
	Dependencies   []string `json:"dependencies"`
	DevDependencies []string `json:"dev-dependencies"`
	URL            string   `json:"url"`
	Branch         string   `json:"branch"`
}

// WorkspaceManifest mirrors workspace.json's recognized keys.
type WorkspaceManifest struct {
	DefaultLibrary string `json:"default-library"`
}

// Package is one active package: a Release parsed from a local manifest,
// plus the directory it lives in.
type Package struct {
	Release catalog.Release
	Dir     string
	// LegacyName is true if this package's manifest was found under the
	// legacy pkg.json name.
	LegacyName bool
}

// Workspace is a discovered, loaded workspace.
type Workspace struct {
	Root           string
	DefaultLibrary string
	// Multi reports whether this is a multi-package workspace (active
	// packages live in subdirectories rather than at the root).
	Multi    bool
	Packages []Package
	// Warnings accumulates non-fatal conditions: a legacy pkg.json name,
	// or subdirectory manifests ignored because a root manifest also
	// exists.
	Warnings []string
}

// RegistryDir is ${workspace}/registry/.
func (w *Workspace) RegistryDir() string {
	return filepath.Join(w.Root, "registry")
}

// PackagesDir is ${workspace}/_packages/, the default store root.
func (w *Workspace) PackagesDir() string {
	return filepath.Join(w.Root, "_packages")
}

// ActivePackageDir returns the directory of the active package named
// name, if any.
func (w *Workspace) ActivePackageDir(name string) (string, bool) {
	for _, p := range w.Packages {
		if p.Release.Name == name {
			return p.Dir, true
		}
	}
	return "", false
}

// Active returns the active-package shadow map the resolver consults.
func (w *Workspace) Active() map[string]catalog.Release {
	m := make(map[string]catalog.Release, len(w.Packages))
	for _, p := range w.Packages {
		m[p.Release.Name] = p.Release
	}
	return m
}

// findManifest looks for a recognized manifest file directly in dir,
// returning its path and whether it used the legacy name.
func findManifest(dir string) (path string, legacy bool, ok bool) {
	for _, name := range manifestNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, name == legacyManifestName, true
		}
	}
	return "", false, false
}

// findWorkspaceRoot walks from startDir toward the filesystem root twice:
// the nearest ancestor containing WorkspaceFile wins outright, even if a
// closer ancestor merely has a manifest; only when no ancestor has a
// WorkspaceFile do we fall back to the nearest ancestor with a
// recognized manifest. A single combined pass would let a nearby
// manifest shadow a workspace.json higher up the tree, which is exactly
// the case this two-phase search exists to avoid.
func findWorkspaceRoot(startDir string) (root string, sawWorkspaceFile bool, err error) {
	from, absErr := filepath.Abs(startDir)
	if absErr != nil {
		return "", false, errors.Wrap(absErr, "resolving workspace search start directory")
	}

	if dir, ok := climbFor(from, func(d string) bool {
		_, statErr := os.Stat(filepath.Join(d, WorkspaceFile))
		return statErr == nil
	}); ok {
		return dir, true, nil
	}

	if dir, ok := climbFor(from, func(d string) bool {
		_, _, found := findManifest(d)
		return found
	}); ok {
		return dir, false, nil
	}

	return "", false, deferr.New(deferr.WorkspaceError,
		"no %s or manifest file found in %q or any parent directory", WorkspaceFile, startDir)
}

// climbFor walks from dir toward the filesystem root, returning the
// first directory for which match is true.
func climbFor(dir string, match func(string) bool) (string, bool) {
	for {
		if match(dir) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Discover locates and loads the workspace containing startDir.
func Discover(startDir string) (*Workspace, error) {
	root, _, err := findWorkspaceRoot(startDir)
	if err != nil {
		return nil, err
	}

	w := &Workspace{Root: root}

	wsPath := filepath.Join(root, WorkspaceFile)
	if data, err := os.ReadFile(wsPath); err == nil {
		var wm WorkspaceManifest
		if err := json.Unmarshal(data, &wm); err != nil {
			return nil, deferr.Wrap(deferr.WorkspaceError, err, "parsing %s", wsPath)
		}
		w.DefaultLibrary = wm.DefaultLibrary
	} else if !os.IsNotExist(err) {
		return nil, deferr.Wrap(deferr.WorkspaceError, err, "reading %s", wsPath)
	}

	rootManifestPath, rootLegacy, rootHasManifest := findManifest(root)

	if rootHasManifest {
		pkg, err := loadPackage(root, rootManifestPath, rootLegacy)
		if err != nil {
			return nil, err
		}
		w.Packages = append(w.Packages, pkg)
		if rootLegacy {
			w.Warnings = append(w.Warnings, fmt.Sprintf("%s: legacy manifest name %q, prefer dylan-package.json", root, legacyManifestName))
		}

		if subdirsHaveManifests(root) {
			w.Warnings = append(w.Warnings, fmt.Sprintf("%s: subdirectory manifests ignored because a root manifest exists", root))
		}
		return w, nil
	}

	w.Multi = true
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, deferr.Wrap(deferr.WorkspaceError, err, "listing workspace root %s", root)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		mpath, legacy, ok := findManifest(dir)
		if !ok {
			continue
		}
		pkg, err := loadPackage(dir, mpath, legacy)
		if err != nil {
			return nil, err
		}
		w.Packages = append(w.Packages, pkg)
		if legacy {
			w.Warnings = append(w.Warnings, fmt.Sprintf("%s: legacy manifest name %q, prefer dylan-package.json", dir, legacyManifestName))
		}
	}

	if len(w.Packages) == 0 {
		return nil, deferr.New(deferr.WorkspaceError, "workspace at %s has no active packages", root)
	}

	return w, nil
}

func subdirsHaveManifests(root string) bool {
	entries, err := os.ReadDir(root)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, _, ok := findManifest(filepath.Join(root, e.Name())); ok {
			return true
		}
	}
	return false
}

func loadPackage(dir, manifestPath string, legacy bool) (Package, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return Package{}, deferr.Wrap(deferr.WorkspaceError, err, "reading manifest %s", manifestPath)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Package{}, deferr.Wrap(deferr.WorkspaceError, err, "parsing manifest %s", manifestPath)
	}

	if !semver.ValidName(m.Name) {
		return Package{}, deferr.New(deferr.PackageError, "manifest %s: invalid package name %q", manifestPath, m.Name)
	}
	version, err := semver.ParseVersion(m.Version)
	if err != nil {
		return Package{}, deferr.Wrap(deferr.PackageError, err, "manifest %s: parsing version", manifestPath)
	}

	prod, err := parseDeps(manifestPath, m.Dependencies)
	if err != nil {
		return Package{}, err
	}
	dev, err := parseDeps(manifestPath, m.DevDependencies)
	if err != nil {
		return Package{}, err
	}

	rel := catalog.Release{
		Name:     m.Name,
		Version:  version,
		ProdDeps: prod,
		DevDeps:  dev,
		Source: catalog.Source{
			Kind: "vcs",
			URL:  m.URL,
			Ref:  m.Branch,
		},
	}
	return Package{Release: rel, Dir: dir, LegacyName: legacy}, nil
}

func parseDeps(manifestPath string, raw []string) ([]semver.Dep, error) {
	deps := make([]semver.Dep, 0, len(raw))
	for _, s := range raw {
		d, err := semver.ParseDep(s)
		if err != nil {
			return nil, deferr.Wrap(deferr.PackageError, err, "manifest %s: parsing dep %q", manifestPath, s)
		}
		deps = append(deps, d)
	}
	return deps, nil
}
