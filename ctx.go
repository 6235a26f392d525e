// Package deft orchestrates the workspace, resolver, store, and registry
// packages into the single user-visible operation, Update: a small
// struct carrying run-wide settings, with one method that loads a
// workspace and drives it through to a buildable state.
package deft

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/cgay/deft/internal/catalog"
	"github.com/cgay/deft/internal/deferr"
	"github.com/cgay/deft/internal/registry"
	"github.com/cgay/deft/internal/resolve"
	"github.com/cgay/deft/internal/store"
	"github.com/cgay/deft/internal/workspace"
)

// Ctx carries settings that apply across an Update run.
type Ctx struct {
	// Global selects the per-user packages root instead of the
	// workspace-local one.
	Global bool
	// Platform is the "current platform" tag used to report libraries
	// missing registry coverage.
	Platform string
	// TraceLogger, if non-nil, receives the resolver's progress trace.
	TraceLogger *log.Logger
}

// Result is everything Update produced: the resolved release set, the
// registry report, and every non-fatal warning collected along the way.
type Result struct {
	Workspace *workspace.Workspace
	Solution  resolve.Solution
	// Installed lists every non-active resolved release the store
	// ensured present this run -- whether that meant a fresh fetch or
	// finding it already installed (store.Install's idempotence), not
	// only the ones newly fetched.
	Installed []catalog.Release
	Registry  *registry.Report
	Warnings  []string
}

// Update brings the workspace containing startDir into a buildable
// state: resolve the dependency graph against cat, install any missing
// release into the store, and regenerate the registry. Phase order is
// strict -- resolve, then install-all, then write-registry -- so a
// caller never observes a registry entry for a release that failed to
// install.
func (c *Ctx) Update(startDir string, cat catalog.Catalog) (*Result, error) {
	ws, err := workspace.Discover(startDir)
	if err != nil {
		return nil, err
	}

	packagesRoot := ws.PackagesDir()
	if c.Global {
		globalRoot, err := globalPackagesRoot()
		if err != nil {
			return nil, err
		}
		packagesRoot = globalRoot
	}

	lock := store.NewWorkspaceLock(packagesRoot)
	if err := lock.TryLock(); err != nil {
		return nil, err
	}
	defer lock.Unlock()

	active := ws.Active()
	roots := make([]resolve.Root, 0, len(ws.Packages))
	for _, p := range ws.Packages {
		roots = append(roots, resolve.Root{
			Name:     p.Release.Name,
			ProdDeps: p.Release.ProdDeps,
			DevDeps:  p.Release.DevDeps,
		})
	}

	sol, resolveWarnings, err := resolve.Resolve(resolve.Params{
		Roots:       roots,
		Active:      active,
		Catalog:     cat,
		Trace:       c.TraceLogger != nil,
		TraceLogger: c.TraceLogger,
	})
	if err != nil {
		return nil, err
	}

	toInstall := nonActiveReleases(sol, active)
	st := store.New(packagesRoot)
	if err := store.InstallAll(st, toInstall); err != nil {
		return nil, err
	}

	sources := registrySources(ws, st, toInstall)
	platform := c.Platform
	if platform == "" {
		platform = DefaultPlatform()
	}
	regReport, err := registry.Generate(ws.RegistryDir(), sources, platform)
	if err != nil {
		return nil, err
	}

	warnings := append([]string{}, ws.Warnings...)
	for _, w := range resolveWarnings {
		warnings = append(warnings, w.Message)
	}
	warnings = append(warnings, regReport.Warnings...)

	return &Result{
		Workspace: ws,
		Solution:  sol,
		Installed: toInstall,
		Registry:  regReport,
		Warnings:  warnings,
	}, nil
}

// nonActiveReleases returns the releases in sol that are not shadowed by
// an active package, sorted by name for deterministic install order.
func nonActiveReleases(sol resolve.Solution, active map[string]catalog.Release) []catalog.Release {
	out := make([]catalog.Release, 0, len(sol))
	for name, rel := range sol {
		if _, ok := active[name]; ok {
			continue
		}
		out = append(out, rel)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// registrySources builds the list of package source trees the registry
// generator should scan: every active package directory, plus the store
// directory of every installed (non-active) release.
func registrySources(ws *workspace.Workspace, st *store.Store, installed []catalog.Release) []registry.PackageSource {
	sources := make([]registry.PackageSource, 0, len(ws.Packages)+len(installed))
	for _, p := range ws.Packages {
		sources = append(sources, registry.PackageSource{Name: p.Release.Name, Dir: p.Dir})
	}
	for _, rel := range installed {
		sources = append(sources, registry.PackageSource{
			Name: rel.Name,
			Dir:  st.Dir(rel.Name, rel.Version.String()),
		})
	}
	return sources
}

// globalPackagesRoot returns the per-user fallback packages root,
// <home>/.deft/_packages.
func globalPackagesRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", deferr.Wrap(deferr.WorkspaceError, err, "locating per-user packages root")
	}
	return filepath.Join(home, ".deft", "_packages"), nil
}

// DefaultPlatform is the platform tag used when Ctx.Platform is unset:
// the running GOOS/GOARCH pair, in the same spirit as go/build.Default's
// own host-platform defaulting.
func DefaultPlatform() string {
	return fmt.Sprintf("%s-%s", runtime.GOOS, runtime.GOARCH)
}
