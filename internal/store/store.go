// Package store implements the content-addressed release store under
// ${root}/_packages: a cache-dir-plus-temp-dir install pattern with
// rename as the single commit point.
package store

import (
	"os"
	"path/filepath"

	"github.com/cgay/deft/internal/catalog"
	"github.com/cgay/deft/internal/deferr"
	"github.com/cgay/deft/internal/fetch"
	"github.com/gofrs/flock"
)

// Store installs releases under a fixed packages root.
type Store struct {
	Root string // e.g. ${workspace}/_packages
}

// New returns a Store rooted at root. root need not exist yet.
func New(root string) *Store {
	return &Store{Root: root}
}

// Dir returns the install directory for a release: <root>/<name>/<version>/src.
func (s *Store) Dir(name, version string) string {
	return filepath.Join(s.Root, name, version, "src")
}

// Installed reports whether release is already installed: its directory
// exists and is non-empty.
func (s *Store) Installed(rel catalog.Release) bool {
	return dirNonEmpty(s.Dir(rel.Name, rel.Version.String()))
}

func dirNonEmpty(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	return len(entries) > 0
}

// Install ensures rel is present in the store, fetching it if necessary.
// It is idempotent and safe to call concurrently for the same or
// different releases: correctness relies solely on os.Rename being the
// single commit point, never on a lock held across the fetch.
func (s *Store) Install(rel catalog.Release) error {
	target := s.Dir(rel.Name, rel.Version.String())
	if dirNonEmpty(target) {
		return nil
	}

	parent := filepath.Join(s.Root, rel.Name, rel.Version.String())
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return deferr.Wrap(deferr.InstallError, err, "creating %s", parent)
	}

	tmp, err := os.MkdirTemp(parent, "tmp-src-")
	if err != nil {
		return deferr.Wrap(deferr.InstallError, err, "creating temp directory under %s", parent)
	}

	if err := fetch.Fetch(rel.Source, tmp); err != nil {
		os.RemoveAll(tmp)
		return deferr.Wrap(deferr.InstallError, err, "fetching %s", rel.ID())
	}

	if err := os.Rename(tmp, target); err != nil {
		// Another caller may have won the race and already created
		// target; that is success, not failure.
		os.RemoveAll(tmp)
		if dirNonEmpty(target) {
			return nil
		}
		return deferr.Wrap(deferr.InstallError, err, "renaming %s into place", target)
	}

	return nil
}

// InstallAll installs every release in releases, stopping at the first
// failure: an install error for an individual release aborts the run.
func InstallAll(s *Store, releases []catalog.Release) error {
	for _, rel := range releases {
		if err := s.Install(rel); err != nil {
			return err
		}
	}
	return nil
}

// WorkspaceLock is the advisory lock guarding concurrent Update calls on
// the same workspace -- concurrent updates on the same workspace are
// unsupported and refused rather than raced -- backed by
// github.com/gofrs/flock.
type WorkspaceLock struct {
	fl *flock.Flock
}

// NewWorkspaceLock returns a lock rooted at <packagesRoot>/.deft-lock.
func NewWorkspaceLock(packagesRoot string) *WorkspaceLock {
	return &WorkspaceLock{fl: flock.New(filepath.Join(packagesRoot, ".deft-lock"))}
}

// TryLock attempts to acquire the workspace lock without blocking. It
// fails with a workspace-error if another Update already holds it.
func (w *WorkspaceLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(w.fl.Path()), 0o755); err != nil {
		return deferr.Wrap(deferr.WorkspaceError, err, "creating packages root for lock file")
	}
	locked, err := w.fl.TryLock()
	if err != nil {
		return deferr.Wrap(deferr.WorkspaceError, err, "acquiring workspace lock")
	}
	if !locked {
		return deferr.New(deferr.WorkspaceError, "another update is already running on this workspace")
	}
	return nil
}

// Unlock releases the workspace lock.
func (w *WorkspaceLock) Unlock() error {
	return w.fl.Unlock()
}
