package store

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/cgay/deft/internal/catalog"
	"github.com/cgay/deft/internal/semver"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zw.Create: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("w.Write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zw.Close: %v", err)
	}
}

func release(t *testing.T, name, version, archivePath string) catalog.Release {
	t.Helper()
	v, err := semver.ParseVersion(version)
	if err != nil {
		t.Fatalf("ParseVersion: %v", err)
	}
	return catalog.Release{
		Name:    name,
		Version: v,
		Source:  catalog.Source{Kind: "archive", URL: archivePath},
	}
}

func writeTestZip(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	writeZip(t, path, map[string]string{"lib.dylan": "x"})
}

func TestInstallCreatesStoreEntry(t *testing.T) {
	tmp := t.TempDir()
	archive := filepath.Join(tmp, "src.zip")
	writeTestZip(t, archive)

	s := New(filepath.Join(tmp, "_packages"))
	rel := release(t, "alpha", "1.0.0", archive)

	if s.Installed(rel) {
		t.Fatalf("Installed = true before Install")
	}
	if err := s.Install(rel); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if !s.Installed(rel) {
		t.Fatalf("Installed = false after Install")
	}
	if _, err := os.Stat(filepath.Join(s.Dir("alpha", "1.0.0"), "lib.dylan")); err != nil {
		t.Errorf("expected extracted file missing: %v", err)
	}
}

func TestInstallIsIdempotent(t *testing.T) {
	tmp := t.TempDir()
	archive := filepath.Join(tmp, "src.zip")
	writeTestZip(t, archive)

	s := New(filepath.Join(tmp, "_packages"))
	rel := release(t, "alpha", "1.0.0", archive)

	if err := s.Install(rel); err != nil {
		t.Fatalf("first Install: %v", err)
	}
	// Remove the archive so a second fetch attempt would fail, proving
	// the second Install is a no-op rather than re-fetching.
	if err := os.Remove(archive); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Install(rel); err != nil {
		t.Fatalf("second Install: %v, want no-op success", err)
	}
}

func TestInstallAllStopsAtFirstError(t *testing.T) {
	tmp := t.TempDir()
	goodArchive := filepath.Join(tmp, "good.zip")
	writeTestZip(t, goodArchive)

	s := New(filepath.Join(tmp, "_packages"))
	good := release(t, "alpha", "1.0.0", goodArchive)
	bad := release(t, "beta", "1.0.0", filepath.Join(tmp, "missing.zip"))

	err := InstallAll(s, []catalog.Release{good, bad})
	if err == nil {
		t.Fatalf("InstallAll succeeded, want install-error from missing archive")
	}
	if !s.Installed(good) {
		t.Errorf("alpha should remain installed even though beta failed")
	}
}

func TestWorkspaceLockRejectsSecondHolder(t *testing.T) {
	tmp := t.TempDir()
	first := NewWorkspaceLock(tmp)
	if err := first.TryLock(); err != nil {
		t.Fatalf("first TryLock: %v", err)
	}
	defer first.Unlock()

	second := NewWorkspaceLock(tmp)
	if err := second.TryLock(); err == nil {
		t.Fatalf("second TryLock succeeded, want workspace-error while first holds the lock")
	}
}
