package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCatalogTOML(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoadFileParsesReleasesAndSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	writeCatalogTOML(t, path, `
[[release]]
name = "b"
version = "1.3.0"
  [[release.prod-dep]]
  name = "d"
  version = "1.3"
  [release.source]
  kind = "vcs"
  url = "https://example.com/b.git"
  ref = "v1.3.0"

[[release]]
name = "d"
version = "1.3.0"
  [release.source]
  kind = "archive"
  url = "https://example.com/d-1.3.0.zip"
`)

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	rs, err := c.Releases("b")
	if err != nil {
		t.Fatalf("Releases: %v", err)
	}
	if len(rs) != 1 {
		t.Fatalf("Releases(b) = %d releases, want 1", len(rs))
	}
	b := rs[0]
	if b.Version.String() != "1.3.0" {
		t.Errorf("b.Version = %s, want 1.3.0", b.Version)
	}
	if len(b.ProdDeps) != 1 || b.ProdDeps[0].Name != "d" {
		t.Errorf("b.ProdDeps = %v, want [d@1.3]", b.ProdDeps)
	}
	if b.Source.Kind != "vcs" || b.Source.URL != "https://example.com/b.git" || b.Source.Ref != "v1.3.0" {
		t.Errorf("b.Source = %+v, want vcs source for b.git at v1.3.0", b.Source)
	}

	d, ok := c.Release("d", b.ProdDeps[0].Version)
	if !ok {
		t.Fatalf("Release(d, 1.3) not found")
	}
	if d.Source.Kind != "archive" {
		t.Errorf("d.Source.Kind = %q, want archive", d.Source.Kind)
	}

	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestLoadFileRejectsInvalidPackageName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	writeCatalogTOML(t, path, `
[[release]]
name = "1bad"
version = "1.0.0"
`)

	if _, err := LoadFile(path); err == nil {
		t.Fatalf("LoadFile() succeeded, want error for invalid package name")
	}
}

func TestLoadFileMissingFile(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("LoadFile() succeeded, want error for missing file")
	}
}
