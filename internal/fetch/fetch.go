// Package fetch populates a target directory from a release's
// source-descriptor: either a version-control checkout or an archive
// extraction.
//
// The VCS path wraps github.com/Masterminds/vcs, restricted to git since
// that is the only VCS exercised beyond test fixtures; hg/svn/bzr are
// named in Masterminds/vcs but left unwired (see DESIGN.md).
package fetch

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/vcs"
	"github.com/cgay/deft/internal/catalog"
	"github.com/cgay/deft/internal/deferr"
)

// Fetch populates dir with src's source tree. dir must be absent or an
// empty directory; on any failure dir is left absent or empty.
func Fetch(src catalog.Source, dir string) error {
	var err error
	switch src.Kind {
	case "vcs", "":
		err = fetchVCS(src, dir)
	case "archive":
		err = fetchArchive(src, dir)
	default:
		return deferr.New(deferr.InstallError, "unknown source kind %q", src.Kind)
	}
	if err != nil {
		os.RemoveAll(dir)
	}
	return err
}

func fetchVCS(src catalog.Source, dir string) error {
	repo, err := vcs.NewGitRepo(src.URL, dir)
	if err != nil {
		return deferr.Wrap(deferr.InstallError, err, "initializing git repo for %s", src.URL)
	}
	if err := repo.Get(); err != nil {
		return deferr.Wrap(deferr.InstallError, err, "cloning %s", src.URL)
	}
	if src.Ref != "" {
		if err := repo.UpdateVersion(src.Ref); err != nil {
			return deferr.Wrap(deferr.InstallError, err, "checking out %s@%s", src.URL, src.Ref)
		}
	}
	return nil
}

// fetchArchive extracts a zip or gzipped tar archive named by src.URL into
// dir. The archive format is inferred from the URL's extension, mirroring
// how package managers in this corpus key off a filename suffix rather
// than sniffing content.
func fetchArchive(src catalog.Source, dir string) error {
	f, err := os.Open(src.URL)
	if err != nil {
		return deferr.Wrap(deferr.InstallError, err, "opening archive %s", src.URL)
	}
	defer f.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return deferr.Wrap(deferr.InstallError, err, "creating extraction directory %s", dir)
	}

	lower := strings.ToLower(src.URL)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return extractZip(src.URL, dir)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return extractTarGz(f, dir)
	default:
		return deferr.New(deferr.InstallError, "unrecognized archive extension for %s", src.URL)
	}
}

func extractZip(path, dir string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return deferr.Wrap(deferr.InstallError, err, "opening zip %s", path)
	}
	defer r.Close()

	for _, f := range r.File {
		dest := filepath.Join(dir, f.Name)
		if !strings.HasPrefix(dest, filepath.Clean(dir)+string(os.PathSeparator)) && dest != filepath.Clean(dir) {
			return deferr.New(deferr.InstallError, "zip entry %q escapes extraction directory", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return deferr.Wrap(deferr.InstallError, err, "creating directory %s", dest)
			}
			continue
		}
		if err := extractZipFile(f, dest); err != nil {
			return err
		}
	}
	return nil
}

func extractZipFile(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return deferr.Wrap(deferr.InstallError, err, "creating directory %s", filepath.Dir(dest))
	}
	rc, err := f.Open()
	if err != nil {
		return deferr.Wrap(deferr.InstallError, err, "opening zip entry %s", f.Name)
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode())
	if err != nil {
		return deferr.Wrap(deferr.InstallError, err, "creating %s", dest)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return deferr.Wrap(deferr.InstallError, err, "writing %s", dest)
	}
	return nil
}

func extractTarGz(r io.Reader, dir string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return deferr.Wrap(deferr.InstallError, err, "opening gzip stream")
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return deferr.Wrap(deferr.InstallError, err, "reading tar entry")
		}

		dest := filepath.Join(dir, hdr.Name)
		if !strings.HasPrefix(dest, filepath.Clean(dir)+string(os.PathSeparator)) && dest != filepath.Clean(dir) {
			return deferr.New(deferr.InstallError, "tar entry %q escapes extraction directory", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return deferr.Wrap(deferr.InstallError, err, "creating directory %s", dest)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return deferr.Wrap(deferr.InstallError, err, "creating directory %s", filepath.Dir(dest))
			}
			out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return deferr.Wrap(deferr.InstallError, err, "creating %s", dest)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return deferr.Wrap(deferr.InstallError, err, "writing %s", dest)
			}
			out.Close()
		}
	}
}
