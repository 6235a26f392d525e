package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/armon/go-radix"
	"github.com/cgay/deft/internal/deferr"
)

// genericPlatform is the literal platform directory used for LIDs with no
// Platforms header.
const genericPlatform = "generic"

// PackageSource names one source tree the generator should scan: either
// an active package's directory or an installed release's store
// directory.
type PackageSource struct {
	// Name is the package name, used only for diagnostics.
	Name string
	// Dir is the package's source root.
	Dir string
}

// Report summarizes one Generate run for end-of-run reporting.
type Report struct {
	// Written is the number of registry files actually created or
	// changed.
	Written int
	// MissingForPlatform lists library names that have at least one
	// eligible LID but none covering the requested platform (and none
	// that are platform-generic).
	MissingForPlatform []string
	// Warnings accumulates non-fatal conditions: Library-less eligible
	// LIDs, and duplicate (library, platform) definitions across package
	// sources. A LID that fails to parse is an error, not a warning.
	Warnings []string
}

// libraryInfo tracks, per library name, every platform it has an
// eligible LID for and the LID that defines each (library, platform)
// pairing -- the payload stored in the go-radix index.
type libraryInfo struct {
	name      string
	platforms map[string]*LID // platform -> defining LID
}

// libraryIndex is a typed wrapper over armon/go-radix: it exists so
// callers never type assert on the underlying interface{} values.
type libraryIndex struct {
	t *radix.Tree
}

func newLibraryIndex() libraryIndex {
	return libraryIndex{t: radix.New()}
}

func (idx libraryIndex) get(name string) (*libraryInfo, bool) {
	if v, ok := idx.t.Get(name); ok {
		return v.(*libraryInfo), true
	}
	return nil, false
}

func (idx libraryIndex) getOrCreate(name string) *libraryInfo {
	if info, ok := idx.get(name); ok {
		return info
	}
	info := &libraryInfo{name: name, platforms: make(map[string]*LID)}
	idx.t.Insert(name, info)
	return info
}

func (idx libraryIndex) names() []string {
	var out []string
	idx.t.Walk(func(s string, _ interface{}) bool {
		out = append(out, s)
		return false
	})
	return out
}

// Generate scans every source in sources for *.lid files, writes one
// registry entry per eligible (library, platform) pairing under
// registryDir, and reports which libraries lack coverage for platform.
//
// Write discipline: an entry's contents are computed and compared against
// the file already on disk; it is rewritten only on difference. There is
// no delete phase -- obsolete entries from a prior run are left in
// place, a documented limitation.
func Generate(registryDir string, sources []PackageSource, platform string) (*Report, error) {
	report := &Report{}
	idx := newLibraryIndex()

	for _, src := range sources {
		lids, err := scanPackage(src.Dir)
		if err != nil {
			return nil, deferr.Wrap(deferr.WorkspaceError, err, "scanning %s for LID files", src.Name)
		}

		for _, lid := range eligible(lids) {
			if lid.Library == "" {
				report.Warnings = append(report.Warnings, fmt.Sprintf(
					"%s: %s: eligible LID has no Library key, skipped", src.Name, lid.Path))
				continue
			}

			info := idx.getOrCreate(lid.Library)
			plats := lid.Platforms
			if len(plats) == 0 {
				plats = []string{genericPlatform}
			}
			for _, p := range plats {
				if existing, ok := info.platforms[p]; ok && existing.AbsPath != lid.AbsPath {
					report.Warnings = append(report.Warnings, fmt.Sprintf(
						"library %q: duplicate definition for platform %q (%s and %s)",
						lid.Library, p, existing.Path, lid.Path))
					continue
				}
				info.platforms[p] = lid
			}
		}
	}

	names := idx.names()
	sort.Strings(names)

	for _, name := range names {
		info, _ := idx.get(name)
		for p, lid := range info.platforms {
			wrote, err := writeEntry(registryDir, p, name, lid)
			if err != nil {
				return nil, err
			}
			if wrote {
				report.Written++
			}
		}

		if _, ok := info.platforms[platform]; !ok {
			if _, ok := info.platforms[genericPlatform]; !ok {
				report.MissingForPlatform = append(report.MissingForPlatform, name)
			}
		}
	}

	return report, nil
}

// entryContents renders the registry file body: a single
// "abstract://<relative-path>" line pointing at the LID.
func entryContents(lid *LID) []byte {
	return []byte(fmt.Sprintf("abstract://%s\n", lid.Path))
}

// writeEntry writes the registry file for (platform, library) if its
// contents differ from what is already on disk, reporting whether a
// write occurred.
func writeEntry(registryDir, platform, library string, lid *LID) (bool, error) {
	dir := filepath.Join(registryDir, platform)
	path := filepath.Join(dir, library)
	desired := entryContents(lid)

	if current, err := os.ReadFile(path); err == nil {
		if string(current) == string(desired) {
			return false, nil
		}
	} else if !os.IsNotExist(err) {
		return false, deferr.Wrap(deferr.WorkspaceError, err, "reading existing registry entry %s", path)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, deferr.Wrap(deferr.WorkspaceError, err, "creating registry directory %s", dir)
	}
	if err := os.WriteFile(path, desired, 0o644); err != nil {
		return false, deferr.Wrap(deferr.WorkspaceError, err, "writing registry entry %s", path)
	}
	return true, nil
}
