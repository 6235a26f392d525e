// Package registry implements deft's registry generator: it walks
// package source trees for library-definition (LID) files and writes
// one registry entry per eligible library x platform pairing.
//
// The directory walk uses github.com/karrick/godirwalk instead of
// filepath.Walk, the same tradeoff the godirwalk README and its own
// examples make for large trees. Library names are indexed in a
// github.com/armon/go-radix tree keyed by library name, wrapped so
// callers never type-assert on the underlying interface{} values.
package registry

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cgay/deft/internal/deferr"
)

// LID is a parsed library-definition file.
type LID struct {
	// Path is the file's path relative to the package root it was found
	// under (forward-slash separated, for stable comparison and display).
	Path string
	// AbsPath is the file's absolute path on disk.
	AbsPath string
	// Library is the value of the required Library key. Empty if the
	// file has no Library key (a pure inclusion fragment, or malformed).
	Library string
	// Platforms lists the declared platform tags. Empty means the LID
	// is platform-generic.
	Platforms []string
	// Includes lists the raw (unresolved) targets named by LID: header
	// lines -- other .lid files this one pulls in as fragments.
	Includes []string
	// Origin is the value of the optional Origin key, recognized but not
	// otherwise interpreted by the generator.
	Origin string
}

// parseLID reads a line-oriented "Key: value" file with indented
// continuation lines: a continuation line's tokens are appended to the
// most recently seen key's value list.
func parseLID(absPath string) (*LID, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return nil, deferr.Wrap(deferr.WorkspaceError, err, "opening LID file %s", absPath)
	}
	defer f.Close()

	lid := &LID{AbsPath: absPath}
	values := make(map[string][]string)
	var curKey string

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		if isContinuation(line) {
			if curKey == "" {
				return nil, deferr.New(deferr.WorkspaceError,
					"%s:%d: continuation line before any key", absPath, lineNo)
			}
			values[curKey] = append(values[curKey], strings.Fields(line)...)
			continue
		}

		key, rest, ok := splitHeader(line)
		if !ok {
			return nil, deferr.New(deferr.WorkspaceError, "%s:%d: malformed header %q", absPath, lineNo, line)
		}
		curKey = key
		values[key] = append(values[key], strings.Fields(rest)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, deferr.Wrap(deferr.WorkspaceError, err, "reading LID file %s", absPath)
	}

	if lib, ok := values["Library"]; ok && len(lib) > 0 {
		lid.Library = strings.Join(lib, " ")
	}
	lid.Platforms = values["Platforms"]
	lid.Includes = values["LID"]
	if origin, ok := values["Origin"]; ok {
		lid.Origin = strings.Join(origin, " ")
	}
	return lid, nil
}

// isContinuation reports whether line is a continuation of the previous
// header: it begins with a space or tab. It does not itself reject blank
// lines; parseLID skips those before calling it.
func isContinuation(line string) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}

// splitHeader splits "Key: value..." into its key and remainder.
func splitHeader(line string) (key, rest string, ok bool) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:i])
	if key == "" {
		return "", "", false
	}
	return key, line[i+1:], true
}

// scanPackage walks root for *.lid files and returns them sorted by
// relative path, for deterministic processing order.
func scanPackage(root string) ([]*LID, error) {
	var lids []*LID
	err := walkDir(root, func(path string) error {
		if !strings.HasSuffix(strings.ToLower(path), ".lid") {
			return nil
		}
		lid, err := parseLID(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return deferr.Wrap(deferr.WorkspaceError, err, "computing relative path for %s", path)
		}
		lid.Path = filepath.ToSlash(rel)
		lids = append(lids, lid)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(lids, func(i, j int) bool { return lids[i].Path < lids[j].Path })
	return lids, nil
}

// eligible returns the subset of a package's LIDs that produce registry
// entries, leaving out the ones that another LID in the same package
// names via an LID: include directive.
func eligible(lids []*LID) []*LID {
	included := make(map[string]bool)
	byPath := make(map[string]*LID, len(lids))
	for _, l := range lids {
		byPath[l.Path] = l
	}
	for _, l := range lids {
		dir := filepath.Dir(l.Path)
		for _, inc := range l.Includes {
			target := inc
			if dir != "." {
				target = filepath.ToSlash(filepath.Join(dir, inc))
			}
			included[target] = true
		}
	}

	var out []*LID
	for _, l := range lids {
		if included[l.Path] {
			continue
		}
		out = append(out, l)
	}
	return out
}
