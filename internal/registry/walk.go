package registry

import (
	"os"
	"path/filepath"

	"github.com/cgay/deft/internal/deferr"
	"github.com/karrick/godirwalk"
)

// walkDir visits every non-directory entry under root, recursing with
// godirwalk rather than filepath.Walk. Directories named _packages or
// registry are not descended into, and a missing root visits nothing.
func walkDir(root string, visit func(path string) error) error {
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return deferr.Wrap(deferr.WorkspaceError, err, "statting %s", root)
	}

	return godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: false,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				if de.Name() == "_packages" || de.Name() == "registry" {
					return filepath.SkipDir
				}
				return nil
			}
			return visit(path)
		},
	})
}
