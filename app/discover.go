package app

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"cutvalid/internal/errors"
)

// DiscoverFiles expands each root with the glob pattern. A root that is a regular
// file is taken as is. The result is sorted and free of duplicates.
func DiscoverFiles(roots []string, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, errors.ConfigInvalid("invalid file pattern: " + pattern)
	}

	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, errors.Wrapf(err, "input %s", root)
		}
		if !info.IsDir() {
			add(filepath.Clean(root))
			continue
		}

		matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Wrapf(err, "failed to search %s", root)
		}
		for _, m := range matches {
			add(filepath.Join(root, filepath.FromSlash(m)))
		}
	}

	sort.Strings(files)
	return files, nil
}
