package pathcopy

import (
	"path/filepath"
	"strings"
)

// Resolve maps absPath, which must lie below sourceRoot, to the matching
// location below destRoot. The comparison is done on whole path components,
// so /a/bc is not considered to be below /a/b.
func Resolve(sourceRoot, destRoot, absPath string) (string, error) {
	root := filepath.Clean(sourceRoot)
	p := filepath.Clean(absPath)
	if p == root {
		return filepath.Clean(destRoot), nil
	}

	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if !strings.HasPrefix(p, prefix) {
		return "", &ResolutionError{SourceRoot: sourceRoot, Path: absPath}
	}
	return filepath.Join(destRoot, p[len(prefix):]), nil
}
