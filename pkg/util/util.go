package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Permission constants for file and directory modes.
const (
	// PermUserWrite is the user-write permission bit (0200).
	PermUserWrite os.FileMode = 0200

	// UserWritableDirPerms represents the permissions for newly created destination directories (rwxr-xr-x).
	UserWritableDirPerms os.FileMode = 0755
	// UserWritableFilePerms represents the permissions for generated files such as configs (rw-r--r--).
	UserWritableFilePerms os.FileMode = 0644
)

// WithUserWritePermission ensures that a file permission has the owner-write
// bit (0200) set, so a copied read-only file can be overwritten on the next run.
func WithUserWritePermission(basePerm os.FileMode) os.FileMode {
	return basePerm | PermUserWrite
}

// ExpandPath expands the tilde (~) prefix in a path to the user's home directory.
// A trailing separator on the input is kept, as it changes how a source is copied.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get user home directory: %w", err)
	}

	expanded := filepath.Join(home, path[1:])
	if HasTrailingSeparator(path) && !HasTrailingSeparator(expanded) {
		expanded += string(filepath.Separator)
	}
	return expanded, nil
}

// HasTrailingSeparator reports whether path ends with a path separator.
// On Windows both '\' and '/' count.
func HasTrailingSeparator(path string) bool {
	if path == "" {
		return false
	}
	return os.IsPathSeparator(path[len(path)-1])
}

// InvertMap takes a map[K]V and returns a map[V]K.
// It's a generic helper for creating reverse lookup maps for enums.
func InvertMap[K comparable, V comparable](m map[K]V) map[V]K {
	inv := make(map[V]K, len(m))
	for k, v := range m {
		inv[v] = k
	}
	return inv
}
