// Package preflight provides checks that run before a copy starts. They do
// not change the filesystem and give friendlier errors than letting the first
// worker fail.
package preflight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/pgl-copy/pkg/util"
)

// Run performs the checks selected in plan for the given sources and
// destination. Writability is not checked in a dry run.
func Run(plan *Plan, sources []string, dest string) error {
	if plan.DestinationAccessible {
		if err := CheckDestinationAccessible(dest); err != nil {
			return err
		}
	}
	if plan.DestinationWritable && !plan.DryRun {
		if err := CheckDestinationWritable(dest); err != nil {
			return err
		}
	}
	if plan.PathNesting {
		if err := CheckPathNesting(sources, dest); err != nil {
			return err
		}
	}
	return nil
}

// CheckDestinationAccessible ensures dest is either an existing directory or
// can be created below its deepest existing ancestor.
func CheckDestinationAccessible(dest string) error {
	if err := checkVolumeExists(dest); err != nil {
		return err
	}

	info, err := os.Stat(dest)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("destination path exists but is not a directory: %s", dest)
		}
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cannot access destination path: %w", err)
	}

	ancestor, err := deepestExistingAncestor(dest)
	if err != nil {
		return err
	}
	if info, err := os.Stat(ancestor); err != nil {
		return fmt.Errorf("cannot access ancestor directory %s: %w", ancestor, err)
	} else if !info.IsDir() {
		return fmt.Errorf("cannot create destination %s: %s is not a directory", dest, ancestor)
	}
	return nil
}

// CheckDestinationWritable ensures the directory that will receive the copy,
// or its deepest existing ancestor, accepts new entries.
func CheckDestinationWritable(dest string) error {
	target := dest
	if _, err := os.Stat(dest); errors.Is(err, os.ErrNotExist) {
		ancestor, err := deepestExistingAncestor(dest)
		if err != nil {
			return err
		}
		target = ancestor
	}
	if err := checkWritable(target); err != nil {
		return fmt.Errorf("destination %s is not writable: %w", target, err)
	}
	return nil
}

// CheckPathNesting rejects a destination that lies inside a directory
// source. Such a copy would keep discovering its own output.
func CheckPathNesting(sources []string, dest string) error {
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("could not determine absolute path for destination %s: %w", dest, err)
	}
	for _, src := range sources {
		absSrc, err := filepath.Abs(src)
		if err != nil {
			return fmt.Errorf("could not determine absolute path for source %s: %w", src, err)
		}
		info, err := os.Stat(absSrc)
		if err != nil || !info.IsDir() {
			continue // Files cannot contain the destination; missing sources are reported later.
		}
		if isWithin(absSrc, absDest) {
			return fmt.Errorf("destination %s is inside source directory %s", dest, src)
		}
	}
	return nil
}

// isWithin reports whether path equals root or lies below it, comparing
// whole path components.
func isWithin(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if path == root {
		return true
	}
	if !util.HasTrailingSeparator(root) {
		root += string(filepath.Separator)
	}
	return strings.HasPrefix(path, root)
}

func deepestExistingAncestor(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("could not determine absolute path for %s: %w", path, err)
	}
	ancestor := abs
	for {
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			return ancestor, nil // Hit root
		}
		if _, err := os.Stat(parent); err == nil {
			return parent, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("cannot access ancestor directory %s: %w", parent, err)
		}
		ancestor = parent
	}
}
