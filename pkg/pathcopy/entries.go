package pathcopy

import (
	"path/filepath"
	"slices"

	"github.com/spf13/afero"

	"github.com/paulschiretz/pgl-copy/pkg/util"
)

// BuildEntries turns the command-line sources into the initial stack
// contents. All errors are *ConfigurationError.
//
// A directory named without a trailing separator is copied as a whole and
// lands at dest/<name>. With a trailing separator only its contents are
// copied into dest. A regular file always lands at dest/<name>.
//
// The entries are returned in reverse order so that the first source is
// the first to be popped.
func BuildEntries(fsys afero.Fs, sources []string, dest string) ([]Entry, error) {
	if len(sources) == 0 {
		return nil, &ConfigurationError{Reason: "no sources given"}
	}
	if dest == "" {
		return nil, &ConfigurationError{Reason: "no destination given"}
	}

	absDest, err := filepath.Abs(dest)
	if err != nil {
		return nil, &ConfigurationError{Path: dest, Reason: "invalid destination path", Err: err}
	}
	if info, err := fsys.Stat(absDest); err == nil && !info.IsDir() {
		reason := "destination exists and is not a directory"
		if len(sources) > 1 {
			reason = "multiple sources require a directory destination"
		}
		return nil, &ConfigurationError{Path: dest, Reason: reason}
	}

	entries := make([]Entry, 0, len(sources))
	for _, src := range sources {
		entry, err := sourceEntry(fsys, src)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	slices.Reverse(entries)
	return entries, nil
}

func sourceEntry(fsys afero.Fs, src string) (Entry, error) {
	if src == "" {
		return Entry{}, &ConfigurationError{Reason: "empty source path"}
	}
	contentsOnly := util.HasTrailingSeparator(src)

	abs, err := filepath.Abs(src)
	if err != nil {
		return Entry{}, &ConfigurationError{Path: src, Reason: "invalid source path", Err: err}
	}

	// Stat follows symlinks, so a link to a directory given on the command
	// line is copied as that directory.
	info, err := fsys.Stat(abs)
	if err != nil {
		return Entry{}, &ConfigurationError{Path: src, Reason: "source does not exist or is not accessible", Err: err}
	}

	switch {
	case info.IsDir():
		root := filepath.Dir(abs)
		if contentsOnly {
			root = abs
		}
		return NewDirectoryEntry(root, abs), nil
	case info.Mode().IsRegular():
		return NewFileEntry(filepath.Dir(abs), abs), nil
	default:
		return Entry{}, &ConfigurationError{Path: src, Reason: "source is neither a regular file nor a directory"}
	}
}
