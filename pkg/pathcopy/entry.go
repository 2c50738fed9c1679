package pathcopy

import (
	"fmt"
	"io/fs"

	"github.com/paulschiretz/pgl-copy/pkg/util"
)

// Kind is the type of filesystem object an Entry refers to.
type Kind int

const (
	// KindFile is a regular file.
	KindFile Kind = iota
	// KindDirectory is a directory whose children are discovered when it is scanned.
	KindDirectory
)

var kindToString = map[Kind]string{KindFile: "file", KindDirectory: "directory"}
var stringToKind = map[string]Kind{}

func init() {
	stringToKind = util.InvertMap(kindToString)
}

// String returns the string representation of a Kind.
func (k Kind) String() string {
	if str, ok := kindToString[k]; ok {
		return str
	}
	return fmt.Sprintf("unknown_kind(%d)", k)
}

// ParseKind parses a string and returns the corresponding Kind.
func ParseKind(s string) (Kind, error) {
	if k, ok := stringToKind[s]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("invalid kind: %q. Must be 'file' or 'directory'", s)
}

// kindOf classifies a mode as reported by a directory listing. Symlinks,
// devices, pipes and sockets are not copied.
func kindOf(mode fs.FileMode) (Kind, bool) {
	switch {
	case mode.IsDir():
		return KindDirectory, true
	case mode.IsRegular():
		return KindFile, true
	default:
		return 0, false
	}
}

// Entry is one unit of work on the stack. SourceRoot is the prefix that is
// stripped from Path to compute the destination, and is shared by every
// entry discovered below the same top-level source.
type Entry struct {
	Kind       Kind
	SourceRoot string
	Path       string
}

// NewFileEntry returns an entry for the regular file at path.
func NewFileEntry(sourceRoot, path string) Entry {
	return Entry{Kind: KindFile, SourceRoot: sourceRoot, Path: path}
}

// NewDirectoryEntry returns an entry for the directory at path.
func NewDirectoryEntry(sourceRoot, path string) Entry {
	return Entry{Kind: KindDirectory, SourceRoot: sourceRoot, Path: path}
}
