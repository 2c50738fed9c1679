package pathcopy

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrInternal matches errors caused by a defect rather than by the filesystem.
	ErrInternal = errors.New("internal error")
)

// ConfigurationError is returned before any worker starts when the sources
// or the destination cannot be used. Nothing has been copied when it occurs.
type ConfigurationError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := e.Reason
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Reason, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// ResolutionError reports an entry whose path does not lie below its source
// root. Entries are always built from their root, so this indicates a bug.
type ResolutionError struct {
	SourceRoot string
	Path       string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("path %s is not below source root %s", e.Path, e.SourceRoot)
}

func (e *ResolutionError) Is(target error) bool { return target == ErrInternal }

// IOError is a recoverable filesystem failure for a single path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ErrPartial is returned by Result.Err when at least one entry failed.
var ErrPartial = errors.New("some entries could not be copied")
