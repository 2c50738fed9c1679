package cmd

import (
	"errors"

	"github.com/paulschiretz/pgl-copy/pkg/pathcopy"
)

// Process exit codes.
const (
	ExitOK            = 0
	ExitPartial       = 1
	ExitConfiguration = 2
)

// ExitCode maps the error returned by a command to the process exit code.
// Configuration errors are reported before any work starts. Everything else,
// including a canceled run, means the destination may be incomplete.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, pathcopy.ErrConfiguration):
		return ExitConfiguration
	default:
		return ExitPartial
	}
}

// configError marks err as a configuration problem for ExitCode.
func configError(reason string, err error) error {
	var cfgErr *pathcopy.ConfigurationError
	if errors.As(err, &cfgErr) {
		return err
	}
	return &pathcopy.ConfigurationError{Reason: reason, Err: err}
}
