package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/paulschiretz/pgl-copy/cmd"
	"github.com/paulschiretz/pgl-copy/pkg/buildinfo"
	"github.com/paulschiretz/pgl-copy/pkg/pathcopy"
	"github.com/paulschiretz/pgl-copy/pkg/plog"
)

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string) int {
	root := cmd.NewRootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return cmd.ExitOK
	}
	switch {
	case errors.Is(err, context.Canceled):
		plog.Warn(buildinfo.Name + " was interrupted; the destination may be incomplete")
	case errors.Is(err, pathcopy.ErrPartial):
		plog.Warn(buildinfo.Name+" finished with errors", "error", err)
	default:
		plog.Error(buildinfo.Name+" exited with error", "error", err)
	}
	return cmd.ExitCode(err)
}

func main() {
	// Set up a context that is canceled when an interrupt signal is received.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	code := run(ctx, os.Args[1:])
	cancel()
	os.Exit(code)
}
