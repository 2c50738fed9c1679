// Package pathcopy copies one or more source trees into a destination
// directory with a fixed pool of workers.
//
// All workers share a single LIFO stack of entries. Scanning a directory
// creates its destination and pushes its children, so every worker is both
// a consumer and a producer of work. The run ends when the stack is empty
// and every worker is idle at the same time.
package pathcopy

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/paulschiretz/pgl-copy/pkg/plog"
)

// PathCopier runs copy plans against a filesystem. It holds no per-run
// state and may be reused.
type PathCopier struct {
	fs afero.Fs
}

// NewPathCopier creates a PathCopier. A nil fsys means the OS filesystem.
func NewPathCopier(fsys afero.Fs) *PathCopier {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &PathCopier{fs: fsys}
}

// Result summarises a finished run.
type Result struct {
	RunID     string
	Processed int64
	// Errors holds every error event of the run, ordered by path.
	Errors   []ErrorEvent
	Metrics  MetricsSnapshot
	Duration time.Duration
}

// Err returns nil when every entry was processed without error, and an
// error wrapping ErrPartial otherwise.
func (r *Result) Err() error {
	if r == nil || len(r.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d errors, first: %s", ErrPartial, len(r.Errors), r.Errors[0])
}

// Copy executes plan. Invalid sources or destinations are reported as a
// *ConfigurationError before anything is written. Failures of individual
// entries do not fail Copy; they are collected in the Result. Copy returns
// the context's error if the run was canceled before it terminated.
func (c *PathCopier) Copy(ctx context.Context, plan *Plan) (*Result, error) {
	if err := plan.validate(); err != nil {
		return nil, err
	}

	entries, err := BuildEntries(c.fs, plan.Sources, plan.Destination)
	if err != nil {
		return nil, err
	}
	destRoot, err := filepath.Abs(plan.Destination)
	if err != nil {
		return nil, &ConfigurationError{Path: plan.Destination, Reason: "invalid destination path", Err: err}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var metrics Metrics = &NoopMetrics{}
	if plan.Metrics {
		metrics = &CopyMetrics{}
	}
	reporter := plan.Reporter
	if reporter == nil {
		reporter = NewLogReporter(plan.ProgressInterval)
	}

	runID := plan.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	t := newCopyTask(ctx, c.fs, plan, destRoot, runID, metrics, reporter)

	// Top-level file entries need their parent to exist before any worker runs.
	if !plan.DryRun {
		if err := t.fs.EnsureDirectory(destRoot); err != nil {
			return nil, &ConfigurationError{Path: plan.Destination, Reason: "destination cannot be created", Err: err}
		}
	}

	start := time.Now()
	runErr := t.execute(entries)
	res := t.result(time.Since(start))
	if runErr != nil {
		plog.Debug("Copy run aborted", "run_id", t.runID, "error", runErr)
		return res, runErr
	}
	return res, nil
}
