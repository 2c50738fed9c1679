package pathcopy

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/creachadair/taskgroup"
	"github.com/spf13/afero"

	"github.com/paulschiretz/pgl-copy/pkg/plog"
	"github.com/paulschiretz/pgl-copy/pkg/sharded"
	"github.com/paulschiretz/pgl-copy/pkg/workstack"
)

// copyTask holds the mutable state for a single copy run.
// This keeps the PathCopier itself stateless.
type copyTask struct {
	ctx   context.Context
	runID string

	destRoot         string
	numWorkers       int
	dryRun           bool
	verbose          bool
	progressInterval time.Duration

	stack    *workstack.Stack[Entry]
	status   *statusTable
	fs       *fsAdapter
	metrics  Metrics
	reporter Reporter

	// processed counts every entry taken off the stack, failed ones included.
	processed atomic.Int64

	// errs collects every error event keyed by the failing path. A path can
	// fail more than once (e.g. mkdir and readdir), so events are appended.
	errs *sharded.Map[[]ErrorEvent]
}

func newCopyTask(ctx context.Context, fsys afero.Fs, plan *Plan, destRoot, runID string, metrics Metrics, reporter Reporter) *copyTask {
	workers := plan.workers()
	return &copyTask{
		ctx:              ctx,
		runID:            runID,
		destRoot:         destRoot,
		numWorkers:       workers,
		dryRun:           plan.DryRun,
		verbose:          plan.Verbose,
		progressInterval: plan.ProgressInterval,
		stack:            workstack.New[Entry](workers),
		status:           newStatusTable(workers),
		fs:               newFSAdapter(fsys, plan.bufferSize(), plan.ReadDirBatch, metrics),
		metrics:          metrics,
		reporter:         reporter,
		errs:             sharded.NewMap[[]ErrorEvent](0),
	}
}

// execute pushes the initial entries, runs the worker pool until the stack
// terminates and waits for every worker to exit.
func (t *copyTask) execute(entries []Entry) error {
	plog.Info("Copying",
		"run_id", t.runID,
		"sources", len(entries),
		"destination", t.destRoot,
		"workers", t.numWorkers,
		"dry_run", t.dryRun,
	)

	t.metrics.StartProgress("Copy progress", t.progressInterval)
	defer func() {
		t.metrics.StopProgress()
		t.metrics.LogSummary("Copy finished")
	}()

	stop := context.AfterFunc(t.ctx, t.stack.Cancel)
	defer stop()

	t.stack.Push(entries...)

	// An internal error stops the whole run; I/O errors never reach here.
	g := taskgroup.New(func(error) { t.stack.Cancel() })
	for id := range t.numWorkers {
		g.Go(func() error { return t.worker(id) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	t.logErrorSummary()

	if !t.stack.Done() {
		return t.ctx.Err()
	}
	plog.Info("Copy complete", "run_id", t.runID, "processed", t.processed.Load())
	return nil
}

// worker takes entries off the stack until the run terminates or is canceled.
func (t *copyTask) worker(id int) error {
	onIdle := func() { t.setStatus(id, Status{State: StateIdle}) }
	for {
		if t.ctx.Err() != nil {
			return nil
		}
		entry, ok := t.stack.Next(id, onIdle)
		if !ok {
			t.setStatus(id, Status{State: StateIdle})
			return nil
		}
		if err := t.process(id, entry); err != nil {
			return err
		}
	}
}

// process handles a single entry. It only returns an error for defects;
// filesystem failures are reported and the worker carries on.
func (t *copyTask) process(id int, e Entry) error {
	var err error
	switch e.Kind {
	case KindDirectory:
		err = t.processDirectory(id, e)
	case KindFile:
		err = t.processFile(id, e)
	default:
		err = fmt.Errorf("%w: entry %s has unknown kind %v", ErrInternal, e.Path, e.Kind)
	}

	n := t.processed.Add(1)
	t.metrics.AddEntriesProcessed(1)
	t.reporter.Totals(TotalsEvent{Processed: n, Remaining: t.stack.Len()})
	return err
}

// processDirectory creates the destination directory and pushes the
// source directory's children. If the destination cannot be created none
// of the children are pushed.
func (t *copyTask) processDirectory(id int, e Entry) error {
	t.setStatus(id, Status{State: StateScanning, Path: e.Path})

	dest, err := Resolve(e.SourceRoot, t.destRoot, e.Path)
	if err != nil {
		return t.internalError(e, err)
	}

	if t.dryRun {
		if loaded := t.fs.createdDirs.LoadOrStore(dest); !loaded {
			plog.Notice("[DRY RUN] DIR", "path", dest)
		}
	} else {
		if err := t.fs.EnsureDirectory(dest); err != nil {
			t.reportError("Failed to create destination directory", e.Path, err)
			return nil
		}
		plog.Notice("DIR", "path", dest)
	}

	var batch []Entry
	for child, err := range t.fs.ListChildren(e.Path) {
		if err != nil {
			t.reportError("Failed to list directory", e.Path, err)
			break
		}
		kind, ok := kindOf(child.Mode)
		if !ok {
			plog.Debug("SKIP", "type", child.Mode.Type().String(), "path", child.Path)
			continue
		}
		batch = append(batch, Entry{Kind: kind, SourceRoot: e.SourceRoot, Path: child.Path})
	}

	// Reversed so the first listed child is popped first.
	slices.Reverse(batch)
	t.stack.Push(batch...)
	t.metrics.AddDirsScanned(1)
	return nil
}

func (t *copyTask) processFile(id int, e Entry) error {
	t.setStatus(id, Status{State: StateCopying, Path: e.Path})

	dest, err := Resolve(e.SourceRoot, t.destRoot, e.Path)
	if err != nil {
		return t.internalError(e, err)
	}

	if t.dryRun {
		plog.Notice("[DRY RUN] COPY", "path", dest)
		return nil
	}

	n, err := t.fs.CopyFile(e.Path, dest)
	if err != nil {
		t.reportError("Failed to copy file", e.Path, err)
		return nil
	}
	t.metrics.AddFilesCopied(1)
	t.metrics.AddBytesWritten(n)
	plog.Notice("COPY", "path", dest)
	return nil
}

func (t *copyTask) setStatus(id int, st Status) {
	if t.status.set(id, st) && t.verbose {
		t.reporter.Progress(ProgressEvent{WorkerID: id, Status: st})
	}
}

func (t *copyTask) reportError(msg, path string, err error) {
	ev := ErrorEvent{Message: msg, Path: path, Err: err}
	t.errs.Update(path, func(old []ErrorEvent, _ bool) []ErrorEvent {
		return append(old, ev)
	})
	t.metrics.AddErrors(1)
	t.reporter.Error(ev)
}

func (t *copyTask) internalError(e Entry, err error) error {
	plog.Error("Cannot resolve destination path", "run_id", t.runID, "path", e.Path, "source_root", e.SourceRoot, "error", err)
	t.reportError("Cannot resolve destination path", e.Path, err)
	return fmt.Errorf("%w: %w", ErrInternal, err)
}

// sortedErrors returns every recorded error event ordered by path.
func (t *copyTask) sortedErrors() []ErrorEvent {
	items := t.errs.Items()
	paths := make([]string, 0, len(items))
	for p := range items {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	var out []ErrorEvent
	for _, p := range paths {
		out = append(out, items[p]...)
	}
	return out
}

func (t *copyTask) logErrorSummary() {
	all := t.sortedErrors()
	if len(all) == 0 {
		return
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d non-fatal errors occurred during copy:\n", len(all)))
	for _, ev := range all {
		sb.WriteString(fmt.Sprintf("  - path: %s, error: %v\n", ev.Path, ev.Err))
	}
	plog.Warn(sb.String())
}

func (t *copyTask) result(d time.Duration) *Result {
	return &Result{
		RunID:     t.runID,
		Processed: t.processed.Load(),
		Errors:    t.sortedErrors(),
		Metrics:   t.metrics.Snapshot(),
		Duration:  d,
	}
}
