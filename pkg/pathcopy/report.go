package pathcopy

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/paulschiretz/pgl-copy/pkg/plog"
)

// ProgressEvent is emitted when a worker changes its status.
type ProgressEvent struct {
	WorkerID int
	Status   Status
}

// TotalsEvent is emitted after every processed entry.
type TotalsEvent struct {
	Processed int64
	Remaining int
}

// ErrorEvent describes one failed operation. Every failure produces exactly
// one event.
type ErrorEvent struct {
	Message string
	Path    string
	Err     error
}

func (e ErrorEvent) String() string {
	if e.Err == nil {
		return e.Message + ": " + e.Path
	}
	return e.Message + ": " + e.Path + ": " + e.Err.Error()
}

// Reporter receives events from all workers. Implementations must be safe
// for concurrent use.
type Reporter interface {
	Progress(ProgressEvent)
	Totals(TotalsEvent)
	Error(ErrorEvent)
}

// LogReporter writes events to plog. Calls are serialized so lines from
// different workers never interleave, and totals are written at most once
// per interval.
type LogReporter struct {
	mu     sync.Mutex
	totals *rate.Sometimes
}

// NewLogReporter creates a LogReporter that logs totals at most once per
// interval. A non-positive interval logs every totals event.
func NewLogReporter(interval time.Duration) *LogReporter {
	r := &LogReporter{totals: &rate.Sometimes{Interval: interval}}
	if interval <= 0 {
		r.totals = &rate.Sometimes{Every: 1}
	}
	return r
}

func (r *LogReporter) Progress(ev ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	plog.Debug("Worker status", "worker", ev.WorkerID, "state", ev.Status.State.String(), "path", ev.Status.Path)
}

func (r *LogReporter) Totals(ev TotalsEvent) {
	r.totals.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		plog.Info("Copy totals", "processed", ev.Processed, "remaining", ev.Remaining)
	})
}

func (r *LogReporter) Error(ev ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	plog.Warn(ev.Message, "path", ev.Path, "error", ev.Err)
}

// NoopReporter discards every event.
type NoopReporter struct{}

func (NoopReporter) Progress(ProgressEvent) {}
func (NoopReporter) Totals(TotalsEvent)     {}
func (NoopReporter) Error(ErrorEvent)       {}

// MultiReporter forwards every event to each of its reporters in order.
type MultiReporter []Reporter

func (m MultiReporter) Progress(ev ProgressEvent) {
	for _, r := range m {
		r.Progress(ev)
	}
}

func (m MultiReporter) Totals(ev TotalsEvent) {
	for _, r := range m {
		r.Totals(ev)
	}
}

func (m MultiReporter) Error(ev ErrorEvent) {
	for _, r := range m {
		r.Error(ev)
	}
}

var _ Reporter = (*LogReporter)(nil)
var _ Reporter = NoopReporter{}
var _ Reporter = MultiReporter(nil)
