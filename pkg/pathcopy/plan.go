package pathcopy

import (
	"runtime"
	"time"
)

// DefaultBufferSizeKB is the copy buffer size used when a plan leaves it unset.
const DefaultBufferSizeKB = 256

// Plan describes a single copy run.
type Plan struct {
	Sources     []string
	Destination string

	// RunID identifies the run in logs and results. Empty means a new UUID.
	RunID string

	// Workers is the size of the worker pool. Zero means one per CPU.
	Workers int

	BufferSizeKB int
	ReadDirBatch int

	// ProgressInterval controls both the periodic metrics summary and how
	// often totals are written by the default reporter. Zero disables the
	// periodic summary.
	ProgressInterval time.Duration

	// Verbose enables per-worker progress events.
	Verbose bool
	// DryRun scans the sources but creates and copies nothing.
	DryRun bool
	// Metrics enables the metric counters and the periodic summary.
	Metrics bool

	// Reporter receives progress, totals and error events. A nil Reporter
	// logs them through plog.
	Reporter Reporter
}

func (p *Plan) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.NumCPU()
}

func (p *Plan) bufferSize() int {
	if p.BufferSizeKB > 0 {
		return p.BufferSizeKB * 1024
	}
	return DefaultBufferSizeKB * 1024
}

func (p *Plan) validate() error {
	if p.Workers < 0 {
		return &ConfigurationError{Reason: "workers must not be negative"}
	}
	if p.BufferSizeKB < 0 {
		return &ConfigurationError{Reason: "buffer size must not be negative"}
	}
	return nil
}
