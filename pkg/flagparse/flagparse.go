// Package flagparse registers the command-line flags and reports which of
// them the user set explicitly, so they can be merged over the loaded
// configuration without clobbering it with flag defaults.
package flagparse

import (
	"github.com/spf13/pflag"
)

// Flags holds pointers to all possible command-line flags.
// Fields are pointers so we can distinguish between "not registered for this command" (nil)
// and "registered but not set by user" (non-nil pointer to zero value).
type Flags struct {
	// Global
	LogLevel *string
	Quiet    *bool
	Config   *string

	// Shared: Copy / Init
	Workers          *int
	BufferSizeKB     *int
	ReadDirBatch     *int
	Verbose          *bool
	Metrics          *bool
	MetricsTextfile  *string
	ProgressInterval *int

	// Copy specific
	DryRun *bool

	// Init specific
	Force *bool
}

// RegisterGlobalFlags registers the flags shared by every command.
func RegisterGlobalFlags(fs *pflag.FlagSet, f *Flags) {
	f.LogLevel = fs.String("log-level", "info", "Set the logging level: 'debug', 'notice', 'info', 'warn', 'error'.")
	f.Quiet = fs.BoolP("quiet", "q", false, "Only log warnings and errors.")
	f.Config = fs.String("config", "", "Path to a configuration file (.json, .yaml or .yml).")
}

func registerTuningFlags(fs *pflag.FlagSet, f *Flags) {
	f.Workers = fs.IntP("workers", "j", 0, "Number of worker goroutines (0 = one per CPU).")
	f.BufferSizeKB = fs.Int("buffer-size-kb", 0, "Size of the I/O buffer in kilobytes for file copies.")
	f.ReadDirBatch = fs.Int("read-dir-batch", 0, "Number of directory entries read per batch while scanning.")
	f.Verbose = fs.BoolP("verbose", "v", false, "Log every directory and file as it is processed.")
	f.Metrics = fs.Bool("metrics", false, "Enable detailed performance and file-counting metrics.")
	f.MetricsTextfile = fs.String("metrics-textfile", "", "Write run metrics in Prometheus text format to this file.")
	f.ProgressInterval = fs.Int("progress-interval", 0, "Seconds between progress summaries (0 = default).")
}

// RegisterCopyFlags registers the flags of the copy command.
func RegisterCopyFlags(fs *pflag.FlagSet, f *Flags) {
	registerTuningFlags(fs, f)
	f.DryRun = fs.Bool("dry-run", false, "Show what would be done without making any changes.")
}

// RegisterInitFlags registers the flags of the init command. Init accepts
// the tuning flags so they can be written into the generated file.
func RegisterInitFlags(fs *pflag.FlagSet, f *Flags) {
	registerTuningFlags(fs, f)
	f.Force = fs.Bool("force", false, "Overwrite an existing configuration file.")
}

// ToMap returns the value of every registered flag the user set explicitly,
// keyed by flag name.
func ToMap(fs *pflag.FlagSet, f *Flags) map[string]any {
	flagMap := make(map[string]any)
	usedFlags := make(map[string]bool)
	fs.Visit(func(fl *pflag.Flag) { usedFlags[fl.Name] = true })

	addIfUsed(flagMap, usedFlags, "log-level", f.LogLevel)
	addIfUsed(flagMap, usedFlags, "quiet", f.Quiet)
	addIfUsed(flagMap, usedFlags, "workers", f.Workers)
	addIfUsed(flagMap, usedFlags, "buffer-size-kb", f.BufferSizeKB)
	addIfUsed(flagMap, usedFlags, "read-dir-batch", f.ReadDirBatch)
	addIfUsed(flagMap, usedFlags, "verbose", f.Verbose)
	addIfUsed(flagMap, usedFlags, "metrics", f.Metrics)
	addIfUsed(flagMap, usedFlags, "metrics-textfile", f.MetricsTextfile)
	addIfUsed(flagMap, usedFlags, "progress-interval", f.ProgressInterval)
	addIfUsed(flagMap, usedFlags, "dry-run", f.DryRun)
	addIfUsed(flagMap, usedFlags, "force", f.Force)
	return flagMap
}

// addIfUsed adds the dereferenced flag value to the map if the flag was
// registered and set on the command line.
func addIfUsed[T any](flagMap map[string]any, usedFlags map[string]bool, name string, ptr *T) {
	if ptr != nil && usedFlags[name] {
		flagMap[name] = *ptr
	}
}
