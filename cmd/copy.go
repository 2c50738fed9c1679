package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/paulschiretz/pgl-copy/pkg/buildinfo"
	"github.com/paulschiretz/pgl-copy/pkg/config"
	"github.com/paulschiretz/pgl-copy/pkg/flagparse"
	"github.com/paulschiretz/pgl-copy/pkg/lockfile"
	"github.com/paulschiretz/pgl-copy/pkg/metricsexport"
	"github.com/paulschiretz/pgl-copy/pkg/pathcopy"
	"github.com/paulschiretz/pgl-copy/pkg/plog"
	"github.com/paulschiretz/pgl-copy/pkg/preflight"
	"github.com/paulschiretz/pgl-copy/pkg/util"
)

// RunCopy handles the logic for the main copy execution.
func RunCopy(ctx context.Context, sources []string, dest string, configPath string, flagMap map[string]any) error {
	loadedConfig, err := config.Load(configPath)
	if err != nil {
		return configError("failed to load configuration", err)
	}

	// Merge the flag values over the loaded config to get the final run config.
	runConfig := config.MergeConfigWithFlags(flagparse.Copy, loadedConfig, flagMap)

	// CRITICAL: Validate the config for the run
	if err := runConfig.Validate(); err != nil {
		return configError("invalid configuration", err)
	}

	applyLogSettings(&runConfig)
	runConfig.LogSummary()

	expandedSources := make([]string, 0, len(sources))
	for _, src := range sources {
		expanded, err := util.ExpandPath(src)
		if err != nil {
			return configError("invalid source path", err)
		}
		expandedSources = append(expandedSources, expanded)
	}
	expandedDest, err := util.ExpandPath(dest)
	if err != nil {
		return configError("invalid destination path", err)
	}

	pfPlan := &preflight.Plan{
		DestinationAccessible: true,
		DestinationWritable:   true,
		PathNesting:           true,
		DryRun:                runConfig.Runtime.DryRun,
	}
	if err := preflight.Run(pfPlan, expandedSources, expandedDest); err != nil {
		return configError("copy preflight failed", err)
	}

	runID := uuid.NewString()
	if !runConfig.Runtime.DryRun {
		absDest, err := filepath.Abs(expandedDest)
		if err != nil {
			return configError("invalid destination path", err)
		}
		lock, err := lockfile.New(lockfile.DefaultDir()).Acquire(ctx, absDest, runID)
		if err != nil {
			var active *lockfile.ActiveError
			if errors.As(err, &active) {
				return configError("destination is in use", err)
			}
			return fmt.Errorf("failed to acquire lock on destination: %w", err)
		}
		defer lock.Release()
	}

	plan := &pathcopy.Plan{
		Sources:          expandedSources,
		Destination:      expandedDest,
		RunID:            runID,
		Workers:          runConfig.Performance.Workers,
		BufferSizeKB:     runConfig.Performance.BufferSizeKB,
		ReadDirBatch:     runConfig.Performance.ReadDirBatch,
		ProgressInterval: runConfig.ProgressInterval(),
		Verbose:          runConfig.Verbose,
		DryRun:           runConfig.Runtime.DryRun,
		Metrics:          runConfig.Metrics.Enabled || runConfig.Metrics.Textfile != "",
	}

	copier := pathcopy.NewPathCopier(afero.NewOsFs())
	res, err := copier.Copy(ctx, plan)
	if res != nil && runConfig.Metrics.Textfile != "" {
		if werr := metricsexport.WriteTextfile(runConfig.Metrics.Textfile, res, time.Now()); werr != nil {
			plog.Warn("Could not write metrics textfile", "error", werr)
		}
	}
	if err != nil {
		return err // The error will be logged with full details by main()
	}
	if err := res.Err(); err != nil {
		return err
	}

	plog.Info(buildinfo.Name+" finished successfully.",
		"duration", res.Duration.Round(time.Millisecond),
		"processed", res.Processed,
		"written", humanize.IBytes(uint64(res.Metrics.BytesWritten)),
	)
	return nil
}

// applyLogSettings sets the global log level from cfg. Verbose lowers the
// level to Notice so every processed entry is logged.
func applyLogSettings(cfg *config.Config) {
	level := plog.LevelFromString(cfg.LogLevel)
	if cfg.Verbose && level > plog.LevelNotice {
		level = plog.LevelNotice
	}
	plog.SetLevel(level)
	plog.SetQuiet(cfg.Runtime.Quiet)
}
