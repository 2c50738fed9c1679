package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/paulschiretz/pgl-copy/pkg/buildinfo"
	"github.com/paulschiretz/pgl-copy/pkg/flagparse"
	"github.com/paulschiretz/pgl-copy/pkg/plog"
	"github.com/paulschiretz/pgl-copy/pkg/util"
)

// ConfigFileName is the default name of a generated configuration file.
const ConfigFileName = "pgl-copy.config.json"

// maxBufferSizeKB caps the copy buffer at 64MB.
const maxBufferSizeKB = 64 * 1024

type PerformanceConfig struct {
	Workers      int `json:"workers" yaml:"workers"`
	BufferSizeKB int `json:"bufferSizeKB" yaml:"bufferSizeKB"`
	ReadDirBatch int `json:"readDirBatch" yaml:"readDirBatch"`
}

type MetricsConfig struct {
	Enabled                 bool   `json:"enabled" yaml:"enabled"`
	Textfile                string `json:"textfile" yaml:"textfile"`
	ProgressIntervalSeconds int    `json:"progressIntervalSeconds" yaml:"progressIntervalSeconds"`
}

type RuntimeConfig struct {
	DryRun bool
	Quiet  bool
}

type Config struct {
	Version     string            `json:"version" yaml:"version"`
	LogLevel    string            `json:"logLevel" yaml:"logLevel"`
	Verbose     bool              `json:"verbose" yaml:"verbose"`
	Performance PerformanceConfig `json:"performance" yaml:"performance"`
	Metrics     MetricsConfig     `json:"metrics" yaml:"metrics"`
	Runtime     RuntimeConfig     `json:"-" yaml:"-"` // Never added to config file
}

// NewDefault creates and returns a Config struct with sensible default values.
func NewDefault() Config {
	return Config{
		Version:  buildinfo.Version,
		LogLevel: "info",
		Performance: PerformanceConfig{
			Workers:      0,   // One worker per CPU.
			BufferSizeKB: 256, // Keep it between 64KB-4MB.
			ReadDirBatch: 256,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			ProgressIntervalSeconds: 10,
		},
	}
}

// ProgressInterval returns the configured progress interval as a duration.
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.Metrics.ProgressIntervalSeconds) * time.Second
}

// isYAML reports whether path should be read and written as YAML.
func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads the configuration file at path on top of the defaults, so
// fields missing from the file keep their default values. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return NewDefault(), nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("could not determine absolute path for config file %s: %w", path, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config file %s: %w", absPath, err)
	}

	plog.Info("Loading configuration", "path", absPath)
	config := NewDefault()
	if isYAML(absPath) {
		err = yaml.Unmarshal(data, &config)
	} else {
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return Config{}, fmt.Errorf("error parsing config file %s: %w", absPath, err)
	}

	// NOTE: if config.Version differs from the app version a migration step goes here.
	if config.Version != buildinfo.Version {
		config.Version = buildinfo.Version
	}
	return config, nil
}

// Generate writes cfg to path as JSON, or as YAML for a .yaml/.yml path.
// An existing file is only replaced when overwrite is set.
func Generate(path string, cfg Config, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists; use --force to overwrite it", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("could not check config file %s: %w", path, err)
		}
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, util.UserWritableFilePerms); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	plog.Info("Successfully saved config file", "path", path)
	return nil
}

// Validate checks the configuration for logical errors and inconsistencies.
func (c *Config) Validate() error {
	if !plog.IsValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log level: %q. Must be 'debug', 'notice', 'info', 'warn', or 'error'", c.LogLevel)
	}
	if c.Performance.Workers < 0 {
		return fmt.Errorf("workers cannot be negative, got %d", c.Performance.Workers)
	}
	if c.Performance.BufferSizeKB <= 0 || c.Performance.BufferSizeKB > maxBufferSizeKB {
		return fmt.Errorf("bufferSizeKB must be between 1 and %d, got %d", maxBufferSizeKB, c.Performance.BufferSizeKB)
	}
	if c.Performance.ReadDirBatch < 0 {
		return fmt.Errorf("readDirBatch cannot be negative, got %d", c.Performance.ReadDirBatch)
	}
	if c.Metrics.ProgressIntervalSeconds < 0 {
		return fmt.Errorf("progressIntervalSeconds cannot be negative, got %d", c.Metrics.ProgressIntervalSeconds)
	}
	if c.Metrics.Textfile != "" {
		expanded, err := util.ExpandPath(c.Metrics.Textfile)
		if err != nil {
			return fmt.Errorf("could not expand metrics textfile path: %w", err)
		}
		c.Metrics.Textfile = expanded
	}
	return nil
}

// LogSummary logs the effective configuration at info level.
func (c *Config) LogSummary() {
	logArgs := []any{
		"log_level", c.LogLevel,
		"verbose", c.Verbose,
		"dry_run", c.Runtime.DryRun,
		"workers", c.Performance.Workers,
		"buffer_size_kb", c.Performance.BufferSizeKB,
		"read_dir_batch", c.Performance.ReadDirBatch,
		"metrics", c.Metrics.Enabled,
	}
	if c.Metrics.Enabled {
		logArgs = append(logArgs, "progress_interval", c.ProgressInterval())
	}
	if c.Metrics.Textfile != "" {
		logArgs = append(logArgs, "metrics_textfile", c.Metrics.Textfile)
	}
	plog.Info("Configuration loaded", logArgs...)
}

// MergeConfigWithFlags overlays the flags the user set explicitly on the
// command line onto base. setFlags only contains those flags, so values from
// the config file survive unless overridden.
func MergeConfigWithFlags(command flagparse.Command, base Config, setFlags map[string]any) Config {
	merged := base

	for name, value := range setFlags {
		switch name {
		case "log-level":
			merged.LogLevel = value.(string)
		case "quiet":
			merged.Runtime.Quiet = value.(bool)
		case "verbose":
			merged.Verbose = value.(bool)
		case "workers":
			merged.Performance.Workers = value.(int)
		case "buffer-size-kb":
			merged.Performance.BufferSizeKB = value.(int)
		case "read-dir-batch":
			merged.Performance.ReadDirBatch = value.(int)
		case "metrics":
			merged.Metrics.Enabled = value.(bool)
		case "metrics-textfile":
			merged.Metrics.Textfile = value.(string)
		case "progress-interval":
			merged.Metrics.ProgressIntervalSeconds = value.(int)
		case "dry-run":
			switch command {
			case flagparse.Copy:
				merged.Runtime.DryRun = value.(bool)
			default:
			}
		case "force":
			// Controls how init writes the file, not part of the config.
		default:
			plog.Debug("unhandled flag in MergeConfigWithFlags", "flag", name)
		}
	}
	return merged
}
