package plog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Log levels. Notice sits between Debug and Info and is used for
// per-entry progress lines that are only shown when asked for.
const (
	LevelDebug  = slog.LevelDebug
	LevelNotice = slog.Level(-2)
	LevelInfo   = slog.LevelInfo
	LevelWarn   = slog.LevelWarn
	LevelError  = slog.LevelError
)

var levelNames = map[slog.Level]string{
	LevelDebug:  "DEBUG",
	LevelNotice: "NOTICE",
	LevelInfo:   "INFO",
	LevelWarn:   "WARN",
	LevelError:  "ERROR",
}

// LevelDispatchHandler is a slog.Handler that writes log records to different
// handlers based on the record's level. Records below WARN go to one handler,
// WARN and above go to another.
type LevelDispatchHandler struct {
	stdoutHandler slog.Handler
	stderrHandler slog.Handler
}

// Enabled reports whether the level passes the global minimum level.
func (h *LevelDispatchHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= minLevel.Level()
}

// Handle dispatches the record to the appropriate handler.
func (h *LevelDispatchHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		return h.stderrHandler.Handle(ctx, r)
	}
	return h.stdoutHandler.Handle(ctx, r)
}

// WithAttrs returns a new LevelDispatchHandler with the given attributes added.
func (h *LevelDispatchHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LevelDispatchHandler{
		stdoutHandler: h.stdoutHandler.WithAttrs(attrs),
		stderrHandler: h.stderrHandler.WithAttrs(attrs),
	}
}

// WithGroup returns a new LevelDispatchHandler with the given group.
func (h *LevelDispatchHandler) WithGroup(name string) slog.Handler {
	return &LevelDispatchHandler{
		stdoutHandler: h.stdoutHandler.WithGroup(name),
		stderrHandler: h.stderrHandler.WithGroup(name),
	}
}

var (
	defaultLogger atomic.Pointer[slog.Logger]
	minLevel      = new(slog.LevelVar)
	quietMode     atomic.Bool // Use an atomic bool for safe concurrent reads.
)

// replaceLevelName renders the custom Notice level by name instead of "INFO-2".
func replaceLevelName(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if level, ok := a.Value.Any().(slog.Level); ok {
		if name, ok := levelNames[level]; ok {
			a.Value = slog.StringValue(name)
		}
	}
	return a
}

// newStreamHandler returns a coloured handler when f is an interactive
// terminal and a plain text handler otherwise (pipes, files, CI logs).
func newStreamHandler(f *os.File) slog.Handler {
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return tint.NewHandler(f, &tint.Options{
			Level:       minLevel,
			TimeFormat:  time.TimeOnly,
			ReplaceAttr: replaceLevelName,
		})
	}
	return slog.NewTextHandler(f, &slog.HandlerOptions{
		Level:       minLevel,
		ReplaceAttr: replaceLevelName,
	})
}

func init() {
	minLevel.Set(LevelInfo)
	defaultLogger.Store(slog.New(&LevelDispatchHandler{
		stdoutHandler: newStreamHandler(os.Stdout),
		stderrHandler: newStreamHandler(os.Stderr),
	}))
}

// SetOutput allows redirecting the logger's output, primarily for testing.
// All levels are written to w as plain text.
func SetOutput(w io.Writer) {
	// When redirecting output for tests, ensure quiet mode is off
	// so that all levels are written to the provided writer.
	quietMode.Store(false)
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       minLevel,
		ReplaceAttr: replaceLevelName,
	})
	defaultLogger.Store(slog.New(&LevelDispatchHandler{stdoutHandler: h, stderrHandler: h}))
}

// SetLevel sets the minimum level for the global logger.
func SetLevel(level slog.Level) {
	minLevel.Set(level)
}

// LevelFromString maps a level name to its slog level. Unknown names
// fall back to Info.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "notice":
		return LevelNotice
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// IsValidLevel reports whether s names one of the supported levels.
func IsValidLevel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "notice", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// SetQuiet enables or disables quiet mode for the global logger.
// In quiet mode, INFO level logs and below are suppressed.
func SetQuiet(quiet bool) {
	quietMode.Store(quiet)
}

// IsQuiet returns true if the global logger is in quiet mode.
func IsQuiet() bool {
	return quietMode.Load()
}

func log(level slog.Level, msg string, args ...any) {
	if level < LevelWarn && quietMode.Load() {
		return
	}
	defaultLogger.Load().Log(context.Background(), level, msg, args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) { log(LevelDebug, msg, args...) }

// Notice logs a per-item progress message.
func Notice(msg string, args ...any) { log(LevelNotice, msg, args...) }

// Info logs an informational message.
func Info(msg string, args ...any) { log(LevelInfo, msg, args...) }

// Warn logs a warning message.
func Warn(msg string, args ...any) { log(LevelWarn, msg, args...) }

// Error logs an error message.
func Error(msg string, args ...any) { log(LevelError, msg, args...) }
