package cmd_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulschiretz/pgl-copy/cmd"
	"github.com/paulschiretz/pgl-copy/pkg/config"
	"github.com/paulschiretz/pgl-copy/pkg/lockfile"
	"github.com/paulschiretz/pgl-copy/pkg/pathcopy"
	"github.com/paulschiretz/pgl-copy/pkg/plog"
)

// silenceLogs discards log output for the duration of the test.
func silenceLogs(t *testing.T) {
	t.Helper()
	plog.SetOutput(io.Discard)
	t.Cleanup(func() {
		plog.SetOutput(os.Stderr)
		plog.SetLevel(plog.LevelInfo)
		plog.SetQuiet(false)
	})
}

// writeFile creates path and its parents with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create parent of %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// execute runs the root command with args and returns its error.
func execute(t *testing.T, ctx context.Context, args ...string) error {
	t.Helper()
	root := cmd.NewRootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(ctx)
}

func TestExitCode(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{"Nil", nil, cmd.ExitOK},
		{"Configuration", &pathcopy.ConfigurationError{Reason: "bad"}, cmd.ExitConfiguration},
		{"Wrapped Configuration", fmt.Errorf("run: %w", &pathcopy.ConfigurationError{Reason: "bad"}), cmd.ExitConfiguration},
		{"Partial", fmt.Errorf("%w: 1 errors", pathcopy.ErrPartial), cmd.ExitPartial},
		{"Canceled", context.Canceled, cmd.ExitPartial},
		{"Other", errors.New("boom"), cmd.ExitPartial},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cmd.ExitCode(tc.err); got != tc.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestRootCommandCopy(t *testing.T) {
	silenceLogs(t)

	t.Run("Source Without Trailing Separator Is Nested", func(t *testing.T) {
		src := filepath.Join(t.TempDir(), "photos")
		writeFile(t, filepath.Join(src, "a.jpg"), "a")
		writeFile(t, filepath.Join(src, "2024", "b.jpg"), "b")
		dest := filepath.Join(t.TempDir(), "backup")

		if err := execute(t, context.Background(), "-j", "3", src, dest); err != nil {
			t.Fatalf("expected copy to succeed, got: %v", err)
		}
		got, err := os.ReadFile(filepath.Join(dest, "photos", "2024", "b.jpg"))
		if err != nil {
			t.Fatalf("expected nested file in destination: %v", err)
		}
		if string(got) != "b" {
			t.Errorf("expected content %q, got %q", "b", got)
		}
	})

	t.Run("Trailing Separator Copies Contents", func(t *testing.T) {
		src := t.TempDir()
		writeFile(t, filepath.Join(src, "a.txt"), "a")
		dest := filepath.Join(t.TempDir(), "out")

		if err := execute(t, context.Background(), src+string(filepath.Separator), dest); err != nil {
			t.Fatalf("expected copy to succeed, got: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dest, "a.txt")); err != nil {
			t.Errorf("expected a.txt directly inside destination: %v", err)
		}
	})

	t.Run("Multiple Sources", func(t *testing.T) {
		base := t.TempDir()
		one := filepath.Join(base, "one.txt")
		two := filepath.Join(base, "two")
		writeFile(t, one, "1")
		writeFile(t, filepath.Join(two, "inner.txt"), "2")
		dest := filepath.Join(t.TempDir(), "out")

		if err := execute(t, context.Background(), one, two, dest); err != nil {
			t.Fatalf("expected copy to succeed, got: %v", err)
		}
		for _, rel := range []string{"one.txt", filepath.Join("two", "inner.txt")} {
			if _, err := os.Stat(filepath.Join(dest, rel)); err != nil {
				t.Errorf("expected %s in destination: %v", rel, err)
			}
		}
	})

	t.Run("Dry Run Writes Nothing", func(t *testing.T) {
		src := t.TempDir()
		writeFile(t, filepath.Join(src, "a.txt"), "a")
		dest := filepath.Join(t.TempDir(), "out")

		if err := execute(t, context.Background(), "--dry-run", src, dest); err != nil {
			t.Fatalf("expected dry run to succeed, got: %v", err)
		}
		if _, err := os.Stat(dest); !os.IsNotExist(err) {
			t.Errorf("expected destination not to exist after dry run, got err=%v", err)
		}
	})

	t.Run("Destination Inside Source Is Rejected", func(t *testing.T) {
		src := t.TempDir()
		writeFile(t, filepath.Join(src, "a.txt"), "a")

		err := execute(t, context.Background(), src, filepath.Join(src, "nested"))
		if cmd.ExitCode(err) != cmd.ExitConfiguration {
			t.Fatalf("expected configuration error, got: %v", err)
		}
		if _, statErr := os.Stat(filepath.Join(src, "nested")); !os.IsNotExist(statErr) {
			t.Errorf("expected nothing to be written, got err=%v", statErr)
		}
	})

	t.Run("Destination Is A File", func(t *testing.T) {
		src := t.TempDir()
		writeFile(t, filepath.Join(src, "a.txt"), "a")
		destFile := filepath.Join(t.TempDir(), "file")
		writeFile(t, destFile, "x")

		err := execute(t, context.Background(), src, destFile)
		if !errors.Is(err, pathcopy.ErrConfiguration) {
			t.Errorf("expected configuration error, got: %v", err)
		}
	})

	t.Run("Destination In Use", func(t *testing.T) {
		src := t.TempDir()
		writeFile(t, filepath.Join(src, "a.txt"), "a")
		dest := filepath.Join(t.TempDir(), "out")

		lock, err := lockfile.New(lockfile.DefaultDir()).Acquire(context.Background(), dest, "other-run")
		if err != nil {
			t.Fatalf("failed to lock destination: %v", err)
		}
		defer lock.Release()

		err = execute(t, context.Background(), src, dest)
		if cmd.ExitCode(err) != cmd.ExitConfiguration {
			t.Errorf("expected configuration exit code for a locked destination, got err=%v", err)
		}
		if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
			t.Errorf("expected nothing to be written, got err=%v", statErr)
		}
	})

	t.Run("Metrics Textfile", func(t *testing.T) {
		src := t.TempDir()
		writeFile(t, filepath.Join(src, "a.txt"), "abc")
		dest := filepath.Join(t.TempDir(), "out")
		prom := filepath.Join(t.TempDir(), "pgl-copy.prom")

		if err := execute(t, context.Background(), "--metrics-textfile", prom, src, dest); err != nil {
			t.Fatalf("expected copy to succeed, got: %v", err)
		}
		data, err := os.ReadFile(prom)
		if err != nil {
			t.Fatalf("expected metrics textfile to be written: %v", err)
		}
		if !strings.Contains(string(data), "pglcopy_files_copied 1") {
			t.Errorf("expected files_copied gauge in textfile, got:\n%s", data)
		}
	})
}

func TestRootCommandConfigFile(t *testing.T) {
	silenceLogs(t)

	cfgPath := filepath.Join(t.TempDir(), "copy.json")
	cfg := config.NewDefault()
	cfg.Performance.BufferSizeKB = -1
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("failed to marshal config: %v", err)
	}
	writeFile(t, cfgPath, string(data))

	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "a")
	dest := filepath.Join(t.TempDir(), "out")

	t.Run("Invalid File Value Is A Configuration Error", func(t *testing.T) {
		err := execute(t, context.Background(), "--config", cfgPath, src, dest)
		if cmd.ExitCode(err) != cmd.ExitConfiguration {
			t.Errorf("expected configuration exit code, got err=%v", err)
		}
	})

	t.Run("Flag Overrides File Value", func(t *testing.T) {
		err := execute(t, context.Background(), "--config", cfgPath, "--buffer-size-kb", "64", src, dest)
		if err != nil {
			t.Errorf("expected flag to override invalid file value, got: %v", err)
		}
	})

	t.Run("Missing File", func(t *testing.T) {
		err := execute(t, context.Background(), "--config", filepath.Join(t.TempDir(), "none.json"), src, dest)
		if cmd.ExitCode(err) != cmd.ExitConfiguration {
			t.Errorf("expected configuration exit code, got err=%v", err)
		}
	})
}

func TestInitCommand(t *testing.T) {
	silenceLogs(t)

	t.Run("Writes Config With Flags Applied", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pgl-copy.yaml")
		if err := execute(t, context.Background(), "init", "-j", "7", "--buffer-size-kb", "512", path); err != nil {
			t.Fatalf("expected init to succeed, got: %v", err)
		}
		loaded, err := config.Load(path)
		if err != nil {
			t.Fatalf("expected generated config to load, got: %v", err)
		}
		if loaded.Performance.Workers != 7 {
			t.Errorf("expected workers 7, got %d", loaded.Performance.Workers)
		}
		if loaded.Performance.BufferSizeKB != 512 {
			t.Errorf("expected bufferSizeKB 512, got %d", loaded.Performance.BufferSizeKB)
		}
	})

	t.Run("Force Overwrites Existing File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pgl-copy.json")
		writeFile(t, path, "{}")
		if err := execute(t, context.Background(), "init", "--force", "-j", "3", path); err != nil {
			t.Fatalf("expected init --force to succeed, got: %v", err)
		}
		loaded, err := config.Load(path)
		if err != nil {
			t.Fatalf("expected generated config to load, got: %v", err)
		}
		if loaded.Performance.Workers != 3 {
			t.Errorf("expected workers 3, got %d", loaded.Performance.Workers)
		}
	})

	t.Run("Rejects Invalid Values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pgl-copy.json")
		err := execute(t, context.Background(), "init", "-j", "-1", path)
		if cmd.ExitCode(err) != cmd.ExitConfiguration {
			t.Errorf("expected configuration exit code, got err=%v", err)
		}
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			t.Errorf("expected no file to be written, got err=%v", statErr)
		}
	})
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := cmd.NewRootCommand()
	root.SetArgs([]string{"version"})
	root.SetOut(&out)
	if err := root.Execute(); err != nil {
		t.Fatalf("expected version to succeed, got: %v", err)
	}
	if !strings.Contains(out.String(), "PGL-Copy version") {
		t.Errorf("unexpected version output: %q", out.String())
	}
}
