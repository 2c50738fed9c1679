package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulschiretz/pgl-copy/cmd"
	"github.com/paulschiretz/pgl-copy/pkg/plog"
)

func TestRunExitCodes(t *testing.T) {
	plog.SetOutput(io.Discard)
	t.Cleanup(func() {
		plog.SetOutput(os.Stderr)
		plog.SetLevel(plog.LevelInfo)
	})

	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0644); err != nil {
		t.Fatalf("failed to create source file: %v", err)
	}
	dest := filepath.Join(t.TempDir(), "out")

	testCases := []struct {
		name string
		args []string
		want int
	}{
		{"Success", []string{"-j", "2", src, dest}, cmd.ExitOK},
		{"Missing Arguments", []string{src}, cmd.ExitConfiguration},
		{"Missing Source", []string{filepath.Join(src, "nope"), dest}, cmd.ExitConfiguration},
		{"Invalid Log Level", []string{"--log-level", "loud", src, dest}, cmd.ExitConfiguration},
		{"Version", []string{"version"}, cmd.ExitOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := run(context.Background(), tc.args); got != tc.want {
				t.Errorf("run(%v) = %d, want %d", tc.args, got, tc.want)
			}
		})
	}

	t.Run("Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if got := run(ctx, []string{src, filepath.Join(t.TempDir(), "out")}); got != cmd.ExitPartial {
			t.Errorf("expected exit code %d for a canceled run, got %d", cmd.ExitPartial, got)
		}
	})
}
