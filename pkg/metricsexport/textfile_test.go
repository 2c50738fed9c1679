package metricsexport

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/paulschiretz/pgl-copy/pkg/pathcopy"
)

func sampleResult() *pathcopy.Result {
	return &pathcopy.Result{
		RunID:     "3f1c",
		Processed: 12,
		Errors:    []pathcopy.ErrorEvent{{Message: "Failed to copy file", Path: "/src/x", Err: errors.New("boom")}},
		Metrics: pathcopy.MetricsSnapshot{
			FilesCopied:  9,
			DirsCreated:  2,
			DirsScanned:  3,
			BytesWritten: 4096,
		},
		Duration: 1500 * time.Millisecond,
	}
}

func TestGatherer(t *testing.T) {
	g := Gatherer(sampleResult(), time.Unix(1700000000, 0))

	expected := `
# HELP pglcopy_files_copied Files copied in the last run.
# TYPE pglcopy_files_copied gauge
pglcopy_files_copied 9
# HELP pglcopy_errors Error events reported in the last run.
# TYPE pglcopy_errors gauge
pglcopy_errors 1
# HELP pglcopy_last_run_info Identifier of the last run.
# TYPE pglcopy_last_run_info gauge
pglcopy_last_run_info{run_id="3f1c"} 1
`
	err := testutil.GatherAndCompare(g, strings.NewReader(expected),
		"pglcopy_files_copied", "pglcopy_errors", "pglcopy_last_run_info")
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(g)
	require.NoError(t, err)
	require.Equal(t, 9, count)
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pgl-copy.prom")

	require.NoError(t, WriteTextfile(path, sampleResult(), time.Unix(1700000000, 0)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "pglcopy_bytes_written 4096")
	require.Contains(t, string(data), "pglcopy_duration_seconds 1.5")
	require.Contains(t, string(data), "pglcopy_last_run_timestamp_seconds 1.7e+09")

	err = WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"), sampleResult(), time.Now())
	require.Error(t, err)
}
