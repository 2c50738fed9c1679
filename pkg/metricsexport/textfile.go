// Package metricsexport writes the result of a copy run in the Prometheus
// text format, for node_exporter's textfile collector.
package metricsexport

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/paulschiretz/pgl-copy/pkg/pathcopy"
)

const namespace = "pglcopy"

// Gatherer builds a private registry holding the gauges of one finished run.
func Gatherer(res *pathcopy.Result, finishedAt time.Time) prometheus.Gatherer {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	gauge := func(name, help string, v float64) {
		factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}).Set(v)
	}

	m := res.Metrics
	gauge("entries_processed", "Entries taken off the work stack in the last run, failed ones included.", float64(res.Processed))
	gauge("errors", "Error events reported in the last run.", float64(len(res.Errors)))
	gauge("files_copied", "Files copied in the last run.", float64(m.FilesCopied))
	gauge("dirs_created", "Destination directories created in the last run.", float64(m.DirsCreated))
	gauge("dirs_scanned", "Source directories scanned in the last run.", float64(m.DirsScanned))
	gauge("bytes_written", "Bytes written in the last run.", float64(m.BytesWritten))
	gauge("duration_seconds", "Wall-clock duration of the last run.", res.Duration.Seconds())
	gauge("last_run_timestamp_seconds", "Unix time the last run finished.", float64(finishedAt.Unix()))

	factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_info",
		Help:      "Identifier of the last run.",
	}, []string{"run_id"}).WithLabelValues(res.RunID).Set(1)

	return reg
}

// WriteTextfile writes the metrics of res to path. The file is written to a
// temporary name and renamed, so a collector never reads a partial file.
func WriteTextfile(path string, res *pathcopy.Result, finishedAt time.Time) error {
	if err := prometheus.WriteToTextfile(path, Gatherer(res, finishedAt)); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
