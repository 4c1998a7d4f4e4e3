package sinklog

import (
	"fmt"
	"net/http"
)

// SinkStats is a point-in-time snapshot of file sink counters.
type SinkStats struct {
	Written            uint64
	Failed             uint64
	Retried            uint64
	Rotations          uint64
	Compressed         uint64
	CompressionFailed  uint64
	FilesDeleted       uint64
	CleanupRuns        uint64
	CompressionPending int
}

// Add returns the field-wise sum of s and other.
func (s SinkStats) Add(other SinkStats) SinkStats {
	return SinkStats{
		Written:            s.Written + other.Written,
		Failed:             s.Failed + other.Failed,
		Retried:            s.Retried + other.Retried,
		Rotations:          s.Rotations + other.Rotations,
		Compressed:         s.Compressed + other.Compressed,
		CompressionFailed:  s.CompressionFailed + other.CompressionFailed,
		FilesDeleted:       s.FilesDeleted + other.FilesDeleted,
		CleanupRuns:        s.CleanupRuns + other.CleanupRuns,
		CompressionPending: s.CompressionPending + other.CompressionPending,
	}
}

// StatsSource is anything that can report SinkStats.
type StatsSource interface {
	Stats() SinkStats
}

// StatsExporter exposes sink counters via a Prometheus-style HTTP handler.
type StatsExporter struct {
	source StatsSource
}

// NewStatsExporter creates an exporter reading from source on every scrape.
func NewStatsExporter(source StatsSource) *StatsExporter {
	return &StatsExporter{source: source}
}

// ServeHTTP renders the counters using Prometheus exposition format.
func (e *StatsExporter) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	var stats SinkStats
	if e.source != nil {
		stats = e.source.Stats()
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "sinklog_events_written_total", "counter", "Total events appended to log files", stats.Written)
	writeMetric(w, "sinklog_events_failed_total", "counter", "Total events dropped after retries", stats.Failed)
	writeMetric(w, "sinklog_write_retries_total", "counter", "Total write retries", stats.Retried)
	writeMetric(w, "sinklog_rotations_total", "counter", "Total log file rotations", stats.Rotations)
	writeMetric(w, "sinklog_compressed_total", "counter", "Total files compressed", stats.Compressed)
	writeMetric(w, "sinklog_compression_failures_total", "counter", "Total failed compressions",
		stats.CompressionFailed)
	writeMetric(w, "sinklog_files_deleted_total", "counter", "Total files removed by retention", stats.FilesDeleted)
	writeMetric(w, "sinklog_cleanup_runs_total", "counter", "Total retention cleanups executed", stats.CleanupRuns)
	writeMetric(w, "sinklog_compression_pending", "gauge", "Closed files waiting for compression",
		uint64(max(stats.CompressionPending, 0)))
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value uint64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n", name, value)
}
