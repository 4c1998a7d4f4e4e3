package sinklog

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fixedStats SinkStats

func (f fixedStats) Stats() SinkStats { return SinkStats(f) }

func TestStatsExporter(t *testing.T) {
	exporter := NewStatsExporter(fixedStats{
		Written:            10,
		Failed:             2,
		Retried:            1,
		Rotations:          3,
		Compressed:         3,
		CompressionFailed:  1,
		FilesDeleted:       4,
		CleanupRuns:        5,
		CompressionPending: 1,
	})

	rec := httptest.NewRecorder()
	exporter.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()

	for _, metric := range []string{
		"sinklog_events_written_total 10",
		"sinklog_events_failed_total 2",
		"sinklog_write_retries_total 1",
		"sinklog_rotations_total 3",
		"sinklog_compressed_total 3",
		"sinklog_compression_failures_total 1",
		"sinklog_files_deleted_total 4",
		"sinklog_cleanup_runs_total 5",
		"sinklog_compression_pending 1",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected response to contain %q, got %q", metric, body)
		}
	}
}

func TestStatsExporterWithoutSource(t *testing.T) {
	rec := httptest.NewRecorder()
	NewStatsExporter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Contains(t, rec.Body.String(), "sinklog_events_written_total 0")
}

func TestSinkStatsAdd(t *testing.T) {
	sum := SinkStats{Written: 1, Rotations: 2}.Add(SinkStats{Written: 3, FilesDeleted: 1})

	assert.Equal(t, SinkStats{Written: 4, Rotations: 2, FilesDeleted: 1}, sum)
}
