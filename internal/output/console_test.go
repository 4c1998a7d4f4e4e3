package output

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyp3rd/sinklog"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestConsoleSink_PlainLine(t *testing.T) {
	var buf bytes.Buffer

	sink := NewConsoleSink(&buf, ColorModeNever, sinklog.CategoryAll)

	require.True(t, sink.Write(eventAt(time.Now(), sinklog.CategoryError, "disk full")))

	pattern := regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{3} \[Error\] unit: disk full\n$`)
	assert.Regexp(t, pattern, buf.String())
}

func TestConsoleSink_ColorsByCategory(t *testing.T) {
	tests := []struct {
		name     string
		category sinklog.Category
		color    string
	}{
		{name: "error", category: sinklog.CategoryError, color: sinklog.BoldRed},
		{name: "warning", category: sinklog.CategoryWarning, color: sinklog.BoldYellow},
		{name: "debug", category: sinklog.CategoryDebug, color: sinklog.Cyan},
		{name: "dominant bit wins", category: sinklog.CategoryError | sinklog.CategoryDebug, color: sinklog.BoldRed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			sink := NewConsoleSink(&buf, ColorModeAlways, sinklog.CategoryAll)
			require.True(t, sink.Write(eventAt(time.Now(), tt.category, "msg")))

			line := buf.String()
			assert.True(t, strings.HasPrefix(line, tt.color))
			assert.True(t, strings.HasSuffix(line, sinklog.Reset+"\n"))
		})
	}
}

func TestConsoleSink_AutoModeOnBufferHasNoColor(t *testing.T) {
	var buf bytes.Buffer

	sink := NewConsoleSink(&buf, ColorModeAuto, sinklog.CategoryAll)
	require.True(t, sink.Write(eventAt(time.Now(), sinklog.CategoryError, "msg")))

	assert.NotContains(t, buf.String(), "\x1b[")
	assert.False(t, IsTerminal(&buf))
}

func TestConsoleSink_FilterAndBatch(t *testing.T) {
	var buf bytes.Buffer

	sink := NewConsoleSink(&buf, ColorModeNever, sinklog.CategoryError)

	assert.True(t, sink.Write(eventAt(time.Now(), sinklog.CategoryDebug, "hidden")))
	assert.Empty(t, buf.String())

	written := sink.WriteBatch([]*sinklog.LogEvent{
		eventAt(time.Now(), sinklog.CategoryError, "a"),
		eventAt(time.Now(), sinklog.CategoryTrace, "b"),
		eventAt(time.Now(), sinklog.CategoryError, "c"),
	})

	assert.Equal(t, 2, written)
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))
	assert.NoError(t, sink.Flush())
}

func TestConsoleSink_WriteFailureReturnsFalse(t *testing.T) {
	sink := NewConsoleSink(failingWriter{}, ColorModeNever, sinklog.CategoryAll)

	assert.False(t, sink.Write(eventAt(time.Now(), sinklog.CategoryError, "x")))
}
