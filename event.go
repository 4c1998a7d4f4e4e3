package sinklog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hyp3rd/ewrap"
)

const (
	// TimestampLayout is the serialized UtcTimestamp layout: millisecond
	// precision with the local zone offset.
	TimestampLayout = "2006-01-02T15:04:05.000-07:00"
	// Header is the first line of every log file.
	Header = "UtcTimestamp\tMicroseconds\tThreadId\tSourceProcess\tSource\tType\tMessage"

	columnCount = 7
)

// LogEvent is one structured log record. Events are built once per log call
// and treated as immutable afterwards; sinks that keep an event beyond the
// Write call must store a Clone.
type LogEvent struct {
	// Timestamp is the wall-clock instant the event was created.
	Timestamp time.Time
	// Microseconds is the monotonic offset since process start.
	Microseconds int64
	// Category holds the event's category bits.
	Category Category
	// Type is the label of the dominant category bit.
	Type string
	// SourceProcess identifies the emitting process.
	SourceProcess string
	// Source is the caller-supplied logical source name.
	Source string
	// ThreadID identifies the emitting OS thread.
	ThreadID int
	// Message is the free-text payload.
	Message string
}

// NewEvent builds an event stamped with the current instant.
func NewEvent(category Category, sourceProcess, source string, threadID int, message string) *LogEvent {
	return &LogEvent{
		Timestamp:     time.Now(),
		Microseconds:  Microseconds(),
		Category:      category,
		Type:          category.Label(),
		SourceProcess: sourceProcess,
		Source:        source,
		ThreadID:      threadID,
		Message:       message,
	}
}

// Clone returns an independent copy of the event.
func (e *LogEvent) Clone() *LogEvent {
	if e == nil {
		return nil
	}

	clone := *e

	return &clone
}

// ThreadIDHex formats the thread id as 0xHHHH, zero-padded to four digits.
func (e *LogEvent) ThreadIDHex() string {
	return fmt.Sprintf("0x%04x", e.ThreadID)
}

// Before reports whether e orders before other among events of the same process.
func (e *LogEvent) Before(other *LogEvent) bool {
	switch {
	case !e.Timestamp.Equal(other.Timestamp):
		return e.Timestamp.Before(other.Timestamp)
	case e.Microseconds != other.Microseconds:
		return e.Microseconds < other.Microseconds
	default:
		return e.ThreadID < other.ThreadID
	}
}

// Serialize renders the event as one tab-separated line without a trailing newline.
func (e *LogEvent) Serialize() string {
	var builder strings.Builder

	builder.Grow(len(e.Message) + len(e.Source) + len(e.SourceProcess) + 64)

	builder.WriteString(e.Timestamp.Local().Format(TimestampLayout))
	builder.WriteByte('\t')
	builder.WriteString(strconv.FormatInt(e.Microseconds, 10))
	builder.WriteByte('\t')
	builder.WriteString(e.ThreadIDHex())
	builder.WriteByte('\t')
	builder.WriteString(escapeField(e.SourceProcess))
	builder.WriteByte('\t')
	builder.WriteString(escapeField(e.Source))
	builder.WriteByte('\t')
	builder.WriteString(escapeField(e.Type))
	builder.WriteByte('\t')
	builder.WriteString(escapeField(e.Message))

	return builder.String()
}

// Parse reads one serialized line back into an event. The timestamp keeps
// millisecond precision only.
func Parse(line string) (*LogEvent, error) {
	line = strings.TrimRight(line, "\r\n")

	fields := strings.Split(line, "\t")
	if len(fields) != columnCount {
		return nil, ewrap.Wrapf(ErrMalformedLine, "expected %d columns", columnCount).
			WithMetadata("columns", len(fields))
	}

	timestamp, err := time.Parse(TimestampLayout, fields[0])
	if err != nil {
		return nil, ewrap.Wrap(ErrMalformedLine, "parsing timestamp").
			WithMetadata("value", fields[0]).
			WithMetadata("cause", err.Error())
	}

	micros, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, ewrap.Wrap(ErrMalformedLine, "parsing microseconds").
			WithMetadata("value", fields[1])
	}

	threadID, err := parseThreadID(fields[2])
	if err != nil {
		return nil, err
	}

	label := unescapeField(fields[5])

	category, err := CategoryFromLabel(label)
	if err != nil {
		return nil, ewrap.Wrap(ErrMalformedLine, "parsing type").
			WithMetadata("value", label)
	}

	return &LogEvent{
		Timestamp:     timestamp,
		Microseconds:  micros,
		Category:      category,
		Type:          label,
		SourceProcess: unescapeField(fields[3]),
		Source:        unescapeField(fields[4]),
		ThreadID:      threadID,
		Message:       unescapeField(fields[6]),
	}, nil
}

func parseThreadID(value string) (int, error) {
	hex, ok := strings.CutPrefix(value, "0x")
	if !ok {
		return 0, ewrap.Wrap(ErrMalformedLine, "thread id must start with 0x").
			WithMetadata("value", value)
	}

	id, err := strconv.ParseInt(hex, 16, 64)
	if err != nil {
		return 0, ewrap.Wrap(ErrMalformedLine, "parsing thread id").
			WithMetadata("value", value)
	}

	return int(id), nil
}

//nolint:gochecknoglobals // stateless replacers.
var (
	fieldEscaper   = strings.NewReplacer(`\`, `\\`, "\t", `\t`, "\n", `\n`, "\r", `\r`)
	fieldUnescaper = strings.NewReplacer(`\\`, `\`, `\t`, "\t", `\n`, "\n", `\r`, "\r")
)

func escapeField(value string) string {
	if !strings.ContainsAny(value, "\\\t\n\r") {
		return value
	}

	return fieldEscaper.Replace(value)
}

func unescapeField(value string) string {
	if !strings.Contains(value, `\`) {
		return value
	}

	return fieldUnescaper.Replace(value)
}
