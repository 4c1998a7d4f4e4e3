package output

import (
	"bytes"
	"io"
	"os"
	"sync"
	"syscall"

	"github.com/hyp3rd/ewrap"
	"github.com/mattn/go-isatty"

	"github.com/hyp3rd/sinklog"
)

const (
	consoleTimeLayout = "15:04:05.000"
	defaultBufferSize = 256
)

// ColorMode determines how colors are handled in console output.
type ColorMode int

const (
	// ColorModeAuto detects if the output supports colors.
	ColorModeAuto ColorMode = iota
	// ColorModeAlways forces color output.
	ColorModeAlways
	// ColorModeNever disables color output.
	ColorModeNever
)

// ConsoleSink writes one human-readable line per event:
//
//	HH:MM:SS.mmm [Type] source: message
//
// wrapped in the color of the event's dominant category when colors are on.
type ConsoleSink struct {
	sinklog.CategoryFilter

	out        io.Writer
	mode       ColorMode
	isTerminal bool
	colors     map[sinklog.Category]string
	buffer     *bytes.Buffer
	mu         sync.Mutex
}

// NewConsoleSink creates a console sink. A nil out defaults to os.Stdout.
func NewConsoleSink(out io.Writer, mode ColorMode, categories sinklog.Category) *ConsoleSink {
	if out == nil {
		out = os.Stdout
	}

	return &ConsoleSink{
		CategoryFilter: sinklog.CategoryFilter{EnabledCategories: categories},
		out:            out,
		mode:           mode,
		isTerminal:     IsTerminal(out),
		colors:         sinklog.DefaultCategoryColors(),
		buffer:         bytes.NewBuffer(make([]byte, 0, defaultBufferSize)),
	}
}

// Write prints the event. Filtered events are accepted without output.
func (c *ConsoleSink) Write(event *sinklog.LogEvent) bool {
	if !c.Accepts(event) {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.writeLocked(event)
}

// WriteBatch prints events in order and returns how many were printed.
func (c *ConsoleSink) WriteBatch(events []*sinklog.LogEvent) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	written := 0

	for _, event := range events {
		if c.Accepts(event) && c.writeLocked(event) {
			written++
		}
	}

	return written
}

// Flush syncs the underlying writer when it supports it. Standard streams
// are skipped since syncing a terminal fails on most platforms.
func (c *ConsoleSink) Flush() error {
	if f, ok := c.out.(*os.File); ok && (f == os.Stdout || f == os.Stderr) {
		return nil
	}

	if syncer, ok := c.out.(interface{ Sync() error }); ok {
		err := syncer.Sync()
		if err != nil {
			return ewrap.Wrap(err, "syncing console output")
		}
	}

	return nil
}

func (c *ConsoleSink) writeLocked(event *sinklog.LogEvent) bool {
	c.buffer.Reset()

	color := ""
	if c.shouldUseColors() {
		color = sinklog.ColorFor(c.colors, event.Category)
	}

	c.buffer.WriteString(color)
	c.buffer.WriteString(event.Timestamp.Local().Format(consoleTimeLayout))
	c.buffer.WriteString(" [")
	c.buffer.WriteString(event.Type)
	c.buffer.WriteString("] ")
	c.buffer.WriteString(event.Source)
	c.buffer.WriteString(": ")
	c.buffer.WriteString(event.Message)

	if color != "" {
		c.buffer.WriteString(sinklog.Reset)
	}

	c.buffer.WriteByte('\n')

	_, err := c.out.Write(c.buffer.Bytes())

	return err == nil
}

//nolint:exhaustive // ColorModeAuto is handled as default.
func (c *ConsoleSink) shouldUseColors() bool {
	switch c.mode {
	case ColorModeAlways:
		return true
	case ColorModeNever:
		return false
	default:
		return c.isTerminal
	}
}

// IsTerminal reports whether w is the process's stdout or stderr attached to
// a terminal.
func IsTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		if f.Fd() == uintptr(syscall.Stdout) || f.Fd() == uintptr(syscall.Stderr) {
			return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}

	return false
}
