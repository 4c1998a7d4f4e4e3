package sinklog

import (
	"github.com/hyp3rd/ewrap"
)

// Common errors shared by the sinklog packages.
var (
	// ErrInvalidCategory is returned when a category name or label is unknown.
	ErrInvalidCategory = ewrap.New("invalid category")

	// ErrMalformedLine is returned when a serialized event cannot be parsed.
	ErrMalformedLine = ewrap.New("malformed log line")

	// ErrEmptyAppName is returned when settings carry no application name.
	ErrEmptyAppName = ewrap.New("application name cannot be empty")

	// ErrEmptyDirectory is returned when settings carry no log directory.
	ErrEmptyDirectory = ewrap.New("log directory cannot be empty")

	// ErrInvalidPath is returned when an application name or directory cannot be used as a path.
	ErrInvalidPath = ewrap.New("invalid log path")

	// ErrSinkClosed is returned when writing to a sink that has been disposed.
	ErrSinkClosed = ewrap.New("sink is closed")

	// ErrSinkRejected reports a sink whose Write returned false.
	ErrSinkRejected = ewrap.New("sink rejected event")

	// ErrSinkPanic reports a sink whose Write panicked.
	ErrSinkPanic = ewrap.New("sink panicked")
)
