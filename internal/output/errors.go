package output

import (
	"github.com/hyp3rd/ewrap"
)

// Common errors for the output package.
var (
	// ErrQueueClosed is returned when submitting work to a closed task queue.
	ErrQueueClosed = ewrap.New("task queue is closed")

	// ErrQueueFull is returned when the task queue has no free slot.
	ErrQueueFull = ewrap.New("task queue is full")

	// ErrDrainTimeout is returned when queued work does not finish in time.
	ErrDrainTimeout = ewrap.New("background work did not finish in time")

	// ErrCompressionFailed is returned when a compression operation fails.
	ErrCompressionFailed = ewrap.New("compression failed")

	// ErrSequenceExhausted is returned when no usable file sequence number is left for a day.
	ErrSequenceExhausted = ewrap.New("no free log file sequence number")
)
