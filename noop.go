package sinklog

// NopSink is a sink that accepts every event and stores nothing.
type NopSink struct{}

// NewNop creates a new NopSink.
func NewNop() Sink {
	return NopSink{}
}

// Ensure NopSink implements Sink interface.
var _ Sink = NopSink{}

// Write discards event.
func (NopSink) Write(_ *LogEvent) bool { return true }

// WriteBatch discards events and reports all of them written.
func (NopSink) WriteBatch(events []*LogEvent) int { return len(events) }
