package sinklog

// Sink is a destination that records log events. Implementations must be
// safe for concurrent use and must never panic or block indefinitely.
type Sink interface {
	// Write records one event. It returns false only when the event could not
	// be recorded; events filtered out by the sink's categories return true.
	Write(event *LogEvent) bool
	// WriteBatch records events in order and returns how many were written.
	WriteBatch(events []*LogEvent) int
}

// Flusher is implemented by sinks that buffer output.
type Flusher interface {
	Flush() error
}

// CategoryFilter holds the categories a sink accepts. Sinks embed it to share
// the filtering rule.
type CategoryFilter struct {
	EnabledCategories Category
}

// Accepts reports whether the event passes the filter.
func (f CategoryFilter) Accepts(event *LogEvent) bool {
	return event != nil && event.Category&f.EnabledCategories != 0
}
