package output

import (
	"sync"

	"github.com/hyp3rd/sinklog"
)

const defaultMemoryCapacity = 1000

// MemorySink keeps the most recent events in a fixed-size ring buffer.
// Events are cloned on the way in and on the way out.
type MemorySink struct {
	sinklog.CategoryFilter

	mu     sync.RWMutex
	events []*sinklog.LogEvent
	next   int
	full   bool
}

// NewMemorySink creates a ring buffer holding up to capacity events
// (defaultMemoryCapacity when capacity <= 0).
func NewMemorySink(capacity int, categories sinklog.Category) *MemorySink {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}

	return &MemorySink{
		CategoryFilter: sinklog.CategoryFilter{EnabledCategories: categories},
		events:         make([]*sinklog.LogEvent, capacity),
	}
}

// Write stores a copy of event, evicting the oldest one when full.
func (m *MemorySink) Write(event *sinklog.LogEvent) bool {
	if event == nil {
		return false
	}

	if !m.Accepts(event) {
		return true
	}

	m.mu.Lock()
	m.store(event)
	m.mu.Unlock()

	return true
}

// WriteBatch stores copies of the accepted events.
func (m *MemorySink) WriteBatch(events []*sinklog.LogEvent) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	written := 0

	for _, event := range events {
		if event != nil && m.Accepts(event) {
			m.store(event)
			written++
		}
	}

	return written
}

// Events returns copies of the buffered events, oldest first.
func (m *MemorySink) Events() []*sinklog.LogEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ordered []*sinklog.LogEvent
	if m.full {
		ordered = append(ordered, m.events[m.next:]...)
	}

	ordered = append(ordered, m.events[:m.next]...)

	out := make([]*sinklog.LogEvent, 0, len(ordered))
	for _, event := range ordered {
		out = append(out, event.Clone())
	}

	return out
}

// Len returns the number of buffered events.
func (m *MemorySink) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.full {
		return len(m.events)
	}

	return m.next
}

// Clear drops every buffered event.
func (m *MemorySink) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.events)
	m.next = 0
	m.full = false
}

func (m *MemorySink) store(event *sinklog.LogEvent) {
	m.events[m.next] = event.Clone()
	m.next++

	if m.next == len(m.events) {
		m.next = 0
		m.full = true
	}
}
