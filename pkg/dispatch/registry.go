// Package dispatch fans log events out to a set of sinks.
//
// A Registry holds the active sinks. A Dispatcher builds one event per call
// and delivers it to a snapshot of the registry, so sinks doing slow I/O
// never hold the registry lock and one failing sink never stops delivery to
// the others.
package dispatch

import (
	"reflect"
	"slices"
	"sync"

	"github.com/hyp3rd/sinklog"
)

// Registry is a thread-safe ordered set of sinks.
type Registry struct {
	mu    sync.RWMutex
	sinks []sinklog.Sink
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers sink. It returns false when sink is nil or already present.
func (r *Registry) Add(sink sinklog.Sink) bool {
	if sink == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexLocked(sink) >= 0 {
		return false
	}

	r.sinks = append(r.sinks, sink)

	return true
}

// Remove unregisters sink and reports whether it was present.
func (r *Registry) Remove(sink sinklog.Sink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(sink)
	if idx < 0 {
		return false
	}

	r.sinks = slices.Delete(r.sinks, idx, idx+1)

	return true
}

// Clear unregisters every sink and returns them in registration order.
func (r *Registry) Clear() []sinklog.Sink {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := r.sinks
	r.sinks = nil

	return removed
}

// Snapshot returns a point-in-time copy of the registered sinks.
func (r *Registry) Snapshot() []sinklog.Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.sinks)
}

// Count returns the number of registered sinks. The value may be stale as
// soon as it is returned.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sinks)
}

func (r *Registry) indexLocked(sink sinklog.Sink) int {
	if sink == nil {
		return -1
	}

	// Interface comparison panics on non-comparable dynamic types; such
	// sinks can only match themselves by position, so they never collide.
	if !reflect.TypeOf(sink).Comparable() {
		return -1
	}

	return slices.IndexFunc(r.sinks, func(existing sinklog.Sink) bool {
		return reflect.TypeOf(existing).Comparable() && existing == sink
	})
}
