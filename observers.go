package sinklog

import (
	"sync"
	"time"
)

// Status is a lifecycle state reported by the supervisor.
type Status uint8

const (
	// StatusInitialized reports a successful initialization.
	StatusInitialized Status = iota + 1
	// StatusInitializationFailed reports a failed initialization; the change carries the cause.
	StatusInitializationFailed
	// StatusShutDown reports a completed shutdown.
	StatusShutDown
	// StatusShutdownFailed reports a shutdown where at least one sink failed to close.
	StatusShutdownFailed
	// StatusUnhealthy reports a failed health check.
	StatusUnhealthy
	// StatusHealthy reports a passing health check after an unhealthy one.
	StatusHealthy
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusInitialized:
		return "Initialized"
	case StatusInitializationFailed:
		return "InitializationFailed"
	case StatusShutDown:
		return "ShutDown"
	case StatusShutdownFailed:
		return "ShutdownFailed"
	case StatusUnhealthy:
		return "Unhealthy"
	case StatusHealthy:
		return "Healthy"
	default:
		return "Unknown"
	}
}

// StatusChange describes one status transition.
type StatusChange struct {
	Status Status
	Err    error
	Time   time.Time
}

// StatusHandler receives status transitions.
type StatusHandler func(change StatusChange)

// SinkErrorHandler receives failures raised by a single sink during fan-out.
type SinkErrorHandler func(sink Sink, event *LogEvent, err error)

// Observers holds the callbacks notified by the dispatcher and supervisor.
// Handlers run synchronously on the emitting goroutine; a handler that panics
// is skipped so it cannot disrupt the emitter or the remaining handlers.
type Observers struct {
	mu         sync.RWMutex
	status     []StatusHandler
	sinkErrors []SinkErrorHandler
}

// NewObservers creates an empty observer set.
func NewObservers() *Observers {
	return &Observers{}
}

// OnStatus registers a status handler. Nil handlers are ignored.
func (o *Observers) OnStatus(handler StatusHandler) {
	if o == nil || handler == nil {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.status = append(o.status, handler)
}

// OnSinkError registers a sink-error handler. Nil handlers are ignored.
func (o *Observers) OnSinkError(handler SinkErrorHandler) {
	if o == nil || handler == nil {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.sinkErrors = append(o.sinkErrors, handler)
}

// Reset removes every registered handler.
func (o *Observers) Reset() {
	if o == nil {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.status = nil
	o.sinkErrors = nil
}

// NotifyStatus delivers a status change to every status handler.
func (o *Observers) NotifyStatus(status Status, err error) {
	if o == nil {
		return
	}

	change := StatusChange{Status: status, Err: err, Time: time.Now()}

	for _, handler := range o.statusSnapshot() {
		invokeSafely(func() { handler(change) })
	}
}

// NotifySinkError delivers a sink failure to every sink-error handler and
// reports whether there was at least one.
func (o *Observers) NotifySinkError(sink Sink, event *LogEvent, err error) bool {
	if o == nil {
		return false
	}

	handlers := o.sinkErrorSnapshot()

	for _, handler := range handlers {
		invokeSafely(func() { handler(sink, event, err) })
	}

	return len(handlers) > 0
}

func (o *Observers) statusSnapshot() []StatusHandler {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if len(o.status) == 0 {
		return nil
	}

	clone := make([]StatusHandler, len(o.status))
	copy(clone, o.status)

	return clone
}

func (o *Observers) sinkErrorSnapshot() []SinkErrorHandler {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if len(o.sinkErrors) == 0 {
		return nil
	}

	clone := make([]SinkErrorHandler, len(o.sinkErrors))
	copy(clone, o.sinkErrors)

	return clone
}

func invokeSafely(fn func()) {
	defer func() {
		_ = recover() //nolint:errcheck // observer failures are swallowed.
	}()

	fn()
}
