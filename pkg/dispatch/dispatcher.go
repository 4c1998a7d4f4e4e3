package dispatch

import (
	"fmt"
	"sync/atomic"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/sinklog"
)

const selfSource = "sinklog.dispatch"

// Dispatcher builds log events and delivers them to every registered sink.
type Dispatcher struct {
	registry  *Registry
	observers *sinklog.Observers
	fallback  func(error)
	enabled   atomic.Uint32
	process   string
	threadID  func() int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObservers routes sink failures to the given observers.
func WithObservers(observers *sinklog.Observers) Option {
	return func(d *Dispatcher) {
		d.observers = observers
	}
}

// WithErrorHandler receives sink failures that no OnSinkError handler
// observed (default sinklog.ReportError).
func WithErrorHandler(handler func(error)) Option {
	return func(d *Dispatcher) {
		if handler != nil {
			d.fallback = handler
		}
	}
}

// WithCategories sets the initial global category mask.
func WithCategories(categories sinklog.Category) Option {
	return func(d *Dispatcher) {
		d.enabled.Store(uint32(categories))
	}
}

// WithProcessIdentity overrides the SourceProcess stamped on events.
func WithProcessIdentity(identity string) Option {
	return func(d *Dispatcher) {
		d.process = identity
	}
}

// New creates a dispatcher over registry. A nil registry gets a fresh one.
// The global mask defaults to sinklog.CategoryAll.
func New(registry *Registry, opts ...Option) *Dispatcher {
	if registry == nil {
		registry = NewRegistry()
	}

	d := &Dispatcher{
		registry: registry,
		fallback: sinklog.ReportError,
		process:  sinklog.ProcessIdentity(),
		threadID: sinklog.CurrentThreadID,
	}

	d.enabled.Store(uint32(sinklog.CategoryAll))

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Registry returns the registry the dispatcher delivers to.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// AddSink registers sink. Adding a sink twice is a no-op reported as a
// debug event.
func (d *Dispatcher) AddSink(sink sinklog.Sink) bool {
	if d.registry.Add(sink) {
		return true
	}

	if sink != nil {
		d.Writef(sinklog.CategoryDebug, selfSource, "sink %T is already registered", sink)
	}

	return false
}

// RemoveSink unregisters sink.
func (d *Dispatcher) RemoveSink(sink sinklog.Sink) bool {
	return d.registry.Remove(sink)
}

// SetEnabled replaces the global category mask.
func (d *Dispatcher) SetEnabled(categories sinklog.Category) {
	d.enabled.Store(uint32(categories))
}

// Enabled returns the global category mask.
func (d *Dispatcher) Enabled() sinklog.Category {
	return sinklog.Category(d.enabled.Load())
}

// IsEnabled reports whether any bit of category passes the global mask.
func (d *Dispatcher) IsEnabled(category sinklog.Category) bool {
	return category&d.Enabled() != 0
}

// Write logs message from source under category on the calling thread.
func (d *Dispatcher) Write(category sinklog.Category, source, message string) {
	if !d.IsEnabled(category) {
		return
	}

	d.Deliver(sinklog.NewEvent(category, d.process, source, d.threadID(), message))
}

// Writef formats and logs a message. Formatting is skipped when category
// is disabled.
func (d *Dispatcher) Writef(category sinklog.Category, source, format string, args ...any) {
	if !d.IsEnabled(category) {
		return
	}

	d.Deliver(sinklog.NewEvent(category, d.process, source, d.threadID(), fmt.Sprintf(format, args...)))
}

// WriteThread logs message attributed to an explicit thread id.
func (d *Dispatcher) WriteThread(category sinklog.Category, source string, threadID int, message string) {
	if !d.IsEnabled(category) {
		return
	}

	d.Deliver(sinklog.NewEvent(category, d.process, source, threadID, message))
}

// Deliver hands event to every registered sink in registration order and
// returns how many sinks accepted and how many failed. The global mask is
// not consulted.
func (d *Dispatcher) Deliver(event *sinklog.LogEvent) (int, int) {
	delivered, failed := 0, 0

	for _, sink := range d.registry.Snapshot() {
		err := d.deliverTo(sink, event)
		if err != nil {
			failed++

			d.reportSinkError(sink, event, err)

			continue
		}

		delivered++
	}

	return delivered, failed
}

// Flush flushes every registered sink that buffers output.
func (d *Dispatcher) Flush() error {
	errorGroup := ewrap.NewErrorGroup()

	for _, sink := range d.registry.Snapshot() {
		flusher, ok := sink.(sinklog.Flusher)
		if !ok {
			continue
		}

		err := flusher.Flush()
		if err != nil {
			errorGroup.Add(ewrap.Wrap(err, "flushing sink").WithMetadata("sink", fmt.Sprintf("%T", sink)))
		}
	}

	if errorGroup.HasErrors() {
		return errorGroup
	}

	return nil
}

func (d *Dispatcher) deliverTo(sink sinklog.Sink, event *sinklog.LogEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ewrap.Wrap(sinklog.ErrSinkPanic, "delivering event").
				WithMetadata("sink", fmt.Sprintf("%T", sink)).
				WithMetadata("panic", fmt.Sprint(r))
		}
	}()

	if !sink.Write(event) {
		return ewrap.Wrap(sinklog.ErrSinkRejected, "delivering event").
			WithMetadata("sink", fmt.Sprintf("%T", sink))
	}

	return nil
}

func (d *Dispatcher) reportSinkError(sink sinklog.Sink, event *sinklog.LogEvent, err error) {
	if d.observers.NotifySinkError(sink, event, err) {
		return
	}

	d.fallback(err)
}
