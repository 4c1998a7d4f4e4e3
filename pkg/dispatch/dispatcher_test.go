package dispatch

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyp3rd/sinklog"
	"github.com/hyp3rd/sinklog/internal/output"
)

type countingSink struct {
	calls atomic.Int32
	ok    bool
}

func (c *countingSink) Write(*sinklog.LogEvent) bool {
	c.calls.Add(1)

	return c.ok
}

func (c *countingSink) WriteBatch(events []*sinklog.LogEvent) int {
	for _, event := range events {
		c.Write(event)
	}

	if c.ok {
		return len(events)
	}

	return 0
}

type panickingSink struct{}

func (panickingSink) Write(*sinklog.LogEvent) bool       { panic("sink exploded") }
func (panickingSink) WriteBatch([]*sinklog.LogEvent) int { panic("sink exploded") }

type sinkError struct {
	sink sinklog.Sink
	err  error
}

func observe(t *testing.T) (*sinklog.Observers, func() []sinkError) {
	t.Helper()

	var (
		mu       sync.Mutex
		reported []sinkError
	)

	observers := sinklog.NewObservers()
	observers.OnSinkError(func(sink sinklog.Sink, _ *sinklog.LogEvent, err error) {
		mu.Lock()
		defer mu.Unlock()

		reported = append(reported, sinkError{sink: sink, err: err})
	})

	return observers, func() []sinkError {
		mu.Lock()
		defer mu.Unlock()

		return append([]sinkError(nil), reported...)
	}
}

func TestDispatcher_BuildsEvent(t *testing.T) {
	memory := output.NewMemorySink(8, sinklog.CategoryAll)
	dispatcher := New(nil, WithProcessIdentity("svc:42"))
	dispatcher.AddSink(memory)

	dispatcher.Write(sinklog.CategoryWarning, "db", "slow query")
	dispatcher.Writef(sinklog.CategoryError, "db", "retry %d of %d", 1, 3)
	dispatcher.WriteThread(sinklog.CategoryInformation, "worker", 0xbeef, "attributed")

	events := memory.Events()
	require.Len(t, events, 3)

	assert.Equal(t, "Warning", events[0].Type)
	assert.Equal(t, "svc:42", events[0].SourceProcess)
	assert.Equal(t, "db", events[0].Source)
	assert.Equal(t, "slow query", events[0].Message)
	assert.False(t, events[0].Timestamp.IsZero())

	assert.Equal(t, "retry 1 of 3", events[1].Message)
	assert.Equal(t, 0xbeef, events[2].ThreadID)
}

func TestDispatcher_FanOutIsolation(t *testing.T) {
	observers, sinkErrors := observe(t)
	dispatcher := New(nil, WithObservers(observers))

	failing := &countingSink{ok: false}
	exploding := panickingSink{}
	memory := output.NewMemorySink(8, sinklog.CategoryAll)

	dispatcher.AddSink(failing)
	dispatcher.AddSink(exploding)
	dispatcher.AddSink(memory)

	assert.NotPanics(t, func() {
		dispatcher.Write(sinklog.CategoryError, "api", "boom")
	})

	assert.Equal(t, 1, memory.Len(), "later sinks still receive the event")
	assert.Equal(t, int32(1), failing.calls.Load())

	errs := sinkErrors()
	require.Len(t, errs, 2, "each failure is reported exactly once")
	assert.Same(t, failing, errs[0].sink)
	require.ErrorIs(t, errs[0].err, sinklog.ErrSinkRejected)
	require.ErrorIs(t, errs[1].err, sinklog.ErrSinkPanic)
}

func TestDispatcher_DeliverCounts(t *testing.T) {
	dispatcher := New(nil, WithObservers(sinklog.NewObservers()))

	dispatcher.AddSink(&countingSink{ok: true})
	dispatcher.AddSink(&countingSink{ok: false})

	delivered, failed := dispatcher.Deliver(sinklog.NewEvent(sinklog.CategoryDebug, "p", "s", 1, "m"))

	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, failed)
}

func TestDispatcher_GlobalMaskSuppresses(t *testing.T) {
	sink := &countingSink{ok: true}
	dispatcher := New(nil, WithCategories(sinklog.CategoryError))
	dispatcher.AddSink(sink)

	dispatcher.Write(sinklog.CategoryDebug, "s", "hidden")
	dispatcher.Writef(sinklog.CategoryTrace, "s", "hidden %d", 1)
	dispatcher.WriteThread(sinklog.CategoryDebug, "s", 1, "hidden")
	assert.Zero(t, sink.calls.Load())

	dispatcher.Write(sinklog.CategoryError, "s", "shown")
	assert.Equal(t, int32(1), sink.calls.Load())

	dispatcher.SetEnabled(sinklog.CategoryNone)
	dispatcher.Write(sinklog.CategoryError, "s", "hidden")
	assert.Equal(t, int32(1), sink.calls.Load())
	assert.Equal(t, sinklog.CategoryNone, dispatcher.Enabled())
}

func TestDispatcher_DuplicateAddIsReportedAtDebug(t *testing.T) {
	memory := output.NewMemorySink(8, sinklog.CategoryAll)
	dispatcher := New(nil)

	require.True(t, dispatcher.AddSink(memory))
	require.False(t, dispatcher.AddSink(memory))

	events := memory.Events()
	require.Len(t, events, 1)
	assert.Equal(t, sinklog.CategoryDebug, events[0].Category)
	assert.Contains(t, events[0].Message, "already registered")
	assert.Equal(t, 1, dispatcher.Registry().Count())

	dispatcher.SetEnabled(sinklog.CategoryError)
	dispatcher.AddSink(memory)
	assert.Equal(t, 1, memory.Len(), "the duplicate notice obeys the global mask")
}

func TestDispatcher_FailingObserverDoesNotPropagate(t *testing.T) {
	observers := sinklog.NewObservers()
	observers.OnSinkError(func(sinklog.Sink, *sinklog.LogEvent, error) { panic("observer broke") })

	memory := output.NewMemorySink(8, sinklog.CategoryAll)
	dispatcher := New(nil, WithObservers(observers))
	dispatcher.AddSink(&countingSink{ok: false})
	dispatcher.AddSink(memory)

	assert.NotPanics(t, func() {
		dispatcher.Write(sinklog.CategoryError, "s", "m")
	})
	assert.Equal(t, 1, memory.Len())
}

func TestDispatcher_UnobservedFailureReachesErrorHandler(t *testing.T) {
	observers := sinklog.NewObservers()
	observers.OnStatus(func(sinklog.StatusChange) {})

	var (
		mu       sync.Mutex
		reported []error
	)

	handler := func(err error) {
		mu.Lock()
		defer mu.Unlock()

		reported = append(reported, err)
	}

	dispatcher := New(nil, WithObservers(observers), WithErrorHandler(handler))
	dispatcher.AddSink(&countingSink{ok: false})
	dispatcher.AddSink(panickingSink{})

	dispatcher.Write(sinklog.CategoryError, "s", "m")

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, reported, 2)

	joined := errors.Join(reported...)
	assert.ErrorIs(t, joined, sinklog.ErrSinkRejected)
	assert.ErrorIs(t, joined, sinklog.ErrSinkPanic)
}

func TestDispatcher_ObservedFailureSkipsErrorHandler(t *testing.T) {
	observers, sinkErrors := observe(t)

	fallbackCalls := 0
	dispatcher := New(nil, WithObservers(observers), WithErrorHandler(func(error) { fallbackCalls++ }))
	dispatcher.AddSink(&countingSink{ok: false})

	dispatcher.Write(sinklog.CategoryError, "s", "m")

	assert.Len(t, sinkErrors(), 1)
	assert.Zero(t, fallbackCalls)
}

func TestDispatcher_Flush(t *testing.T) {
	dispatcher := New(nil)
	dispatcher.AddSink(output.NewConsoleSink(&discard{}, output.ColorModeNever, sinklog.CategoryAll))
	dispatcher.AddSink(&countingSink{ok: true})

	assert.NoError(t, dispatcher.Flush())
}

type discard struct{}

func (*discard) Write(p []byte) (int, error) { return len(p), nil }
