package output

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyp3rd/ewrap"
)

// taskQueue runs submitted work on a single background goroutine, one task
// at a time and in submission order. Submitting never blocks; Close stops
// intake and waits, up to a timeout, for queued work to finish.
type taskQueue struct {
	tasks        chan func()
	done         chan struct{}
	closeMutex   sync.Mutex
	closed       bool
	pending      atomic.Int64
	errorHandler func(error)
}

func newTaskQueue(size int, errorHandler func(error)) *taskQueue {
	if size <= 0 {
		size = 1
	}

	if errorHandler == nil {
		errorHandler = func(error) {}
	}

	q := &taskQueue{
		tasks:        make(chan func(), size),
		done:         make(chan struct{}),
		errorHandler: errorHandler,
	}

	go q.process()

	return q
}

// Submit enqueues task without blocking.
func (q *taskQueue) Submit(task func()) error {
	q.closeMutex.Lock()
	defer q.closeMutex.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- task:
		q.pending.Add(1)

		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of queued or running tasks.
func (q *taskQueue) Pending() int {
	return int(q.pending.Load())
}

// Close stops accepting work and waits up to timeout for queued tasks to
// finish. Tasks still running after the timeout are not cancelled.
func (q *taskQueue) Close(timeout time.Duration) error {
	q.closeMutex.Lock()

	if !q.closed {
		q.closed = true
		close(q.tasks)
	}

	q.closeMutex.Unlock()

	select {
	case <-q.done:
		return nil
	case <-time.After(timeout):
		return ewrap.Wrap(ErrDrainTimeout, "waiting for background tasks").
			WithMetadata("pending", q.Pending())
	}
}

func (q *taskQueue) process() {
	defer close(q.done)

	for task := range q.tasks {
		q.run(task)
		q.pending.Add(-1)
	}
}

func (q *taskQueue) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			q.errorHandler(ewrap.Newf("background task panicked: %v", r))
		}
	}()

	task()
}
