package gpu

import (
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Call after Close.
var ErrQueueClosed = errors.New("gpu: queue closed")

type funcRun struct {
	f    func(Device) error
	done chan error
}

// Queue hands work to the thread that owns the graphics context.
//
// Any goroutine may Post or Call. Only the owning thread runs Drain, so the
// Device passed to queued functions never leaves that thread.
type Queue struct {
	mu     sync.Mutex
	runs   []funcRun
	closed bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Post schedules f without waiting for it. It reports false after Close.
func (q *Queue) Post(f func(Device) error) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.runs = append(q.runs, funcRun{f: f})
	return true
}

// Call schedules f and blocks until the owner has run it.
// It must not be called from the owning thread.
func (q *Queue) Call(f func(Device) error) error {
	done := make(chan error, 1)
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.runs = append(q.runs, funcRun{f: f, done: done})
	q.mu.Unlock()
	return <-done
}

// Drain runs every pending function on the calling thread and returns the
// errors of posted functions that failed.
func (q *Queue) Drain(dev Device) error {
	q.mu.Lock()
	runs := q.runs
	q.runs = nil
	q.mu.Unlock()

	var errs []error
	for _, r := range runs {
		err := r.f(dev)
		if r.done != nil {
			r.done <- err
			continue
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Pending returns the number of queued functions.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.runs)
}

// Close rejects further work and fails any waiting Call.
func (q *Queue) Close() {
	q.mu.Lock()
	runs := q.runs
	q.runs = nil
	q.closed = true
	q.mu.Unlock()

	for _, r := range runs {
		if r.done != nil {
			r.done <- ErrQueueClosed
		}
	}
}
