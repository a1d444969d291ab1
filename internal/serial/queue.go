// Package serial provides a single-worker FIFO execution context.
//
// Every task submitted to a Queue runs on one goroutine in submission
// order, so state mutated only from tasks is linearized without further
// locking. Tasks must not call Do on their own queue.
package serial

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when submitting to a closed queue.
var ErrClosed = errors.New("serial queue closed")

// Queue is an unbounded single-worker task queue.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []func()
	closed  bool
	done    chan struct{}
	onPanic func(any)
}

// New starts a queue worker. onPanic, when non-nil, receives values
// recovered from panicking tasks; the worker keeps running.
func New(onPanic func(any)) *Queue {
	q := &Queue{
		done:    make(chan struct{}),
		onPanic: onPanic,
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)

	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		q.exec(task)
	}
}

func (q *Queue) exec(task func()) {
	defer func() {
		if r := recover(); r != nil && q.onPanic != nil {
			q.onPanic(r)
		}
	}()
	task()
}

// Submit enqueues task without waiting. It reports false if the queue is closed.
func (q *Queue) Submit(task func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, task)
	q.cond.Signal()
	return true
}

// Do enqueues task and waits for it to finish. If ctx ends first, Do
// returns ctx.Err() and the task still runs when its turn comes.
func (q *Queue) Do(ctx context.Context, task func()) error {
	finished := make(chan struct{})
	if !q.Submit(func() {
		defer close(finished)
		task()
	}) {
		return ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains pending tasks and stops the worker. Safe to call twice.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()

	<-q.done
}
