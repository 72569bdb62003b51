// Package loop runs tasks on the goroutine that owns the table. Timers and
// lookups running elsewhere hand their results back with Post; the owner runs
// them with Drain or Run, so plugin state is only ever touched from one place.
package loop

import (
	"context"
	"sync"
)

// Task is a unit of work executed on the owning goroutine.
type Task func()

// Loop is a FIFO task queue.
type Loop struct {
	mu      sync.Mutex
	queue   []Task
	wake    chan struct{}
	closed  bool
	onPanic func(any)
}

// New returns an empty loop. onPanic, when non-nil, receives values recovered
// from panicking tasks.
func New(onPanic func(any)) *Loop {
	return &Loop{wake: make(chan struct{}, 1), onPanic: onPanic}
}

// Post enqueues task. It is safe to call from any goroutine and reports
// false once the loop is closed.
func (l *Loop) Post(task Task) bool {
	if task == nil {
		return false
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Drain runs queued tasks, including tasks enqueued while draining, until the
// queue is empty. It returns the number of tasks run.
func (l *Loop) Drain() int {
	ran := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return ran
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.run(task)
		ran++
	}
}

// Run drains tasks as they arrive until ctx is done or the loop is closed.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Drain()
		if l.isClosed() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Close discards queued tasks and rejects new ones.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.queue = nil
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Loop) run(task Task) {
	defer func() {
		if r := recover(); r != nil && l.onPanic != nil {
			l.onPanic(r)
		}
	}()
	task()
}
