// Package queue provides the bounded mailbox that feeds a single consumer.
package queue

import (
	"context"
	"sync"

	"github.com/okian/ghostslot/pkg/metrics"
)

const defaultCapacity = 1024

// Queue is a bounded FIFO with non-blocking enqueue and channel-based dequeue.
type Queue[T any] struct {
	items    chan T
	capacity int
	name     string

	mu     sync.RWMutex
	closed bool
}

// New creates an empty queue.
func New[T any](opts ...Option) *Queue[T] {
	s := settings{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(&s)
	}

	q := &Queue[T]{
		items:    make(chan T, s.capacity),
		capacity: s.capacity,
		name:     s.name,
	}
	q.report()
	return q
}

// Enqueue adds v to the queue. It never blocks and returns false if the
// queue is full, closed, or ctx is already done.
func (q *Queue[T]) Enqueue(ctx context.Context, v T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.reject("closed")
		return false
	}
	if ctx.Err() != nil {
		q.reject("context_cancelled")
		return false
	}

	select {
	case q.items <- v:
		q.report()
		return true
	default:
		q.reject("full")
		return false
	}
}

// Dequeue returns the channel items are delivered on. It is closed once the
// queue is closed and drained.
func (q *Queue[T]) Dequeue() <-chan T {
	return q.items
}

// Len returns the number of pending items.
func (q *Queue[T]) Len() int {
	n := len(q.items)
	if q.name != "" {
		metrics.UpdateMailboxDepth(q.name, n)
	}
	return n
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return q.capacity
}

// Close stops accepting items. Pending items stay readable.
func (q *Queue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (q *Queue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *Queue[T]) report() {
	if q.name != "" {
		metrics.UpdateMailboxDepth(q.name, len(q.items))
	}
}

func (q *Queue[T]) reject(reason string) {
	if q.name != "" {
		metrics.RecordMailboxRejection(q.name, reason)
	}
}
