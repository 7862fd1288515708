// Package queue provides the handoff queue between the network layer and
// the tick-driven consumer. It is the only synchronization point between
// the two execution contexts.
package queue

import "sync"

// Queue is an unbounded FIFO safe for concurrent producers and a single
// consumer. Push never blocks on capacity. TryPop never blocks at all:
// the consumer runs inside a host callback that must return promptly, so
// no blocking wait is exposed. Check-and-remove happens under one lock,
// so two polls can never observe the same head element.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// New returns an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends an item to the tail.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
}

// TryPop removes and returns the head item, or reports false immediately
// when the queue is empty.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero // drop the reference so the backing array can free it
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return item, true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
