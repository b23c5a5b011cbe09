// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package queue

import "sync"

// Queue is a concurrency-safe bounded FIFO backed by a fixed ring buffer.
// Producers (transport callbacks) push from their own goroutines; the control
// loop drains it.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	size  int
	enter int // next slot to write
	leave int // next slot to read
}

// New creates a queue holding at most capacity items. A capacity below one is
// treated as one.
func New[T any](capacity int) *Queue[T] {
	return &Queue[T]{items: make([]T, max(capacity, 1))}
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Cap returns the capacity of the queue.
func (q *Queue[T]) Cap() int {
	return len(q.items)
}

// Push appends an item, returning false if the queue is full and the item
// was dropped.
func (q *Queue[T]) Push(value T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == len(q.items) {
		return false
	}
	q.items[q.enter] = value
	q.enter = (q.enter + 1) % len(q.items)
	q.size++
	return true
}

// Pop removes the oldest item; ok is false when the queue is empty.
func (q *Queue[T]) Pop() (value T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return value, false
	}
	value = q.items[q.leave]
	var zero T
	q.items[q.leave] = zero
	q.leave = (q.leave + 1) % len(q.items)
	q.size--
	return value, true
}

// Drain removes and returns every queued item in FIFO order.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return nil
	}
	out := make([]T, 0, q.size)
	var zero T
	for q.size > 0 {
		out = append(out, q.items[q.leave])
		q.items[q.leave] = zero
		q.leave = (q.leave + 1) % len(q.items)
		q.size--
	}
	return out
}

// Clear discards every queued item.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	clear(q.items)
	q.enter, q.leave, q.size = 0, 0, 0
}
