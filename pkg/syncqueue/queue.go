// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package syncqueue implements the unbounded FIFO queue that buffers work
// between submitters and the single background consumer each processing
// subsystem runs.
//
// Producers never block: Push appends under a mutex and returns. The
// consumer blocks in Pop until an item arrives or the queue is closed and
// drained. One consumer per queue is the intended usage; multiple
// consumers would still be safe but would split the FIFO order between
// them.
package syncqueue

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Push after Close has been called.
var ErrClosed = errors.New("syncqueue: queue closed")

// Queue is an unbounded FIFO buffer.
type Queue[T any] struct {
	mu     sync.Mutex
	nonEmp *sync.Cond
	items  []T
	closed bool
}

// New returns an empty open queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.nonEmp = sync.NewCond(&q.mu)
	return q
}

// Push appends an item. It never blocks on capacity.
func (q *Queue[T]) Push(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.items = append(q.items, item)
	q.nonEmp.Signal()
	return nil
}

// Pop removes and returns the oldest item, blocking until one is
// available. After Close, Pop keeps returning buffered items until the
// queue is drained, then returns ok=false.
func (q *Queue[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		if q.closed {
			var zero T
			return zero, false
		}
		q.nonEmp.Wait()
	}
	item = q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Close marks the queue closed. Buffered items remain poppable.
// Close is idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.nonEmp.Broadcast()
}

// Len reports the number of buffered items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
