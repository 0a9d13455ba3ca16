// Package memory provides the in-process work queue.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/newsroomlab/harvester/internal/harvest"
)

// ErrClosed is returned by Dequeue once the queue is drained and closed.
var ErrClosed = errors.New("queue closed")

// Queue is a bounded in-memory queue with context-aware operations.
// Dequeue hands each item to exactly one caller.
type Queue struct {
	ch      chan harvest.WorkItem
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan harvest.WorkItem, capacity),
	}
}

// Enqueue pushes an item into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, item harvest.WorkItem) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- item:
		return nil
	}
}

// Dequeue pops the next item, respecting context cancellation. After
// Close, it drains remaining items and then returns ErrClosed.
func (q *Queue) Dequeue(ctx context.Context) (harvest.WorkItem, error) {
	select {
	case <-ctx.Done():
		return harvest.WorkItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case item, ok := <-q.ch:
		if !ok {
			return harvest.WorkItem{}, ErrClosed
		}
		return item, nil
	}
}

// Close marks the end of the batch. Safe to call more than once.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
