// Package queue is the bounded hand-off between the scanner and the workers.
package queue

import (
	"context"
	"errors"

	"artcollector/pkg/models"
)

// ErrStopped is returned by Pop when it receives a stop sentinel
var ErrStopped = errors.New("queue stopped")

// item is either a record or a stop sentinel
type item struct {
	rec  *models.FileRecord
	stop bool
}

// Queue is a fixed capacity FIFO backed by a buffered channel. Push blocks
// while the queue is full and Pop blocks while it is empty.
type Queue struct {
	items chan item
}

// New creates a queue that holds at most capacity items. A capacity below
// one is raised to one.
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{items: make(chan item, capacity)}
}

// Push enqueues rec, blocking until there is room or ctx is done
func (q *Queue) Push(ctx context.Context, rec *models.FileRecord) error {
	if rec == nil {
		return errors.New("queue: nil record")
	}
	return q.put(ctx, item{rec: rec})
}

// Stop enqueues n stop sentinels, one per consumer, behind any pending records
func (q *Queue) Stop(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := q.put(ctx, item{stop: true}); err != nil {
			return err
		}
	}
	return nil
}

// Pop dequeues the next record. It returns ErrStopped for a sentinel and
// ctx.Err() when ctx is done first.
func (q *Queue) Pop(ctx context.Context) (*models.FileRecord, error) {
	select {
	case it := <-q.items:
		if it.stop {
			return nil, ErrStopped
		}
		return it.rec, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *Queue) put(ctx context.Context, it item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.items <- it:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of queued items
func (q *Queue) Len() int {
	return len(q.items)
}

// Cap returns the queue capacity
func (q *Queue) Cap() int {
	return cap(q.items)
}
