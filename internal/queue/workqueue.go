package queue

import (
	"context"
	"sync"
	"time"

	"github.com/kiranshivaraju/mediaqueue/internal/metrics"
	"github.com/kiranshivaraju/mediaqueue/pkg/models"
)

// WorkQueue is an unbounded FIFO of work items. Push never blocks; each item
// is handed to exactly one Pop caller.
type WorkQueue struct {
	mu     sync.Mutex
	items  []models.WorkItem
	signal chan struct{}
}

func NewWorkQueue() *WorkQueue {
	return &WorkQueue{signal: make(chan struct{}, 1)}
}

// Push appends item to the tail of the queue.
func (q *WorkQueue) Push(item models.WorkItem) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	metrics.QueueDepth.Inc()
	q.notify()
}

// Pop removes and returns the head of the queue, waiting up to timeout for an
// item to arrive. It returns ok=false when the timeout elapses with the queue
// still empty, and ctx.Err() when ctx is done first. A done ctx never takes
// an item, even if one is waiting.
func (q *WorkQueue) Pop(ctx context.Context, timeout time.Duration) (models.WorkItem, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.WorkItem{}, false, err
	}
	if item, ok := q.tryPop(); ok {
		return item, true, nil
	}
	if timeout <= 0 {
		return models.WorkItem{}, false, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return models.WorkItem{}, false, ctx.Err()
		case <-timer.C:
			item, ok := q.tryPop()
			return item, ok, nil
		case <-q.signal:
			if item, ok := q.tryPop(); ok {
				return item, true, nil
			}
		}
	}
}

// Len returns the number of items waiting.
func (q *WorkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *WorkQueue) tryPop() (models.WorkItem, bool) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return models.WorkItem{}, false
	}
	item := q.items[0]
	q.items[0] = models.WorkItem{}
	q.items = q.items[1:]
	remaining := len(q.items)
	q.mu.Unlock()

	metrics.QueueDepth.Dec()
	if remaining > 0 {
		q.notify()
	}
	return item, true
}

func (q *WorkQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
