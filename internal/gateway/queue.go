package gateway

import (
	"context"
	"sync"
)

// queueItem is either an event frame or a lifecycle signal.
type queueItem struct {
	event  *EventFrame
	signal *Signal
}

// frameQueue is an unbounded FIFO with one consumer. The reader never blocks
// on a slow listener.
type frameQueue struct {
	mu     sync.Mutex
	items  []queueItem
	closed bool
	notify chan struct{}
}

func newFrameQueue() *frameQueue {
	return &frameQueue{notify: make(chan struct{}, 1)}
}

// push appends item. It reports false after close.
func (q *frameQueue) push(item queueItem) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.wake()

	return true
}

// pop blocks until an item is available. It returns false once the queue is
// closed and drained, or when ctx ends.
func (q *frameQueue) pop(ctx context.Context) (queueItem, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = queueItem{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return queueItem{}, false
		}

		select {
		case <-q.notify:
		case <-ctx.Done():
			return queueItem{}, false
		}
	}
}

// close stops accepting items. Queued items remain poppable.
func (q *frameQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

// len reports the backlog.
func (q *frameQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

func (q *frameQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
