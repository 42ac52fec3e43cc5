package application

import (
	"context"
	"sync"

	"voice-butler/internal/domain"
)

// UtteranceQueue is a bounded FIFO between the capture goroutine and the
// dispatch worker. When full, the oldest utterance is dropped.
type UtteranceQueue struct {
	mu      sync.Mutex
	items   []domain.Utterance
	size    int
	closed  bool
	dropped int
	ready   chan struct{}
}

func NewUtteranceQueue(size int) *UtteranceQueue {
	if size < 1 {
		size = 1
	}
	return &UtteranceQueue{
		items: make([]domain.Utterance, 0, size),
		size:  size,
		ready: make(chan struct{}, 1),
	}
}

// Push enqueues u and reports the utterance that was evicted, if any.
func (q *UtteranceQueue) Push(u domain.Utterance) (domain.Utterance, bool) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return domain.Utterance{}, false
	}

	var evicted domain.Utterance
	dropped := false
	if len(q.items) == q.size {
		evicted = q.items[0]
		q.items = q.items[1:]
		q.dropped++
		dropped = true
	}
	q.items = append(q.items, u)
	q.mu.Unlock()

	q.signal()
	return evicted, dropped
}

// Pop blocks until an utterance is available. It returns false once ctx is
// done or the queue is closed and drained.
func (q *UtteranceQueue) Pop(ctx context.Context) (domain.Utterance, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			u := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return u, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return domain.Utterance{}, false
		}

		select {
		case <-ctx.Done():
			return domain.Utterance{}, false
		case <-q.ready:
		}
	}
}

func (q *UtteranceQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *UtteranceQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *UtteranceQueue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

func (q *UtteranceQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
