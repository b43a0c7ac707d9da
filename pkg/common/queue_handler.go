package common

import (
	"context"
	"sync"
)

// QueueProcessor handles one batch of queued items.
type QueueProcessor[V any] func(items []V)

// QueueHandler hands queued items to a processor in batches on a background
// goroutine.
type QueueHandler[V any] struct {
	mu        sync.Mutex
	queue     []V
	processor QueueProcessor[V]
	chunkSize int
	wake      chan struct{}
	done      chan struct{}
	closed    bool
}

func NewQueueHandler[V any](processor QueueProcessor[V], chunkSize int) *QueueHandler[V] {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	q := &QueueHandler[V]{
		queue:     make([]V, 0),
		processor: processor,
		chunkSize: chunkSize,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go q.processQueue()
	return q
}

// Add queues items. Items added after Close are dropped.
func (h *QueueHandler[V]) Add(item ...V) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.queue = append(h.queue, item...)
	h.mu.Unlock()
	select {
	case h.wake <- struct{}{}:
	default:
	}
	return true
}

func (h *QueueHandler[V]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

func (h *QueueHandler[V]) next() ([]V, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.queue) == 0 {
		return nil, h.closed
	}
	items := h.queue[:min(h.chunkSize, len(h.queue))]
	h.queue = h.queue[len(items):]
	return items, false
}

func (h *QueueHandler[V]) processQueue() {
	defer close(h.done)
	for {
		items, finished := h.next()
		if finished {
			return
		}
		if len(items) == 0 {
			<-h.wake
			continue
		}
		h.processor(items)
	}
}

// Close stops accepting items and waits until the queue is drained or ctx
// is done.
func (h *QueueHandler[V]) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	select {
	case h.wake <- struct{}{}:
	default:
	}
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
