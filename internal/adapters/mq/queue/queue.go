// Package queue buffers outbound frames between the sequencer and the
// dispatcher that fans them out to viewers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/salesboard/internal/domain/model"
	"github.com/okian/salesboard/pkg/metrics"
)

const defaultCapacity = 256

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a frame. It never blocks; ErrFull is returned when the
	// buffer is at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, f model.Frame) error

	// Dequeue returns a channel that yields frames in enqueue order. The
	// channel is closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan model.Frame

	Len() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	frames   chan model.Frame
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.frames = make(chan model.Frame, q.capacity)
	metrics.UpdateFrameQueueSize(0)
	return q
}

// Enqueue adds a frame to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, f model.Frame) error { //nolint:gocritic // hugeParam: frames travel by value
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordFrameDropped("closed")
		return ErrClosed
	}

	select {
	case <-ctx.Done():
		metrics.RecordFrameDropped("context_cancelled")
		return ctx.Err()
	default:
	}

	select {
	case q.frames <- f:
		metrics.RecordFramePublished()
		metrics.UpdateFrameQueueSize(len(q.frames))
		return nil
	default:
		metrics.RecordFrameDropped("queue_full")
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns a channel that will receive frames as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan model.Frame {
	out := make(chan model.Frame)
	go func() {
		defer close(out)
		for f := range q.frames {
			select {
			case out <- f:
				metrics.UpdateFrameQueueSize(len(q.frames))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the number of buffered frames.
func (q *InMemoryQueue) Len() int {
	return len(q.frames)
}

// Close stops accepting frames. Buffered frames are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.frames)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
