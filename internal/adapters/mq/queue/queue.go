// Package queue hands captured frames from the capture stage to the
// matching stage.
//
// The queue is bounded and FIFO with a single consumer. Put blocks while the
// queue is full, so a slow matcher applies backpressure to capture instead of
// frames being dropped.
package queue

import (
	"context"
	"sync"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/metrics"
)

const defaultCapacity = 4

// Queue is a bounded frame hand-off.
type Queue interface {
	// Put blocks until f is queued, ctx is done, or the queue is closed.
	Put(ctx context.Context, f model.Frame) error

	// Frames returns the receive side. It is closed after Close once drained.
	Frames() <-chan model.Frame

	Len() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	frames   chan model.Frame
	done     chan struct{}
	capacity int

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.frames = make(chan model.Frame, q.capacity)
	q.done = make(chan struct{})

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Put adds a frame to the queue.
func (q *InMemoryQueue) Put(ctx context.Context, f model.Frame) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}

	select {
	case q.frames <- f:
		metrics.UpdateQueueSize(len(q.frames))
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Frames returns the receive side of the queue.
func (q *InMemoryQueue) Frames() <-chan model.Frame {
	return q.frames
}

// Len returns the current number of queued frames.
func (q *InMemoryQueue) Len() int {
	size := len(q.frames)
	metrics.UpdateQueueSize(size)
	return size
}

// Close stops accepting frames. Frames already queued are still delivered.
func (q *InMemoryQueue) Close() error {
	q.closeOnce.Do(func() {
		// Release blocked producers before taking the write lock.
		close(q.done)
		q.mu.Lock()
		q.closed = true
		close(q.frames)
		q.mu.Unlock()
	})
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
