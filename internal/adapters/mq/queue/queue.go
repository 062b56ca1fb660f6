// Package queue defines the contract for enqueuing and consuming readings.
//
// The in-memory implementation is a bounded buffered channel; producers
// never block and get ErrFull as backpressure.
package queue

import (
	"context"
	"sync"

	"github.com/okian/airq/internal/domain/model"
	"github.com/okian/airq/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Reading is the payload type flowing through the queue.
type Reading = model.Reading

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a reading to the queue.
	// Returns ErrFull when at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, r Reading) error

	// Dequeue returns the channel readings are delivered on.
	// The channel is closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Reading

	// Len returns the current number of queued readings.
	Len(ctx context.Context) int

	// Cap returns the queue capacity.
	Cap() int

	// Close stops accepting readings.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	readings chan Reading
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.readings = make(chan Reading, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)
	return q
}

// Enqueue adds a reading to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r Reading) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	// Read lock keeps Close from closing the channel mid-send.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	select {
	case q.readings <- r:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns the channel readings are delivered on. Consumers should
// call Done after taking a reading so size gauges stay current.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Reading {
	return q.readings
}

// Done records that a reading was taken off the queue.
func (q *InMemoryQueue) Done() {
	metrics.RecordQueueDequeue()
	q.observe()
}

// Len returns the current number of queued readings.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	q.observe()
	return len(q.readings)
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int { return q.capacity }

func (q *InMemoryQueue) observe() {
	size := len(q.readings)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

// Close gracefully shuts down the queue. Already queued readings stay
// readable until drained.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.readings)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
