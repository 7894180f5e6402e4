// Package queue defines the contract for enqueuing and consuming
// assessment requests.
//
// Implementations may use channels or more advanced structures; the
// default is an in-memory bounded queue whose full state surfaces as
// backpressure at the ingestion API.
package queue

import (
	"context"
	"sync"

	"github.com/reena96/unseenedgeai/internal/domain/model"
	"github.com/reena96/unseenedgeai/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10000
	defaultBufferSize    = 10000
)

// Request is the payload type flowing through the queue.
type Request = model.AssessmentRequest

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a request to the queue.
	// Returns false if the queue is full and the request was not enqueued.
	Enqueue(ctx context.Context, r Request) bool

	// Dequeue returns a channel that will receive requests as they become
	// available. The channel will be closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Request

	// Len returns the current number of queued requests.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	// After closing, no new requests can be enqueued and the dequeue
	// channel will be closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	requests   chan Request
	capacity   int
	bufferSize int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultQueueCapacity,
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(q)
	}

	q.requests = make(chan Request, q.bufferSize)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a request to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r Request) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return false
	}
	if len(q.requests) >= q.capacity {
		metrics.RecordQueueEnqueueError()
		return false
	}

	select {
	case q.requests <- r:
		metrics.RecordQueueEnqueue()
		currentSize := len(q.requests)
		metrics.UpdateQueueSize(currentSize)
		metrics.UpdateQueueUtilization(float64(currentSize) / float64(q.capacity))
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		return false
	default:
		metrics.RecordQueueEnqueueError()
		return false // queue is full
	}
}

// Dequeue returns a channel that will receive requests as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Request {
	// Wrap the channel to track dequeue metrics
	out := make(chan Request)
	go func() {
		defer close(out)
		for r := range q.requests {
			select {
			case out <- r:
				metrics.RecordQueueDequeue()
				currentSize := len(q.requests)
				metrics.UpdateQueueSize(currentSize)
				metrics.UpdateQueueUtilization(float64(currentSize) / float64(q.capacity))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued requests.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.requests)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.requests)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
