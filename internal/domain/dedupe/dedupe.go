// Package dedupe tracks assessment request IDs for at-most-once
// ingestion. A request that fails to enqueue can be unrecorded so the
// caller may retry it with the same ID.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen request IDs to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an ID from the seen list, allowing it to be retried.
	// Use this when a request was marked as seen but never actually entered
	// the pipeline (e.g., queue backpressure).
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// node is a single entry in the eviction list.
type node struct {
	id   string
	next *node
}

func (n *node) reset() {
	n.id = ""
	n.next = nil
}

// memoryDeduper implements Deduper with an in-memory map plus a linked
// list for bounded-mode eviction. With maxSize <= 0 the map grows without
// limit; with maxSize > 0 the oldest recorded ID is evicted first and
// nodes are pooled to keep steady-state allocation flat.
type memoryDeduper struct {
	mu       sync.RWMutex
	seen     map[string]*node // id -> node in bounded mode, nil value otherwise
	head     *node            // most recently recorded
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryDeduper creates an in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &memoryDeduper{
		maxSize: 50000,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]*node)
	if d.maxSize > 0 {
		d.nodePool = sync.Pool{
			New: func() interface{} {
				return &node{}
			},
		}
	}
	return d
}

// SeenAndRecord atomically checks if id was seen and records it if not.
func (d *memoryDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	if d.maxSize > 0 {
		if len(d.seen) >= d.maxSize {
			d.evictOldest()
		}

		n := d.nodePool.Get().(*node)
		n.id = id
		n.next = d.head
		d.head = n
		d.seen[id] = n
	} else {
		d.seen[id] = nil
	}
	d.size.Add(1)
	return false
}

// Unrecord removes an ID from the seen list, allowing it to be retried.
func (d *memoryDeduper) Unrecord(ctx context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, exists := d.seen[id]
	if !exists {
		return
	}
	delete(d.seen, id)
	d.size.Add(-1)

	if d.maxSize <= 0 {
		return
	}

	if d.head == n {
		d.head = n.next
	} else {
		current := d.head
		for current != nil && current.next != n {
			current = current.next
		}
		if current != nil {
			current.next = n.next
		}
	}
	n.reset()
	d.nodePool.Put(n)
}

// evictOldest removes the tail of the list. Callers hold d.mu.
func (d *memoryDeduper) evictOldest() {
	if len(d.seen) == 0 || d.head == nil {
		return
	}

	var prev *node
	current := d.head
	if current.next == nil {
		delete(d.seen, current.id)
		current.reset()
		d.nodePool.Put(current)
		d.head = nil
		d.size.Add(-1)
		return
	}

	for current.next != nil {
		prev = current
		current = current.next
	}
	prev.next = nil
	delete(d.seen, current.id)
	current.reset()
	d.nodePool.Put(current)
	d.size.Add(-1)
}

// Size returns the current number of entries in the deduper.
func (d *memoryDeduper) Size() int64 {
	return d.size.Load()
}
