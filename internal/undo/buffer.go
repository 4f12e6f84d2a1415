// Package undo keeps recently deleted products so the last deletions can be
// reverted one at a time.
package undo

import (
	"sync"

	"github.com/tuanvumaihuynh/stockroom/internal/model"
)

// DefaultCapacity is the number of deletions kept when none is configured.
const DefaultCapacity = 20

// Buffer is a bounded LIFO of deleted products. Pushing beyond capacity
// evicts the oldest entry. It is safe for concurrent use.
type Buffer struct {
	mu       sync.Mutex
	capacity int
	items    []model.Product // oldest first
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		capacity: capacity,
		items:    make([]model.Product, 0, capacity),
	}
}

// Push records product as the most recent deletion. It returns the evicted
// entry, if any.
func (b *Buffer) Push(product model.Product) (evicted model.Product, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == b.capacity {
		evicted, ok = b.items[0], true
		copy(b.items, b.items[1:])
		b.items = b.items[:len(b.items)-1]
	}
	b.items = append(b.items, product)

	return evicted, ok
}

// Pop removes and returns the most recent deletion.
func (b *Buffer) Pop() (model.Product, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == 0 {
		return model.Product{}, false
	}

	last := b.items[len(b.items)-1]
	b.items = b.items[:len(b.items)-1]
	return last, true
}

// Len returns the number of entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Capacity returns the maximum number of entries.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// List returns the entries, most recent first.
func (b *Buffer) List() []model.Product {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]model.Product, len(b.items))
	for i, p := range b.items {
		out[len(b.items)-1-i] = p
	}
	return out
}
