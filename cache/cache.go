// Package cache provides a bounded in-memory cache for decompressed BGZF
// blocks.
//
// Keys are compressed block offsets, which uniquely identify a block within
// one file. The cache is an explicit object owned by whoever serves queries;
// there is no process-wide instance. Capacity is counted in blocks rather
// than bytes because BGZF bounds every block at 64 KiB, so the byte footprint
// is capacity*64KiB in the worst case.
package cache

import (
	"container/list"
	"sync"
)

// DefaultBlocks is the default cache capacity in blocks (about 1 MiB of
// decompressed data at the BGZF block size limit).
const DefaultBlocks = 16

// Blocks is an LRU cache of decompressed blocks keyed by compressed offset.
//
// Blocks is safe for concurrent use. Cached slices are shared with callers
// and must be treated as read-only.
type Blocks struct {
	mu    sync.Mutex
	cap   int
	order *list.List // front = most recently used
	items map[int64]*list.Element
}

type entry struct {
	off  int64
	data []byte
}

// NewBlocks returns a cache holding at most capacity blocks. A capacity of
// zero or less disables caching: Get always misses and Put is a no-op.
func NewBlocks(capacity int) *Blocks {
	return &Blocks{
		cap:   capacity,
		order: list.New(),
		items: make(map[int64]*list.Element),
	}
}

// Get returns the cached block starting at compressed offset off, marking it
// most recently used.
func (c *Blocks) Get(off int64) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[off]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).data, true
}

// Put stores a fully decompressed block. The cache takes no copy; callers
// must not modify data after Put.
func (c *Blocks) Put(off int64, data []byte) {
	if c.cap <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[off]; ok {
		c.order.MoveToFront(el)
		el.Value.(*entry).data = data
		return
	}
	c.items[off] = c.order.PushFront(&entry{off: off, data: data})
	for c.order.Len() > c.cap {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry).off)
	}
}

// Len returns the number of cached blocks.
func (c *Blocks) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Capacity returns the configured block capacity.
func (c *Blocks) Capacity() int {
	return c.cap
}
