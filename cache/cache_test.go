package cache_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenbio/faigz/cache"
)

func TestGetMiss(t *testing.T) {
	c := cache.NewBlocks(4)
	_, ok := c.Get(0)
	assert.False(t, ok)
}

func TestPutGet(t *testing.T) {
	c := cache.NewBlocks(4)
	c.Put(100, []byte("block-a"))

	got, ok := c.Get(100)
	require.True(t, ok)
	assert.Equal(t, []byte("block-a"), got)
	assert.Equal(t, 1, c.Len())
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := cache.NewBlocks(2)
	c.Put(1, []byte("a"))
	c.Put(2, []byte("b"))

	// Touch 1 so 2 becomes the eviction candidate.
	_, ok := c.Get(1)
	require.True(t, ok)

	c.Put(3, []byte("c"))
	assert.Equal(t, 2, c.Len())

	_, ok = c.Get(2)
	assert.False(t, ok, "least recently used block should be evicted")
	_, ok = c.Get(1)
	assert.True(t, ok)
	_, ok = c.Get(3)
	assert.True(t, ok)
}

func TestPutExistingUpdates(t *testing.T) {
	c := cache.NewBlocks(2)
	c.Put(1, []byte("a"))
	c.Put(1, []byte("a2"))

	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, []byte("a2"), got)
	assert.Equal(t, 1, c.Len())
}

func TestZeroCapacityDisablesCaching(t *testing.T) {
	c := cache.NewBlocks(0)
	c.Put(1, []byte("a"))
	_, ok := c.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestConcurrentAccess(t *testing.T) {
	c := cache.NewBlocks(8)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		g := g
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				off := int64((g + i) % 16)
				c.Put(off, []byte{byte(off)})
				if data, ok := c.Get(off); ok {
					assert.Equal(t, []byte{byte(off)}, data)
				}
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 8)
}
