package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekit/notify/pkg/cache"
)

func TestLRU_PutGet(t *testing.T) {
	c := cache.NewLRU[string, int](3)

	c.Put("a", 1)
	c.Put("b", 2)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_UpdateExistingKey(t *testing.T) {
	c := cache.NewLRU[string, int](2)

	c.Put("a", 1)
	c.Put("a", 10)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
	assert.Equal(t, 1, c.Len())
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := cache.NewLRU[string, int](2)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should be evicted at capacity")
	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_GetRefreshesRecency(t *testing.T) {
	c := cache.NewLRU[string, int](2)

	c.Put("a", 1)
	c.Put("b", 2)

	// Touching "a" makes "b" the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("c", 3)

	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestLRU_EvictCallback(t *testing.T) {
	var evicted []string
	c := cache.NewLRU[string, int](2)
	c.OnEvict(func(key string, _ int) {
		evicted = append(evicted, key)
	})

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	assert.Equal(t, []string{"a"}, evicted)

	require.True(t, c.Remove("b"))
	assert.Equal(t, []string{"a", "b"}, evicted)

	c.Clear()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, evicted)
	assert.Zero(t, c.Len())
}

func TestLRU_RemoveMissingKey(t *testing.T) {
	c := cache.NewLRU[string, int](2)
	assert.False(t, c.Remove("nope"))
}

func TestLRU_PanicsOnNonPositiveCapacity(t *testing.T) {
	assert.Panics(t, func() {
		cache.NewLRU[string, int](0)
	})
}
