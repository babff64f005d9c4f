package solver

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCostCachePutGet(t *testing.T) {
	cache := NewCostCache(4)
	key := Hash{Hi: 1, Lo: 2}

	_, ok := cache.Get(key)
	require.False(t, ok)

	cache.Put(key, 3.5)
	score, ok := cache.Get(key)
	require.True(t, ok)
	require.Equal(t, 3.5, score)

	hits, misses := cache.Stats()
	require.Equal(t, uint64(1), hits)
	require.Equal(t, uint64(1), misses)
}

func TestCostCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewCostCache(2)
	k1 := Hash{Lo: 1}
	k2 := Hash{Lo: 2}
	k3 := Hash{Lo: 3}

	cache.Put(k1, 1)
	cache.Put(k2, 2)

	// touch k1 so k2 becomes the eviction candidate
	_, ok := cache.Get(k1)
	require.True(t, ok)

	cache.Put(k3, 3)
	require.Equal(t, 2, cache.Len())

	_, ok = cache.Get(k2)
	require.False(t, ok)
	_, ok = cache.Get(k1)
	require.True(t, ok)
	_, ok = cache.Get(k3)
	require.True(t, ok)
}

func TestCostCacheOverwrite(t *testing.T) {
	cache := NewCostCache(2)
	key := Hash{Lo: 9}

	cache.Put(key, 1)
	cache.Put(key, 7)
	score, ok := cache.Get(key)
	require.True(t, ok)
	require.Equal(t, 7.0, score)
	require.Equal(t, 1, cache.Len())
}

func TestCostCacheConcurrentAccess(t *testing.T) {
	cache := NewCostCache(128)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := Hash{Hi: uint64(g), Lo: uint64(i % 32)}
				cache.Put(key, float64(i))
				cache.Get(key)
			}
		}(g)
	}
	wg.Wait()
	require.LessOrEqual(t, cache.Len(), 128)
}
