package cache

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// distanceByMap builds a DistanceFunc from a fixed table; ids not present
// rank maximally distant, as queue.Distance does.
func distanceByMap(m map[int64]int) DistanceFunc {
	return func(id int64) int {
		if d, ok := m[id]; ok {
			return d
		}
		return math.MaxInt
	}
}

func TestGetMiss(t *testing.T) {
	c := New(2, distanceByMap(nil))
	_, ok := c.Get(1)
	assert.False(t, ok)
}

func TestPutAndGet(t *testing.T) {
	c := New(2, distanceByMap(map[int64]int{1: 0}))
	c.Put(1, []byte("audio"))

	s, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, int64(1), s.TrackID)
	assert.Equal(t, []byte("audio"), s.Data)
}

func TestPutReplaces(t *testing.T) {
	c := New(2, distanceByMap(map[int64]int{1: 0}))
	c.Put(1, []byte("old"))
	c.Put(1, []byte("new"))

	s, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), s.Data)
	assert.Equal(t, 1, c.Len())
}

func TestEvictsGreatestDistance(t *testing.T) {
	dist := map[int64]int{1: 0, 2: 1, 3: 4}
	c := New(2, distanceByMap(dist))
	c.SetActive(1)

	c.Put(1, []byte("a"))
	c.Put(3, []byte("c"))
	c.Put(2, []byte("b"))

	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Contains(1))
	assert.True(t, c.Contains(2))
	assert.False(t, c.Contains(3), "farthest entry must go first")
}

func TestEvictionTieBreaksLRU(t *testing.T) {
	dist := map[int64]int{1: 0, 2: 1, 3: 1}
	c := New(2, distanceByMap(dist))
	c.SetActive(1)

	c.Put(2, []byte("b"))
	time.Sleep(2 * time.Millisecond)
	c.Put(3, []byte("c"))
	time.Sleep(2 * time.Millisecond)

	// Touch 2 so 3 becomes the least recently used of the tied pair.
	_, ok := c.Get(2)
	require.True(t, ok)

	c.Put(1, []byte("a"))

	assert.True(t, c.Contains(1))
	assert.True(t, c.Contains(2))
	assert.False(t, c.Contains(3))
}

func TestActiveTrackNeverEvicted(t *testing.T) {
	// The active track is the farthest by distance, yet must survive any
	// amount of cache pressure.
	dist := map[int64]int{1: 5, 2: 0, 3: 1, 4: 2}
	c := New(2, distanceByMap(dist))
	c.SetActive(1)

	c.Put(1, []byte("active"))
	c.Put(2, []byte("b"))
	c.Put(3, []byte("c"))
	c.Put(4, []byte("d"))

	assert.True(t, c.Contains(1), "active entry is exempt from eviction")
	assert.Equal(t, 2, c.Len())
}

func TestCapacityOneHoldsOnlyActive(t *testing.T) {
	c := New(1, distanceByMap(map[int64]int{1: 0, 2: 1}))
	c.SetActive(1)

	c.Put(1, []byte("a"))
	c.Put(2, []byte("b"))

	// Over capacity but the only evictable entry is 2.
	assert.True(t, c.Contains(1))
	assert.False(t, c.Contains(2))
}

func TestInvalidate(t *testing.T) {
	c := New(2, distanceByMap(map[int64]int{1: 0}))
	c.Put(1, []byte("a"))
	c.Invalidate(1)
	assert.False(t, c.Contains(1))

	// Invalidating an absent entry is harmless.
	c.Invalidate(99)
}

func TestSetActiveMovesPin(t *testing.T) {
	dist := map[int64]int{1: 3, 2: 0, 3: 1}
	c := New(2, distanceByMap(dist))

	c.SetActive(1)
	c.Put(1, []byte("a"))
	c.Put(2, []byte("b"))
	c.SetActive(2)
	assert.Equal(t, int64(2), c.Active())

	// 1 is no longer pinned and is now the farthest resident entry.
	c.Put(3, []byte("c"))
	assert.False(t, c.Contains(1))
	assert.True(t, c.Contains(2))
	assert.True(t, c.Contains(3))
}
