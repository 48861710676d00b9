// Package cache keeps fully downloaded audio streams in memory, bounded by
// entry count rather than byte size. Eviction prefers the entry farthest from
// the current queue position so that skipping around a queue keeps the
// neighbourhood of the listener warm.
package cache

import (
	"sync"
	"time"
)

// Stream is the complete audio buffer for one track. Partial downloads are
// never stored here; the fetcher only delivers finished bodies.
type Stream struct {
	TrackID  int64
	Data     []byte
	lastUsed time.Time
}

// DistanceFunc ranks a track by its queue distance from the current position.
type DistanceFunc func(id int64) int

type Cache struct {
	mu       sync.RWMutex
	capacity int
	distance DistanceFunc
	entries  map[int64]*Stream
	active   int64
}

func New(capacity int, distance DistanceFunc) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		distance: distance,
		entries:  make(map[int64]*Stream),
	}
}

func (c *Cache) Get(id int64) (*Stream, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.entries[id]
	if ok {
		s.lastUsed = time.Now()
	}
	return s, ok
}

// Put inserts or replaces the stream for a track, then enforces the capacity
// bound. The entry for the active track is exempt from eviction: backward
// seeking rebuilds its decode cursor from this buffer, so dropping it would
// break seek.
func (c *Cache) Put(id int64, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[id] = &Stream{TrackID: id, Data: data, lastUsed: time.Now()}

	for len(c.entries) > c.capacity {
		victim := c.victimLocked()
		if victim == nil {
			break
		}
		delete(c.entries, victim.TrackID)
	}
}

// victimLocked picks the entry with the greatest queue distance, ties broken
// least-recently-used. Never the active track.
func (c *Cache) victimLocked() *Stream {
	var victim *Stream
	var worst int
	for id, s := range c.entries {
		if id == c.active {
			continue
		}
		d := c.distance(id)
		if victim == nil || d > worst || (d == worst && s.lastUsed.Before(victim.lastUsed)) {
			victim = s
			worst = d
		}
	}
	return victim
}

func (c *Cache) Invalidate(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// SetActive marks the track whose entry must survive eviction.
func (c *Cache) SetActive(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = id
}

func (c *Cache) Active() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

func (c *Cache) Contains(id int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[id]
	return ok
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
