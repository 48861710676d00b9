package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IxianPixel/wavepod/internal/track"
)

func testTracks(n int) []*track.Track {
	tracks := make([]*track.Track, n)
	for i := range tracks {
		tracks[i] = &track.Track{
			ID:       int64(i + 1),
			Title:    "track",
			Duration: 3 * time.Minute,
		}
	}
	return tracks
}

func TestStartBounds(t *testing.T) {
	q := New()
	tracks := testTracks(3)

	require.ErrorIs(t, q.Start(tracks, -1), ErrInvalidIndex)
	require.ErrorIs(t, q.Start(tracks, 3), ErrInvalidIndex)
	require.True(t, q.Empty())

	require.NoError(t, q.Start(tracks, 1))
	cur, err := q.Current()
	require.NoError(t, err)
	assert.Equal(t, int64(2), cur.ID)
}

func TestTraversalVisitsEachIndexOnce(t *testing.T) {
	q := New()
	tracks := testTracks(5)
	require.NoError(t, q.Start(tracks, 1))

	var visited []int64
	cur, err := q.Current()
	require.NoError(t, err)
	visited = append(visited, cur.ID)

	for {
		next, err := q.Next()
		if err != nil {
			require.ErrorIs(t, err, ErrQueueExhausted)
			break
		}
		visited = append(visited, next.ID)
	}

	assert.Equal(t, []int64{2, 3, 4, 5}, visited)
	assert.Equal(t, 4, q.Position(), "exhaustion must not move the position")

	// Exhaustion is sticky, no wraparound.
	_, err = q.Next()
	assert.ErrorIs(t, err, ErrQueueExhausted)
}

func TestPreviousAtStartIsNoOp(t *testing.T) {
	q := New()
	require.NoError(t, q.Start(testTracks(3), 0))

	_, err := q.Previous()
	require.ErrorIs(t, err, ErrAtQueueStart)
	assert.Equal(t, 0, q.Position())

	cur, err := q.Current()
	require.NoError(t, err)
	assert.Equal(t, int64(1), cur.ID)
}

func TestPreviousWalksBack(t *testing.T) {
	q := New()
	require.NoError(t, q.Start(testTracks(3), 2))

	prev, err := q.Previous()
	require.NoError(t, err)
	assert.Equal(t, int64(2), prev.ID)

	prev, err = q.Previous()
	require.NoError(t, err)
	assert.Equal(t, int64(1), prev.ID)

	_, err = q.Previous()
	assert.ErrorIs(t, err, ErrAtQueueStart)
}

func TestEmptyQueue(t *testing.T) {
	q := New()

	_, err := q.Current()
	assert.ErrorIs(t, err, ErrEmptyQueue)
	_, err = q.Next()
	assert.ErrorIs(t, err, ErrEmptyQueue)
	_, err = q.Previous()
	assert.ErrorIs(t, err, ErrEmptyQueue)
	assert.Nil(t, q.LookAhead())
}

func TestLookAhead(t *testing.T) {
	q := New()
	require.NoError(t, q.Start(testTracks(2), 0))

	la := q.LookAhead()
	require.NotNil(t, la)
	assert.Equal(t, int64(2), la.ID)

	_, err := q.Next()
	require.NoError(t, err)
	assert.Nil(t, q.LookAhead(), "no look-ahead at the last track")
}

func TestDistance(t *testing.T) {
	q := New()
	require.NoError(t, q.Start(testTracks(4), 1))

	assert.Equal(t, 0, q.Distance(2))
	assert.Equal(t, 1, q.Distance(1))
	assert.Equal(t, 1, q.Distance(3))
	assert.Equal(t, 2, q.Distance(4))
	assert.Greater(t, q.Distance(99), 1000, "unknown tracks rank maximally distant")
}

func TestClear(t *testing.T) {
	q := New()
	require.NoError(t, q.Start(testTracks(2), 0))
	q.Clear()
	assert.True(t, q.Empty())
	_, err := q.Current()
	assert.ErrorIs(t, err, ErrEmptyQueue)
}
