package queue

import (
	"errors"
	"math"

	"github.com/IxianPixel/wavepod/internal/track"
)

var (
	ErrInvalidIndex   = errors.New("queue: start index out of range")
	ErrEmptyQueue     = errors.New("queue: no tracks queued")
	ErrQueueExhausted = errors.New("queue: no next track")
	ErrAtQueueStart   = errors.New("queue: already at first track")
)

// Queue holds the ordered track sequence and the current position. It is
// owned by the session loop and never touched from anywhere else, so it
// carries no locking of its own.
type Queue struct {
	tracks  []*track.Track
	current int
}

func New() *Queue {
	return &Queue{current: -1}
}

// Start replaces the queue with the given sequence and positions it at
// startIndex.
func (q *Queue) Start(tracks []*track.Track, startIndex int) error {
	if startIndex < 0 || startIndex >= len(tracks) {
		return ErrInvalidIndex
	}
	q.tracks = tracks
	q.current = startIndex
	return nil
}

func (q *Queue) Current() (*track.Track, error) {
	if q.Empty() {
		return nil, ErrEmptyQueue
	}
	return q.tracks[q.current], nil
}

// Next advances one position. At the end of the queue it returns
// ErrQueueExhausted and leaves the position untouched; there is no wraparound.
func (q *Queue) Next() (*track.Track, error) {
	if q.Empty() {
		return nil, ErrEmptyQueue
	}
	if q.current+1 >= len(q.tracks) {
		return nil, ErrQueueExhausted
	}
	q.current++
	return q.tracks[q.current], nil
}

// Previous moves back one position, or returns ErrAtQueueStart as a no-op at
// index 0.
func (q *Queue) Previous() (*track.Track, error) {
	if q.Empty() {
		return nil, ErrEmptyQueue
	}
	if q.current == 0 {
		return nil, ErrAtQueueStart
	}
	q.current--
	return q.tracks[q.current], nil
}

// LookAhead returns the track after the current one, or nil at the end. The
// prefetch window is exactly this one track.
func (q *Queue) LookAhead() *track.Track {
	if q.current < 0 || q.current+1 >= len(q.tracks) {
		return nil
	}
	return q.tracks[q.current+1]
}

// Distance reports how many positions away from the current track the given
// track sits. Tracks not in the queue rank as maximally distant, which makes
// them the first eviction candidates.
func (q *Queue) Distance(id int64) int {
	if q.current < 0 {
		return math.MaxInt
	}
	for i, t := range q.tracks {
		if t.ID == id {
			d := i - q.current
			if d < 0 {
				d = -d
			}
			return d
		}
	}
	return math.MaxInt
}

func (q *Queue) Position() int {
	return q.current
}

func (q *Queue) Len() int {
	return len(q.tracks)
}

func (q *Queue) Empty() bool {
	return len(q.tracks) == 0 || q.current < 0
}

func (q *Queue) Clear() {
	q.tracks = nil
	q.current = -1
}
