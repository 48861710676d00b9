package track

import (
	"encoding/json"
	"time"
)

// Track describes one remote track. Immutable once built from the catalog;
// everything else refers to tracks by ID.
type Track struct {
	ID         int64
	Title      string
	Artist     string
	Duration   time.Duration
	StreamURL  string
	ArtworkURL string
	Raw        json.RawMessage
}

// Store holds track descriptors keyed by ID. Read-only after construction.
type Store struct {
	byID  map[int64]*Track
	order []*Track
}

func NewStore(tracks []*Track) *Store {
	s := &Store{byID: make(map[int64]*Track, len(tracks))}
	for _, t := range tracks {
		if _, ok := s.byID[t.ID]; ok {
			continue
		}
		s.byID[t.ID] = t
		s.order = append(s.order, t)
	}
	return s
}

func (s *Store) Get(id int64) (*Track, bool) {
	t, ok := s.byID[id]
	return t, ok
}

// All returns the tracks in insertion order.
func (s *Store) All() []*Track {
	return s.order
}

func (s *Store) Len() int {
	return len(s.order)
}
