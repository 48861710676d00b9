package player

import "time"

type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
	StateSeeking
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateSeeking:
		return "seeking"
	default:
		return "unknown"
	}
}

// Volume is a linear level in [0, 1].
type Volume float64

// Signal is feedback from the engine to the control loop. Background
// concerns (track completion, progress ticks) surface here as values rather
// than callbacks so a single goroutine can consume them in order.
type Signal interface {
	isSignal()
}

// TrackDone reports that the active track played to its end.
type TrackDone struct{}

// StateChange reports a playback state transition.
type StateChange struct {
	State State
}

// Tick is a periodic progress sample of the decode cursor.
type Tick struct {
	Position time.Duration
	Duration time.Duration
}

func (TrackDone) isSignal()   {}
func (StateChange) isSignal() {}
func (Tick) isSignal()        {}
