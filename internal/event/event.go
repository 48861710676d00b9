// Package event defines the notifications the core emits toward the UI and
// OS media-control layers. Each event is delivered at most once per logical
// change.
package event

import (
	"time"

	"github.com/IxianPixel/wavepod/internal/player"
	"github.com/IxianPixel/wavepod/internal/track"
)

type Event interface {
	isEvent()
}

// ErrorKind classifies a StreamError for display purposes.
type ErrorKind string

const (
	KindNetwork   ErrorKind = "network"
	KindNotFound  ErrorKind = "not_found"
	KindForbidden ErrorKind = "forbidden"
	KindAuth      ErrorKind = "auth"
	KindDecode    ErrorKind = "decode"
	KindSeek      ErrorKind = "seek"
)

// TrackChanged fires on every successful navigation.
type TrackChanged struct {
	Track *track.Track
}

// QueueExhausted fires when Next is called at the end of the queue.
type QueueExhausted struct{}

// AtQueueStart fires when Previous is called at index 0.
type AtQueueStart struct{}

// StreamReady fires when a track's bytes land in the cache.
type StreamReady struct {
	TrackID int64
}

// StreamError is a non-blocking notification of a per-track failure.
type StreamError struct {
	TrackID int64
	Kind    ErrorKind
	Err     error
}

// ReauthRequired fires when token refresh has failed and the user must log
// in again.
type ReauthRequired struct{}

// PlaybackProgress is the periodic position sample.
type PlaybackProgress struct {
	Position time.Duration
	Duration time.Duration
}

// PlaybackStateChanged mirrors the engine state machine.
type PlaybackStateChanged struct {
	State player.State
}

func (TrackChanged) isEvent()         {}
func (QueueExhausted) isEvent()       {}
func (AtQueueStart) isEvent()         {}
func (StreamReady) isEvent()          {}
func (StreamError) isEvent()          {}
func (ReauthRequired) isEvent()       {}
func (PlaybackProgress) isEvent()     {}
func (PlaybackStateChanged) isEvent() {}
