// Package session runs the control loop of the player. A single goroutine
// consumes user commands, fetch completions and engine feedback in order, so
// queue, cache and playback state never see concurrent mutation. All
// blocking I/O lives in fetcher goroutines that report back as values.
package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/IxianPixel/wavepod/internal/cache"
	"github.com/IxianPixel/wavepod/internal/event"
	"github.com/IxianPixel/wavepod/internal/fetch"
	"github.com/IxianPixel/wavepod/internal/player"
	"github.com/IxianPixel/wavepod/internal/queue"
	"github.com/IxianPixel/wavepod/internal/track"
)

// Engine is the playback surface the session drives.
type Engine interface {
	Load(t *track.Track, s *cache.Stream) error
	Play() error
	Pause()
	Toggle()
	Seek(target time.Duration) error
	Stop()
	State() player.State
	Position() time.Duration
	SetVolume(v player.Volume)
	Volume() player.Volume
	Signals() <-chan player.Signal
}

// Fetcher is the download surface the session drives.
type Fetcher interface {
	Fetch(trackID int64, streamURL string)
	Cancel(trackID int64)
	CancelExcept(keep ...int64)
	Results() <-chan fetch.Result
}

type command interface {
	isCommand()
}

type startCmd struct {
	tracks []*track.Track
	index  int
	reply  chan error
}
type nextCmd struct{}
type prevCmd struct{}
type playCmd struct{}
type pauseCmd struct{}
type toggleCmd struct{}
type seekCmd struct{ target time.Duration }
type seekByCmd struct{ delta time.Duration }
type stopCmd struct{}

func (startCmd) isCommand()  {}
func (nextCmd) isCommand()   {}
func (prevCmd) isCommand()   {}
func (playCmd) isCommand()   {}
func (pauseCmd) isCommand()  {}
func (toggleCmd) isCommand() {}
func (seekCmd) isCommand()   {}
func (seekByCmd) isCommand() {}
func (stopCmd) isCommand()   {}

type Session struct {
	queue   *queue.Queue
	streams *cache.Cache
	fetcher Fetcher
	engine  Engine
	log     *zap.Logger

	commands chan command
	events   chan event.Event

	// pendingPlay queues the user's play/pause intent while the active
	// track's bytes are still in flight.
	pendingPlay bool
}

func New(q *queue.Queue, streams *cache.Cache, fetcher Fetcher, engine Engine, log *zap.Logger) *Session {
	return &Session{
		queue:    q,
		streams:  streams,
		fetcher:  fetcher,
		engine:   engine,
		log:      log,
		commands: make(chan command, 16),
		events:   make(chan event.Event, 128),
	}
}

// Events delivers notifications to the UI layer.
func (s *Session) Events() <-chan event.Event {
	return s.events
}

// Run processes events until the context is cancelled. Commands sent before
// Run starts are processed once it does.
func (s *Session) Run(ctx context.Context) {
	s.log.Info("session loop started")
	for {
		select {
		case <-ctx.Done():
			s.engine.Stop()
			s.log.Info("session loop stopped")
			return
		case cmd := <-s.commands:
			s.handleCommand(cmd)
		case res := <-s.fetcher.Results():
			s.handleFetchResult(res)
		case sig := <-s.engine.Signals():
			s.handleSignal(sig)
		}
	}
}

// Start replaces the queue and begins playback at startIndex. The command is
// processed in loop order; the returned error is the queue's verdict.
func (s *Session) Start(tracks []*track.Track, startIndex int) error {
	reply := make(chan error, 1)
	s.commands <- startCmd{tracks: tracks, index: startIndex, reply: reply}
	return <-reply
}

func (s *Session) Next()           { s.commands <- nextCmd{} }
func (s *Session) Previous()       { s.commands <- prevCmd{} }
func (s *Session) Play()           { s.commands <- playCmd{} }
func (s *Session) Pause()          { s.commands <- pauseCmd{} }
func (s *Session) TogglePlayback() { s.commands <- toggleCmd{} }
func (s *Session) Stop()           { s.commands <- stopCmd{} }

func (s *Session) Seek(target time.Duration) { s.commands <- seekCmd{target: target} }
func (s *Session) SeekBy(delta time.Duration) { s.commands <- seekByCmd{delta: delta} }

// Volume goes straight to the engine; it is independent of queue and cache
// state, and the engine serializes output access itself.
func (s *Session) SetVolume(v player.Volume) { s.engine.SetVolume(v) }
func (s *Session) VolumeUp()                 { s.engine.SetVolume(s.engine.Volume() + 0.05) }
func (s *Session) VolumeDown()               { s.engine.SetVolume(s.engine.Volume() - 0.05) }

func (s *Session) handleCommand(cmd command) {
	switch c := cmd.(type) {
	case startCmd:
		err := s.queue.Start(c.tracks, c.index)
		if err == nil {
			if t, cerr := s.queue.Current(); cerr == nil {
				s.activate(t)
			}
		}
		c.reply <- err

	case nextCmd:
		s.advance()

	case prevCmd:
		s.retreat()

	case playCmd:
		if s.activeLoaded() {
			s.engine.Play()
		} else {
			s.pendingPlay = true
		}

	case pauseCmd:
		if s.activeLoaded() {
			s.engine.Pause()
		} else {
			s.pendingPlay = false
		}

	case toggleCmd:
		if s.activeLoaded() {
			s.engine.Toggle()
		} else {
			s.pendingPlay = !s.pendingPlay
		}

	case seekCmd:
		s.seek(c.target)

	case seekByCmd:
		target := s.engine.Position() + c.delta
		if target < 0 {
			target = 0
		}
		s.seek(target)

	case stopCmd:
		s.pendingPlay = false
		s.engine.Stop()
	}
}

// activate is the tail of every successful navigation: pin the track in the
// cache, drop fetches that are no longer current-or-look-ahead, start
// playback from cache or request the bytes, then prefetch the look-ahead.
func (s *Session) activate(t *track.Track) {
	s.streams.SetActive(t.ID)
	s.emit(event.TrackChanged{Track: t})

	keep := []int64{t.ID}
	if la := s.queue.LookAhead(); la != nil {
		keep = append(keep, la.ID)
	}
	s.fetcher.CancelExcept(keep...)

	s.pendingPlay = true
	if st, ok := s.streams.Get(t.ID); ok {
		s.load(t, st)
	} else {
		s.engine.Stop()
		s.fetcher.Fetch(t.ID, t.StreamURL)
	}

	s.prefetch()
}

func (s *Session) prefetch() {
	la := s.queue.LookAhead()
	if la == nil || s.streams.Contains(la.ID) {
		return
	}
	s.fetcher.Fetch(la.ID, la.StreamURL)
}

func (s *Session) load(t *track.Track, st *cache.Stream) {
	if err := s.engine.Load(t, st); err != nil {
		s.log.Error("failed to start playback",
			zap.Int64("track", t.ID),
			zap.Error(err))
		s.emit(event.StreamError{TrackID: t.ID, Kind: event.KindDecode, Err: err})
		s.pendingPlay = false
		return
	}
	if !s.pendingPlay {
		s.engine.Pause()
	}
	s.pendingPlay = false
}

func (s *Session) advance() {
	t, err := s.queue.Next()
	switch {
	case err == nil:
		s.activate(t)
	case errors.Is(err, queue.ErrQueueExhausted):
		s.engine.Stop()
		s.emit(event.QueueExhausted{})
	case errors.Is(err, queue.ErrEmptyQueue):
		s.log.Debug("next on empty queue")
	}
}

func (s *Session) retreat() {
	t, err := s.queue.Previous()
	switch {
	case err == nil:
		s.activate(t)
	case errors.Is(err, queue.ErrAtQueueStart):
		s.emit(event.AtQueueStart{})
	case errors.Is(err, queue.ErrEmptyQueue):
		s.log.Debug("previous on empty queue")
	}
}

func (s *Session) seek(target time.Duration) {
	err := s.engine.Seek(target)
	if err == nil {
		return
	}

	cur, qerr := s.queue.Current()
	var id int64
	if qerr == nil {
		id = cur.ID
	}
	s.log.Warn("seek failed",
		zap.Int64("track", id),
		zap.Duration("target", target),
		zap.Error(err))
	s.emit(event.StreamError{TrackID: id, Kind: event.KindSeek, Err: err})
}

func (s *Session) handleFetchResult(res fetch.Result) {
	cur, _ := s.queue.Current()

	if res.Err != nil {
		s.emit(event.StreamError{TrackID: res.TrackID, Kind: classify(res.Err), Err: res.Err})

		if errors.Is(res.Err, fetch.ErrReauthRequired) {
			// Every further fetch would fail the same way; let the UI
			// re-login instead of skipping through the whole queue.
			s.emit(event.ReauthRequired{})
			return
		}
		if cur != nil && cur.ID == res.TrackID {
			s.log.Warn("active track unplayable, advancing",
				zap.Int64("track", res.TrackID),
				zap.Error(res.Err))
			s.advance()
		}
		return
	}

	// Write-time staleness check: after rapid navigation a completed fetch
	// may no longer belong to the neighbourhood of the listener.
	if !s.currentOrLookAhead(res.TrackID) {
		s.log.Debug("dropping stale fetch result", zap.Int64("track", res.TrackID))
		return
	}

	s.streams.Put(res.TrackID, res.Data)
	s.emit(event.StreamReady{TrackID: res.TrackID})

	if cur != nil && cur.ID == res.TrackID {
		if st, ok := s.streams.Get(res.TrackID); ok {
			s.load(cur, st)
		}
	}
}

func (s *Session) handleSignal(sig player.Signal) {
	switch sg := sig.(type) {
	case player.TrackDone:
		s.advance()
	case player.StateChange:
		s.emit(event.PlaybackStateChanged{State: sg.State})
	case player.Tick:
		s.emit(event.PlaybackProgress{Position: sg.Position, Duration: sg.Duration})
	}
}

func (s *Session) currentOrLookAhead(id int64) bool {
	if cur, err := s.queue.Current(); err == nil && cur.ID == id {
		return true
	}
	if la := s.queue.LookAhead(); la != nil && la.ID == id {
		return true
	}
	return false
}

func (s *Session) activeLoaded() bool {
	return s.engine.State() != player.StateStopped
}

// emit never blocks the loop; a stalled consumer loses events rather than
// stalling playback.
func (s *Session) emit(e event.Event) {
	select {
	case s.events <- e:
	default:
		s.log.Warn("event dropped, consumer too slow")
	}
}

func classify(err error) event.ErrorKind {
	switch {
	case errors.Is(err, fetch.ErrNotFound):
		return event.KindNotFound
	case errors.Is(err, fetch.ErrForbidden):
		return event.KindForbidden
	case errors.Is(err, fetch.ErrReauthRequired), errors.Is(err, fetch.ErrAuthExpired):
		return event.KindAuth
	default:
		return event.KindNetwork
	}
}
