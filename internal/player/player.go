package player

import (
	"errors"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"

	"github.com/IxianPixel/wavepod/internal/audio"
	"github.com/IxianPixel/wavepod/internal/cache"
	"github.com/IxianPixel/wavepod/internal/track"
)

var (
	// ErrNoTrack is returned for transport operations with nothing loaded.
	ErrNoTrack = errors.New("player: no active track")

	// ErrCacheUnavailable is returned when a backward seek finds no cached
	// buffer to rebuild the decode cursor from. Position and state are left
	// unchanged.
	ErrCacheUnavailable = errors.New("player: no cached stream for active track")
)

// progressInterval is the cadence of Tick signals. Fixed, and deliberately
// decoupled from the output buffer size so UI responsiveness does not depend
// on driver granularity.
const progressInterval = 100 * time.Millisecond

// readAhead is how much decoded audio sits between the cursor and the
// speaker.
const readAhead = 2 * time.Second

// Engine owns the live audio output. It consumes cached byte buffers, tracks
// the playback state machine and implements the backward-seek reconstruction
// over the stream cache.
type Engine struct {
	mu sync.Mutex

	backend audio.Backend
	streams *cache.Cache

	mixer  *beep.Mixer
	ctrl   *beep.Ctrl
	volume *effects.Volume

	state    State
	active   *track.Track
	buffered *audio.BufferedCursor
	gen      int

	sampleRate beep.SampleRate
	signals    chan Signal
	quit       chan struct{}
}

func New(sampleRate int, backend audio.Backend, streams *cache.Cache) (*Engine, error) {
	sr := beep.SampleRate(sampleRate)

	if err := backend.Init(sr, sr.N(time.Second/4)); err != nil {
		return nil, err
	}

	mixer := &beep.Mixer{}
	vol := &effects.Volume{
		Streamer: mixer,
		Base:     2,
		Volume:   0,
		Silent:   false,
	}

	backend.Play(vol)

	e := &Engine{
		backend:    backend,
		streams:    streams,
		mixer:      mixer,
		volume:     vol,
		state:      StateStopped,
		sampleRate: sr,
		signals:    make(chan Signal, 64),
		quit:       make(chan struct{}),
	}

	go e.progressLoop()
	return e, nil
}

// Signals delivers engine feedback to the control loop.
func (e *Engine) Signals() <-chan Signal {
	return e.signals
}

// Load tears down current playback and starts the given track from its
// cached stream.
func (e *Engine) Load(t *track.Track, s *cache.Stream) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cursor, err := audio.NewCursor(s.Data)
	if err != nil {
		return err
	}

	e.teardownLocked()
	e.active = t
	e.startLocked(cursor, false)
	e.setStateLocked(StatePlaying)
	return nil
}

// startLocked wires a cursor into the output chain.
func (e *Engine) startLocked(cursor *audio.Cursor, paused bool) {
	buffered := audio.NewBufferedCursor(cursor, readAhead)

	var final beep.Streamer = buffered
	if cursor.Format().SampleRate != e.sampleRate {
		final = beep.Resample(4, cursor.Format().SampleRate, e.sampleRate, buffered)
	}

	gen := e.gen

	e.backend.Lock()
	e.ctrl = &beep.Ctrl{
		Paused:   paused,
		Streamer: final,
	}

	seq := beep.Seq(
		e.ctrl,
		beep.Callback(func() {
			go e.trackFinished(gen)
		}),
	)

	e.mixer.Clear()
	e.mixer.Add(seq)
	e.backend.Unlock()

	e.buffered = buffered
}

func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StatePaused:
		e.backend.Lock()
		if e.ctrl != nil {
			e.ctrl.Paused = false
		}
		e.backend.Unlock()
		e.setStateLocked(StatePlaying)
	case StateStopped:
		return ErrNoTrack
	}
	return nil
}

func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePlaying {
		return
	}
	e.backend.Lock()
	if e.ctrl != nil {
		e.ctrl.Paused = true
	}
	e.backend.Unlock()
	e.setStateLocked(StatePaused)
}

func (e *Engine) Toggle() {
	e.mu.Lock()
	state := e.state
	e.mu.Unlock()

	if state == StatePlaying {
		e.Pause()
	} else {
		e.Play()
	}
}

// Seek moves playback to target. Forward targets advance the live decode
// cursor; backward targets rebuild the cursor from the cached buffer, since
// the cursor is forward-only. On failure the position and the prior state
// are preserved exactly.
func (e *Engine) Seek(target time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil || e.buffered == nil {
		return ErrNoTrack
	}
	if target < 0 {
		target = 0
	}

	prior := e.state
	e.setStateLocked(StateSeeking)
	err := e.seekLocked(target, prior)
	e.setStateLocked(prior)
	return err
}

func (e *Engine) seekLocked(target time.Duration, prior State) error {
	if target >= e.buffered.DecodePosition() {
		// The output goroutine streams from the buffered cursor lock-free;
		// hold the output lock so a pull cannot catch the chunk pipe
		// mid-swap and mistake it for end of stream.
		e.backend.Lock()
		err := e.buffered.Advance(target)
		e.backend.Unlock()
		return err
	}

	s, ok := e.streams.Get(e.active.ID)
	if !ok {
		return ErrCacheUnavailable
	}

	cursor, err := audio.NewCursor(s.Data)
	if err != nil {
		return err
	}
	if err := cursor.Advance(target); err != nil {
		cursor.Close()
		return err
	}

	// Only tear the old output down once the replacement is positioned, so a
	// failed seek leaves playback exactly where it was.
	e.teardownOutputLocked()
	e.startLocked(cursor, prior == StatePaused)
	return nil
}

func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.teardownLocked()
	e.setStateLocked(StateStopped)
}

// Position reports how far playback has consumed the active track.
func (e *Engine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.buffered == nil {
		return 0
	}
	return e.buffered.Position()
}

// Duration prefers the catalog duration and falls back to the decoded
// length.
func (e *Engine) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.durationLocked()
}

func (e *Engine) durationLocked() time.Duration {
	if e.active != nil && e.active.Duration > 0 {
		return e.active.Duration
	}
	if e.buffered != nil {
		return e.buffered.Len()
	}
	return 0
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) ActiveTrack() *track.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

func (e *Engine) SetVolume(v Volume) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}

	e.backend.Lock()
	defer e.backend.Unlock()

	if v == 0 {
		e.volume.Silent = true
		return
	}

	e.volume.Silent = false
	e.volume.Volume = float64(v*2) - 1 // maps nicely to log scale
}

func (e *Engine) Volume() Volume {
	e.backend.Lock()
	defer e.backend.Unlock()

	if e.volume.Silent {
		return 0
	}
	return Volume((e.volume.Volume + 1) / 2)
}

// Close stops playback and the progress loop.
func (e *Engine) Close() {
	e.Stop()
	close(e.quit)
}

func (e *Engine) teardownLocked() {
	e.teardownOutputLocked()
	e.active = nil
}

func (e *Engine) teardownOutputLocked() {
	e.gen++

	e.backend.Lock()
	e.ctrl = nil
	e.mixer.Clear()
	e.backend.Unlock()

	if e.buffered != nil {
		e.buffered.Close()
		e.buffered = nil
	}
}

func (e *Engine) setStateLocked(s State) {
	if e.state == s {
		return
	}
	e.state = s
	e.emit(StateChange{State: s})
}

func (e *Engine) trackFinished(gen int) {
	e.mu.Lock()
	stale := gen != e.gen || e.state == StateStopped || e.state == StateSeeking
	e.mu.Unlock()

	if stale {
		return
	}
	e.emit(TrackDone{})
}

func (e *Engine) progressLoop() {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.quit:
			return
		case <-ticker.C:
			e.mu.Lock()
			if e.state != StatePlaying || e.buffered == nil {
				e.mu.Unlock()
				continue
			}
			tick := Tick{
				Position: e.buffered.Position(),
				Duration: e.durationLocked(),
			}
			e.mu.Unlock()
			e.emit(tick)
		}
	}
}

// emit never blocks the engine; a slow consumer loses ticks, not playback.
func (e *Engine) emit(s Signal) {
	select {
	case e.signals <- s:
	default:
	}
}
