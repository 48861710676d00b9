package audio

import "github.com/faiface/beep"

// Backend abstracts the audio output device so the playback engine can run
// against a fake in tests.
type Backend interface {
	Init(sampleRate beep.SampleRate, bufferSize int) error
	Play(stream beep.Streamer)
	Lock()
	Unlock()
}
