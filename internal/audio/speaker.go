package audio

import (
	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// SpeakerBackend drives the real output device through beep's speaker.
type SpeakerBackend struct{}

func (SpeakerBackend) Init(sampleRate beep.SampleRate, bufferSize int) error {
	return speaker.Init(sampleRate, bufferSize)
}

func (SpeakerBackend) Play(stream beep.Streamer) {
	speaker.Play(stream)
}

func (SpeakerBackend) Lock() {
	speaker.Lock()
}

func (SpeakerBackend) Unlock() {
	speaker.Unlock()
}
