package audio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

type nopReadSeekCloser struct {
	io.ReadSeeker
}

func (nopReadSeekCloser) Close() error { return nil }

// Decode sniffs the container magic and hands the buffer to the matching
// beep decoder. Remote streams arrive as MP3; WAV and FLAC cover local
// buffers and tests.
func Decode(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	if len(data) < 4 {
		return nil, beep.Format{}, fmt.Errorf("audio: buffer too short to decode (%d bytes)", len(data))
	}

	r := nopReadSeekCloser{bytes.NewReader(data)}
	switch {
	case bytes.HasPrefix(data, []byte("fLaC")):
		return flac.Decode(r)
	case bytes.HasPrefix(data, []byte("RIFF")):
		return wav.Decode(r)
	default:
		return mp3.Decode(r)
	}
}
