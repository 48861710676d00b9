package audio

import (
	"errors"
	"time"

	"github.com/faiface/beep"
)

// ErrBackward is returned when a cursor is asked to move behind its decode
// position.
var ErrBackward = errors.New("audio: cursor cannot move backward")

// Cursor is a single-use, forward-only decode iterator over a cached byte
// buffer. Moving backward requires constructing a new Cursor from the same
// buffer and advancing it to the target.
type Cursor struct {
	streamer beep.StreamSeekCloser
	format   beep.Format
}

func NewCursor(data []byte) (*Cursor, error) {
	streamer, format, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return &Cursor{streamer: streamer, format: format}, nil
}

func (c *Cursor) Format() beep.Format {
	return c.format
}

// Position reports the decode position.
func (c *Cursor) Position() time.Duration {
	return c.format.SampleRate.D(c.streamer.Position())
}

// Len reports the total decodable length of the buffer.
func (c *Cursor) Len() time.Duration {
	return c.format.SampleRate.D(c.streamer.Len())
}

// Advance drains samples until the decode position reaches target. It never
// rewinds: a target behind the current position fails with ErrBackward and
// the position stays where it was. Advancing past the end of the buffer
// clamps at the end.
func (c *Cursor) Advance(target time.Duration) error {
	want := c.format.SampleRate.N(target)
	pos := c.streamer.Position()
	if want < pos {
		return ErrBackward
	}

	scratch := make([][2]float64, 2048)
	for pos < want {
		n := want - pos
		if n > len(scratch) {
			n = len(scratch)
		}
		read, ok := c.streamer.Stream(scratch[:n])
		pos += read
		if !ok {
			break
		}
	}
	return c.streamer.Err()
}

// Stream makes Cursor a beep.Streamer over the remaining samples.
func (c *Cursor) Stream(samples [][2]float64) (int, bool) {
	return c.streamer.Stream(samples)
}

func (c *Cursor) Err() error {
	return c.streamer.Err()
}

func (c *Cursor) Close() error {
	return c.streamer.Close()
}
