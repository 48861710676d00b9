package audio

import (
	"sync"
	"time"

	"github.com/faiface/beep"
)

// BufferedCursor keeps a chunked read-ahead between a decode cursor and the
// output device. This prevents stuttering when decode momentarily falls
// behind, and keeps seek reconstruction from starving the speaker.
type BufferedCursor struct {
	mu     sync.Mutex
	cursor *Cursor

	// Buffer configuration
	bufferSize int // Total samples to hold
	chunkSize  int // Samples per read op

	// Data pipe
	chunks  chan [][2]float64
	current [][2]float64

	// Control
	quit     chan struct{}
	position int // samples handed to the output so far
}

func NewBufferedCursor(c *Cursor, bufferDuration time.Duration) *BufferedCursor {
	b := &BufferedCursor{
		cursor:     c,
		bufferSize: c.Format().SampleRate.N(bufferDuration),
		chunkSize:  1024 * 4,
		quit:       make(chan struct{}),
		position:   c.Format().SampleRate.N(c.Position()),
	}

	b.startWorker()
	return b
}

// startWorker starts the background goroutine that fills the buffer from the
// decode cursor.
func (b *BufferedCursor) startWorker() {
	b.chunks = make(chan [][2]float64, b.bufferSize/b.chunkSize)

	go func(cursor *Cursor, chunks chan<- [][2]float64, quit <-chan struct{}) {
		defer close(chunks)

		for {
			// Stop between chunks during an Advance or Close.
			select {
			case <-quit:
				return
			default:
			}

			data := make([][2]float64, b.chunkSize)
			n, ok := cursor.Stream(data)

			if n > 0 {
				// If the buffer is full this blocks until the speaker
				// consumes data.
				select {
				case chunks <- data[:n]:
				case <-quit:
					return
				}
			}

			if !ok {
				return // end of stream
			}
		}
	}(b.cursor, b.chunks, b.quit)
}

func (b *BufferedCursor) Stream(samples [][2]float64) (n int, ok bool) {
	// No lock here to keep the audio path fast; the channel read is safe.
	filled := 0
	for filled < len(samples) {
		if len(b.current) == 0 {
			newChunk, open := <-b.chunks
			if !open {
				return filled, filled > 0
			}
			b.current = newChunk
		}

		n := copy(samples[filled:], b.current)
		b.current = b.current[n:]
		filled += n
		b.position += n
	}
	return filled, true
}

// Advance moves the playback position forward to target. The worker is
// stopped, the cursor drained to the target, buffered chunks discarded and
// the worker restarted. Targets behind the decode position fail with
// ErrBackward; the caller then rebuilds the cursor from the cached buffer.
//
// The caller must keep Stream from running while Advance does: Stream reads
// the chunk pipe without locks, and the old pipe is closed for the whole
// drain.
func (b *BufferedCursor) Advance(target time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	close(b.quit)

	if err := b.cursor.Advance(target); err != nil {
		// Restart the worker even on failure to keep the stream alive.
		b.quit = make(chan struct{})
		b.startWorker()
		return err
	}

	b.current = nil
	b.position = b.cursor.Format().SampleRate.N(target)
	b.quit = make(chan struct{})

	b.startWorker()

	return nil
}

func (b *BufferedCursor) Err() error {
	return b.cursor.Err()
}

func (b *BufferedCursor) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-b.quit:
	default:
		close(b.quit)
	}
	b.cursor.Close()
}

// Position reports how far playback has consumed the track.
func (b *BufferedCursor) Position() time.Duration {
	return b.cursor.Format().SampleRate.D(b.position)
}

// DecodePosition reports how far the underlying cursor has decoded. It runs
// ahead of Position by the amount buffered; seeks compare against this,
// since the cursor can only move forward from here.
func (b *BufferedCursor) DecodePosition() time.Duration {
	return b.cursor.Position()
}

func (b *BufferedCursor) Len() time.Duration {
	return b.cursor.Len()
}

func (b *BufferedCursor) Format() beep.Format {
	return b.cursor.Format()
}
