package process

import (
	"context"
	"image"
	"math"
	"time"

	"github.com/pkg/errors"
)

// Source produces frames for a processor
type Source interface {
	// NextFrame returns next frame and its index. False means the source is exhausted
	// or ctx was cancelled while waiting
	NextFrame(ctx context.Context) (int, *image.RGBA, bool)
	FPS() float64
	FrameSize() (int, int)
	Close() error
}

// Player is implemented by sources which need to be started before the first frame is pulled
type Player interface {
	Play() error
}

// Sink consumes processed frames
type Sink interface {
	OutputFrame(numFrame int, frame *image.RGBA) error
	Close() error
}

// Seekable is implemented by sources which can jump to any of their frames
type Seekable interface {
	Source
	// Seek makes the next NextFrame call return the frame with the given index
	Seek(numFrame int) error
	// Len returns number of frames
	Len() int
}

// SeekTime moves source to the frame shown at offset from its start
func SeekTime(source Seekable, offset time.Duration) error {
	fps := source.FPS()
	if fps <= 0 {
		return errors.Errorf("Can't seek by time at %v fps", fps)
	}
	return source.Seek(int(math.Round(offset.Seconds() * fps)))
}

// Duration returns how long all frames of the source play at its frame rate
func Duration(source Seekable) time.Duration {
	fps := source.FPS()
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(source.Len()) * float64(time.Second) / fps)
}
