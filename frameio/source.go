package frameio

import (
	"context"
	"image"
	"sync"

	"github.com/LdDl/framepipe/process"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// SliceSource plays frames from memory. Frames are copied before they are handed out
// so that modifications never touch the stored ones.
type SliceSource struct {
	mu     sync.Mutex
	frames []*image.RGBA
	fps    float64
	next   int
}

// NewSliceSource creates source of the given frames
func NewSliceSource(fps float64, frames ...*image.RGBA) *SliceSource {
	return &SliceSource{
		frames: frames,
		fps:    fps,
	}
}

// NextFrame implements process.Source
func (source *SliceSource) NextFrame(ctx context.Context) (int, *image.RGBA, bool) {
	source.mu.Lock()
	defer source.mu.Unlock()
	if ctx.Err() != nil || source.next >= len(source.frames) {
		return 0, nil, false
	}
	numFrame := source.next
	source.next++
	return numFrame, cloneFrame(source.frames[numFrame]), true
}

// Seek moves to the frame with given index
func (source *SliceSource) Seek(numFrame int) error {
	source.mu.Lock()
	defer source.mu.Unlock()
	if numFrame < 0 || numFrame > len(source.frames) {
		return errors.Errorf("frame %d is out of range [0, %d]", numFrame, len(source.frames))
	}
	source.next = numFrame
	return nil
}

// Len returns number of frames
func (source *SliceSource) Len() int {
	return len(source.frames)
}

// FPS implements process.Source
func (source *SliceSource) FPS() float64 {
	return source.fps
}

// FrameSize implements process.Source. Size of the first frame is reported
func (source *SliceSource) FrameSize() (int, int) {
	if len(source.frames) == 0 {
		return 0, 0
	}
	bounds := source.frames[0].Bounds()
	return bounds.Dx(), bounds.Dy()
}

// Close implements process.Source
func (source *SliceSource) Close() error {
	return nil
}

type noSource struct{}

func (noSource) NextFrame(context.Context) (int, *image.RGBA, bool) { return 0, nil, false }
func (noSource) FPS() float64                                       { return 0 }
func (noSource) FrameSize() (int, int)                              { return 0, 0 }
func (noSource) Close() error                                       { return nil }

// NoSource is always exhausted
var NoSource process.Source = noSource{}

var _ process.Seekable = (*SliceSource)(nil)

// decorator passes everything except frames through to the decorated source
type decorator struct {
	decorated process.Source
}

// Play starts decorated source if it needs to be started
func (source decorator) Play() error {
	if player, ok := source.decorated.(process.Player); ok {
		return player.Play()
	}
	return nil
}

func (source decorator) FPS() float64 {
	return source.decorated.FPS()
}

func (source decorator) Close() error {
	return source.decorated.Close()
}

// Seek moves decorated source if it is seekable. Returns process.ErrNotSeekable otherwise
func (source decorator) Seek(numFrame int) error {
	if seekable, ok := source.decorated.(process.Seekable); ok {
		return seekable.Seek(numFrame)
	}
	return process.ErrNotSeekable
}

// Len returns number of frames of seekable decorated source and zero for any other
func (source decorator) Len() int {
	if seekable, ok := source.decorated.(process.Seekable); ok {
		return seekable.Len()
	}
	return 0
}

// ResizingSource scales every frame of the decorated source to a fixed size
type ResizingSource struct {
	decorator
	width  int
	height int
	scaler draw.Scaler
}

// NewResizingSource decorates source. Frames are scaled with bilinear interpolation
func NewResizingSource(source process.Source, width, height int) (*ResizingSource, error) {
	if width < 1 || height < 1 {
		return nil, errors.Errorf("bad target size %dx%d", width, height)
	}
	return &ResizingSource{
		decorator: decorator{decorated: source},
		width:     width,
		height:    height,
		scaler:    draw.BiLinear,
	}, nil
}

// NextFrame implements process.Source
func (source *ResizingSource) NextFrame(ctx context.Context) (int, *image.RGBA, bool) {
	numFrame, frame, ok := source.decorated.NextFrame(ctx)
	if !ok || frame == nil {
		return numFrame, frame, ok
	}
	if frame.Bounds().Dx() == source.width && frame.Bounds().Dy() == source.height {
		return numFrame, frame, true
	}
	resized := image.NewRGBA(image.Rect(0, 0, source.width, source.height))
	source.scaler.Scale(resized, resized.Bounds(), frame, frame.Bounds(), draw.Src, nil)
	return numFrame, resized, true
}

// FrameSize implements process.Source
func (source *ResizingSource) FrameSize() (int, int) {
	return source.width, source.height
}

// CroppingSource cuts a fixed rectangle out of every frame of the decorated source
type CroppingSource struct {
	decorator
	area process.AreaOfInterest
}

// NewCroppingSource decorates source
func NewCroppingSource(source process.Source, area process.AreaOfInterest) (*CroppingSource, error) {
	if err := area.Validate(); err != nil {
		return nil, err
	}
	return &CroppingSource{
		decorator: decorator{decorated: source},
		area:      area,
	}, nil
}

// NextFrame implements process.Source
func (source *CroppingSource) NextFrame(ctx context.Context) (int, *image.RGBA, bool) {
	numFrame, frame, ok := source.decorated.NextFrame(ctx)
	if !ok || frame == nil {
		return numFrame, frame, ok
	}
	return numFrame, source.area.ExtractFrom(frame), true
}

// FrameSize implements process.Source
func (source *CroppingSource) FrameSize() (int, int) {
	return source.area.Width, source.area.Height
}

func cloneFrame(frame *image.RGBA) *image.RGBA {
	clone := image.NewRGBA(frame.Bounds())
	draw.Copy(clone, frame.Bounds().Min, frame, frame.Bounds(), draw.Src, nil)
	return clone
}
