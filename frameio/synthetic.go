package frameio

import (
	"context"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// MovingBox is a filled rectangle moving inside a synthetic frame
type MovingBox struct {
	Color color.RGBA
	// Rect is position on the first frame
	Rect image.Rectangle
	// DX and DY are pixels per frame. The box bounces off frame edges
	DX int
	DY int
}

// SyntheticSource renders moving boxes on a plain background
type SyntheticSource struct {
	mu         sync.Mutex
	width      int
	height     int
	fps        float64
	limit      int
	realTime   bool
	background color.RGBA
	initial    []MovingBox
	boxes      []MovingBox
	next       int
	started    time.Time
	playing    bool
}

// SyntheticOption configures SyntheticSource
type SyntheticOption func(*SyntheticSource)

// WithFrameLimit makes source exhausted after limit frames. Zero means unlimited
func WithFrameLimit(limit int) SyntheticOption {
	return func(source *SyntheticSource) {
		source.limit = limit
	}
}

// WithRealTime makes NextFrame wait until the frame is due according to FPS
func WithRealTime() SyntheticOption {
	return func(source *SyntheticSource) {
		source.realTime = true
	}
}

// WithBackground sets background color. Default is black
func WithBackground(background color.RGBA) SyntheticOption {
	return func(source *SyntheticSource) {
		source.background = background
	}
}

// NewSyntheticSource creates source of width x height frames
func NewSyntheticSource(width, height int, fps float64, boxes []MovingBox, opts ...SyntheticOption) (*SyntheticSource, error) {
	if width < 1 || height < 1 {
		return nil, errors.Errorf("bad frame size %dx%d", width, height)
	}
	if fps <= 0 {
		return nil, errors.Errorf("bad fps %f", fps)
	}
	frame := image.Rect(0, 0, width, height)
	for i, box := range boxes {
		if box.Rect.Empty() || !box.Rect.In(frame) {
			return nil, errors.Errorf("box %d %v does not fit frame %v", i, box.Rect, frame)
		}
	}
	source := SyntheticSource{
		width:      width,
		height:     height,
		fps:        fps,
		background: color.RGBA{A: 255},
		initial:    append([]MovingBox(nil), boxes...),
	}
	for _, opt := range opts {
		opt(&source)
	}
	if source.limit < 0 {
		return nil, errors.Errorf("bad frame limit %d", source.limit)
	}
	source.boxes = append([]MovingBox(nil), boxes...)
	return &source, nil
}

// Play implements process.Player. It rewinds the source
func (source *SyntheticSource) Play() error {
	source.mu.Lock()
	defer source.mu.Unlock()
	source.boxes = append(source.boxes[:0], source.initial...)
	source.next = 0
	source.started = time.Now()
	source.playing = true
	return nil
}

// NextFrame implements process.Source
func (source *SyntheticSource) NextFrame(ctx context.Context) (int, *image.RGBA, bool) {
	source.mu.Lock()
	defer source.mu.Unlock()
	if source.limit > 0 && source.next >= source.limit {
		return 0, nil, false
	}
	if !source.playing {
		source.started = time.Now()
		source.playing = true
	}
	if source.realTime {
		due := source.started.Add(time.Duration(float64(source.next) / source.fps * float64(time.Second)))
		if wait := time.Until(due); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return 0, nil, false
			case <-timer.C:
			}
		}
	}
	if ctx.Err() != nil {
		return 0, nil, false
	}

	frame := image.NewRGBA(image.Rect(0, 0, source.width, source.height))
	draw.Draw(frame, frame.Bounds(), image.NewUniform(source.background), image.Point{}, draw.Src)
	for i := range source.boxes {
		box := &source.boxes[i]
		draw.Draw(frame, box.Rect, image.NewUniform(box.Color), image.Point{}, draw.Src)
		box.move(source.width, source.height)
	}
	numFrame := source.next
	source.next++
	return numFrame, frame, true
}

// Boxes returns positions the boxes will have on the next frame
func (source *SyntheticSource) Boxes() []image.Rectangle {
	source.mu.Lock()
	defer source.mu.Unlock()
	rects := make([]image.Rectangle, len(source.boxes))
	for i, box := range source.boxes {
		rects[i] = box.Rect
	}
	return rects
}

// FPS implements process.Source
func (source *SyntheticSource) FPS() float64 {
	return source.fps
}

// FrameSize implements process.Source
func (source *SyntheticSource) FrameSize() (int, int) {
	return source.width, source.height
}

// Close implements process.Source
func (source *SyntheticSource) Close() error {
	source.mu.Lock()
	defer source.mu.Unlock()
	source.playing = false
	return nil
}

func (box *MovingBox) move(width, height int) {
	box.DX = bounceAxis(box.Rect.Min.X+box.DX, box.Rect.Max.X+box.DX, width, box.DX)
	box.DY = bounceAxis(box.Rect.Min.Y+box.DY, box.Rect.Max.Y+box.DY, height, box.DY)
	box.Rect = box.Rect.Add(image.Pt(box.DX, box.DY))
	shift := image.Point{}
	if box.Rect.Min.X < 0 {
		shift.X = -box.Rect.Min.X
	} else if box.Rect.Max.X > width {
		shift.X = width - box.Rect.Max.X
	}
	if box.Rect.Min.Y < 0 {
		shift.Y = -box.Rect.Min.Y
	} else if box.Rect.Max.Y > height {
		shift.Y = height - box.Rect.Max.Y
	}
	box.Rect = box.Rect.Add(shift)
}

// bounceAxis returns step reversed if moving by it would leave [0, limit]
func bounceAxis(low, high, limit, step int) int {
	if low < 0 || high > limit {
		return -step
	}
	return step
}
