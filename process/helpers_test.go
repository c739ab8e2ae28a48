package process

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
)

const testTimeout = 5 * time.Second

var colorBlack = color.RGBA{A: 255}

func newTestFrame(width, height int, fill color.RGBA) *image.RGBA {
	frame := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			frame.SetRGBA(x, y, fill)
		}
	}
	return frame
}

// sliceSource returns fresh frames one by one and reports exhaustion after the last one
type sliceSource struct {
	mu     sync.Mutex
	count  int
	next   int
	closed bool
}

func newSliceSource(count int) *sliceSource {
	return &sliceSource{count: count}
}

func (source *sliceSource) NextFrame(ctx context.Context) (int, *image.RGBA, bool) {
	source.mu.Lock()
	defer source.mu.Unlock()
	if ctx.Err() != nil || source.next >= source.count {
		return 0, nil, false
	}
	numFrame := source.next
	source.next++
	return numFrame, newTestFrame(4, 4, color.RGBA{A: 255}), true
}

func (source *sliceSource) Seek(numFrame int) error {
	source.mu.Lock()
	defer source.mu.Unlock()
	if numFrame < 0 || numFrame > source.count {
		return errors.Errorf("frame %d is out of range", numFrame)
	}
	source.next = numFrame
	return nil
}

func (source *sliceSource) Len() int              { return source.count }
func (source *sliceSource) FPS() float64          { return 25 }
func (source *sliceSource) FrameSize() (int, int) { return 4, 4 }
func (source *sliceSource) Close() error {
	source.mu.Lock()
	source.closed = true
	source.mu.Unlock()
	return nil
}

// chanSource blocks until a frame is sent or ctx is cancelled. Closing frames exhausts it
type chanSource struct {
	frames chan *image.RGBA
	next   int
	played chan struct{}
}

func newChanSource() *chanSource {
	return &chanSource{
		frames: make(chan *image.RGBA),
		played: make(chan struct{}),
	}
}

func (source *chanSource) Play() error {
	close(source.played)
	return nil
}

func (source *chanSource) NextFrame(ctx context.Context) (int, *image.RGBA, bool) {
	select {
	case frame, ok := <-source.frames:
		if !ok {
			return 0, nil, false
		}
		numFrame := source.next
		source.next++
		return numFrame, frame, true
	case <-ctx.Done():
		return 0, nil, false
	}
}

func (source *chanSource) FPS() float64          { return 30 }
func (source *chanSource) FrameSize() (int, int) { return 4, 4 }
func (source *chanSource) Close() error          { return nil }

// recordingSink stores red channel of the top-left pixel of every output frame
type recordingSink struct {
	mu      sync.Mutex
	frames  []int
	tags    []uint8
	outputs chan int
	closed  bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{outputs: make(chan int, 1024)}
}

func (sink *recordingSink) OutputFrame(numFrame int, frame *image.RGBA) error {
	sink.mu.Lock()
	sink.frames = append(sink.frames, numFrame)
	sink.tags = append(sink.tags, frame.RGBAAt(0, 0).R)
	sink.mu.Unlock()
	sink.outputs <- numFrame
	return nil
}

func (sink *recordingSink) Close() error {
	sink.mu.Lock()
	sink.closed = true
	sink.mu.Unlock()
	return nil
}

func (sink *recordingSink) recorded() ([]int, []uint8) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	return append([]int(nil), sink.frames...), append([]uint8(nil), sink.tags...)
}

func (sink *recordingSink) waitOutputs(t *testing.T, count int) {
	t.Helper()
	deadline := time.After(testTimeout)
	for i := 0; i < count; i++ {
		select {
		case <-sink.outputs:
		case <-deadline:
			t.Fatalf("Expected %d outputs, got %d", count, i)
		}
	}
}

// eventRecorder collects processor events
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (recorder *eventRecorder) listen(event Event) {
	recorder.mu.Lock()
	recorder.events = append(recorder.events, event)
	recorder.mu.Unlock()
}

func (recorder *eventRecorder) kinds(filter ...EventKind) []EventKind {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	kinds := make([]EventKind, 0, len(recorder.events))
	for _, event := range recorder.events {
		if len(filter) == 0 {
			kinds = append(kinds, event.Kind)
			continue
		}
		for _, kind := range filter {
			if event.Kind == kind {
				kinds = append(kinds, event.Kind)
				break
			}
		}
	}
	return kinds
}

func (recorder *eventRecorder) count(kind EventKind) int {
	return len(recorder.kinds(kind))
}

// tagModification writes tag into red channel of the top-left pixel
func tagModification(tag uint8) Modification {
	return ModificationFunc(func(_ int, frame *image.RGBA) *image.RGBA {
		pixel := frame.RGBAAt(0, 0)
		pixel.R = tag
		frame.SetRGBA(0, 0, pixel)
		return frame
	})
}

// tagAnalyzer tags every frame with its index plus one
func tagAnalyzer(analyzed *[]int, mu *sync.Mutex) Analyzer {
	return AnalyzerFunc(func(numFrame int, _ *image.RGBA) (Modification, error) {
		mu.Lock()
		*analyzed = append(*analyzed, numFrame)
		mu.Unlock()
		return tagModification(uint8(numFrame + 1)), nil
	})
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatal("Processor did not exit in time")
	}
}
