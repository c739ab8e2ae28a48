package process

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessorStartOnce(t *testing.T) {
	source := newChanSource()
	recorder := &eventRecorder{}
	processor := NewFrameProcessor(source, newRecordingSink(), nil)
	processor.AddListener(recorder.listen)

	require.NoError(t, processor.Start())
	assert.ErrorIs(t, processor.Start(), ErrAlreadyRunning)
	assert.True(t, processor.IsAlive())

	select {
	case <-source.played:
	case <-time.After(testTimeout):
		t.Fatal("Source was not played")
	}

	require.NoError(t, processor.StopAndWait())
	assert.Equal(t, 1, recorder.count(EventStarted))
	assert.Equal(t, 1, recorder.count(EventStopped))
	assert.Equal(t, 0, recorder.count(EventFinished))
	assert.Equal(t, StateIdle, processor.State())
	assert.False(t, processor.IsAlive())
}

func TestProcessorWrongStates(t *testing.T) {
	recorder := &eventRecorder{}
	processor := NewFrameProcessor(newSliceSource(0), newRecordingSink(), nil)
	processor.AddListener(recorder.listen)

	assert.ErrorIs(t, processor.Pause(), ErrNotRunning)
	assert.ErrorIs(t, processor.Resume(), ErrNotPaused)
	assert.ErrorIs(t, processor.Stop(), ErrNotRunning)
	assert.ErrorIs(t, processor.StopAndWait(), ErrNotRunning)
	assert.Empty(t, recorder.kinds())
	assert.Equal(t, StateIdle, processor.State())
}

func TestProcessorPauseResume(t *testing.T) {
	source := newChanSource()
	sink := newRecordingSink()
	recorder := &eventRecorder{}
	processor := NewFrameProcessor(source, sink, nil)
	processor.AddListener(recorder.listen)
	require.NoError(t, processor.Start())

	source.frames <- newTestFrame(4, 4, color.RGBA{})
	sink.waitOutputs(t, 1)

	require.NoError(t, processor.Pause())
	assert.True(t, processor.IsPaused())
	assert.ErrorIs(t, processor.Pause(), ErrNotRunning)
	assert.ErrorIs(t, processor.Start(), ErrAlreadyRunning)

	require.NoError(t, processor.Resume())
	assert.False(t, processor.IsPaused())
	source.frames <- newTestFrame(4, 4, color.RGBA{})
	sink.waitOutputs(t, 1)

	require.NoError(t, processor.Pause())
	require.NoError(t, processor.StopAndWait())

	want := []EventKind{EventStarted, EventPaused, EventResumed, EventPaused, EventStopped}
	got := recorder.kinds(EventStarted, EventPaused, EventResumed, EventStopped, EventFinished)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unexpected lifecycle events (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, processor.NumFrame())
}

func TestProcessorFinishesAndRestarts(t *testing.T) {
	sink := newRecordingSink()
	recorder := &eventRecorder{}
	processor := NewFrameProcessor(newSliceSource(3), sink, nil)
	processor.AddListener(recorder.listen)

	require.NoError(t, processor.Start())
	waitDone(t, processor.Done())
	assert.Equal(t, StateFinished, processor.State())
	assert.ErrorIs(t, processor.Stop(), ErrNotRunning)

	frames, _ := sink.recorded()
	assert.Equal(t, []int{0, 1, 2}, frames)
	assert.Equal(t, 3, recorder.count(EventFrameInputted))
	assert.Equal(t, 3, recorder.count(EventFrameOutputted))
	assert.Equal(t, 1, recorder.count(EventFinished))

	processor.SetSource(newSliceSource(2))
	require.NoError(t, processor.Start())
	waitDone(t, processor.Done())
	assert.Equal(t, StateFinished, processor.State())
	assert.Equal(t, 2, recorder.count(EventStarted))
	assert.Equal(t, 2, recorder.count(EventFinished))
	assert.Equal(t, 1, recorder.count(EventSourceChanged))
}

func TestProcessorWait(t *testing.T) {
	processor := NewFrameProcessor(newChanSource(), newRecordingSink(), nil)
	require.NoError(t, processor.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, processor.Wait(ctx), context.DeadlineExceeded)

	require.NoError(t, processor.Stop())
	require.NoError(t, processor.Wait(context.Background()))
}

func TestProcessorListeners(t *testing.T) {
	id := uuid.New()
	processor := NewFrameProcessor(newSliceSource(0), newRecordingSink(), nil, WithID(id))
	assert.Equal(t, id, processor.ID())

	var received []Event
	listenerID := processor.AddListener(func(event Event) {
		received = append(received, event)
	})
	assert.True(t, processor.HasListener(listenerID))

	sink := newRecordingSink()
	processor.SetSink(sink)
	processor.SetSink(sink)
	require.Len(t, received, 1)
	assert.Equal(t, EventSinkChanged, received[0].Kind)
	assert.Equal(t, id, received[0].ProcessorID)
	assert.Same(t, sink, received[0].New)
	assert.Same(t, sink, processor.Sink())

	assert.True(t, processor.RemoveListener(listenerID))
	assert.False(t, processor.RemoveListener(listenerID))
	assert.False(t, processor.HasListener(listenerID))
	processor.SetSink(newRecordingSink())
	assert.Len(t, received, 1)

	assert.Equal(t, 25.0, processor.FPS())
	width, height := processor.FrameSize()
	assert.Equal(t, 4, width)
	assert.Equal(t, 4, height)
}

func TestProcessorClose(t *testing.T) {
	source := newSliceSource(0)
	sink := newRecordingSink()
	processor := NewFrameProcessor(source, sink, nil)
	require.NoError(t, processor.Close())
	assert.True(t, source.closed)
	assert.True(t, sink.closed)
}

func TestAnalyzerProcessorPersistence(t *testing.T) {
	var mu sync.Mutex
	var analyzed []int
	sink := newRecordingSink()
	processor, err := NewAnalyzerProcessor(newSliceSource(5), sink, tagAnalyzer(&analyzed, &mu), AnalysisOptions{FrameRatio: 2})
	require.NoError(t, err)

	require.NoError(t, processor.Start())
	waitDone(t, processor.Done())

	frames, tags := sink.recorded()
	if diff := cmp.Diff([]int{0, 1, 2, 3, 4}, frames); diff != "" {
		t.Errorf("Unexpected frames (-want +got):\n%s", diff)
	}
	// odd frames reuse modification of the previous analyzed frame
	if diff := cmp.Diff([]uint8{1, 1, 3, 3, 5}, tags); diff != "" {
		t.Errorf("Unexpected modifications (-want +got):\n%s", diff)
	}
	mu.Lock()
	assert.Equal(t, []int{0, 2, 4}, analyzed)
	mu.Unlock()
	assert.Equal(t, 3, processor.AnalysisTiming().Count())
}

func TestAnalyzerProcessorFailurePassesThrough(t *testing.T) {
	sink := newRecordingSink()
	failing := AnalyzerFunc(func(int, *image.RGBA) (Modification, error) {
		return nil, assert.AnError
	})
	processor, err := NewAnalyzerProcessor(newSliceSource(2), sink, failing, AnalysisOptions{})
	require.NoError(t, err)
	require.NoError(t, processor.Start())
	waitDone(t, processor.Done())

	_, tags := sink.recorded()
	assert.Equal(t, []uint8{0, 0}, tags)
}

func TestAnalyzerProcessorAreaOfInterest(t *testing.T) {
	var sizes []image.Rectangle
	var received *image.RGBA
	analyzer := AnalyzerFunc(func(_ int, frame *image.RGBA) (Modification, error) {
		sizes = append(sizes, frame.Bounds())
		return ModificationFunc(func(_ int, part *image.RGBA) *image.RGBA {
			return newTestFrame(part.Bounds().Dx(), part.Bounds().Dy(), color.RGBA{R: 200, A: 255})
		}), nil
	})
	sink := callbackSink(func(_ int, frame *image.RGBA) {
		received = frame
	})
	area := AreaOfInterest{X: 1, Y: 1, Width: 2, Height: 2}
	processor, err := NewAnalyzerProcessor(newSliceSource(1), sink, analyzer, AnalysisOptions{AreaOfInterest: &area})
	require.NoError(t, err)
	require.NoError(t, processor.Start())
	waitDone(t, processor.Done())

	require.Equal(t, []image.Rectangle{image.Rect(0, 0, 2, 2)}, sizes)
	require.NotNil(t, received)
	assert.Equal(t, uint8(200), received.RGBAAt(1, 1).R)
	assert.Equal(t, uint8(200), received.RGBAAt(2, 2).R)
	assert.Equal(t, uint8(0), received.RGBAAt(0, 0).R)
	assert.Equal(t, uint8(0), received.RGBAAt(3, 3).R)
}

func TestAnalyzerProcessorSetAnalyzer(t *testing.T) {
	recorder := &eventRecorder{}
	processor, err := NewAnalyzerProcessor(newSliceSource(0), newRecordingSink(), nil, AnalysisOptions{})
	require.NoError(t, err)
	processor.AddListener(recorder.listen)

	processor.SetAnalyzer(NoChange)
	assert.Equal(t, 0, recorder.count(EventAnalyzerChanged))

	var mu sync.Mutex
	var analyzed []int
	next := tagAnalyzer(&analyzed, &mu)
	processor.SetAnalyzer(next)
	assert.Equal(t, 1, recorder.count(EventAnalyzerChanged))
	assert.NotNil(t, processor.Analyzer())

	_, err = NewAnalyzerProcessor(newSliceSource(0), newRecordingSink(), nil, AnalysisOptions{FrameRatio: -2})
	assert.Error(t, err)
}

func TestProcessorSeek(t *testing.T) {
	sink := newRecordingSink()
	processor := NewFrameProcessor(newSliceSource(10), sink, nil)
	require.NoError(t, processor.Seek(7))
	assert.Error(t, processor.Seek(11))

	require.NoError(t, processor.Start())
	waitDone(t, processor.Done())
	frames, _ := sink.recorded()
	assert.Equal(t, []int{7, 8, 9}, frames)

	processor.SetSource(newChanSource())
	assert.ErrorIs(t, processor.Seek(0), ErrNotSeekable)
}

func TestSeekTime(t *testing.T) {
	source := newSliceSource(100)
	assert.Equal(t, 4*time.Second, Duration(source))

	require.NoError(t, SeekTime(source, 2*time.Second))
	numFrame, _, ok := source.NextFrame(context.Background())
	require.True(t, ok)
	assert.Equal(t, 50, numFrame)

	// 30ms is closer to frame 1 than to frame 0 at 25 fps
	require.NoError(t, SeekTime(source, 30*time.Millisecond))
	numFrame, _, ok = source.NextFrame(context.Background())
	require.True(t, ok)
	assert.Equal(t, 1, numFrame)

	assert.Error(t, SeekTime(source, time.Minute))
}

type callbackSink func(numFrame int, frame *image.RGBA)

func (sink callbackSink) OutputFrame(numFrame int, frame *image.RGBA) error {
	sink(numFrame, frame)
	return nil
}

func (sink callbackSink) Close() error { return nil }

