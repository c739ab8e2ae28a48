package process

import (
	"context"
	"image"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// State is a state of processor's lifecycle
type State uint16

const (
	// StateIdle means processor was never started or has been stopped
	StateIdle State = iota
	// StateRunning means frames are being pulled, manipulated and emitted
	StateRunning
	// StatePaused means the loop is blocked until resumed or stopped
	StatePaused
	// StateStopping means stop was requested and the loop has not exited yet
	StateStopping
	// StateFinished means the source was exhausted
	StateFinished
)

func (state State) String() string {
	switch state {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// ManipulateFunc turns a captured frame into the frame to emit
type ManipulateFunc func(numFrame int, frame *image.RGBA) *image.RGBA

// processorHooks are extension points used by analyzer processors
type processorHooks struct {
	// onStart is called before the loop goroutine is spawned. ctx is cancelled when the loop exits
	onStart func(ctx context.Context)
	// onExit is called by the loop goroutine after the loop ends, before the state changes
	onExit func()
}

// Option configures processor
type Option func(*options)

type options struct {
	logger logrus.FieldLogger
	id     uuid.UUID
}

// WithLogger sets logger used by processor
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithID sets processor identifier reported in events
func WithID(id uuid.UUID) Option {
	return func(o *options) {
		o.id = id
	}
}

func newOptions(opts []Option) options {
	o := options{
		id: uuid.New(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logrus.StandardLogger()
	}
	o.logger = o.logger.WithField("processor", o.id.String())
	return o
}

// FrameProcessor pulls frames from a source, manipulates them and pushes results to a sink
// on a dedicated goroutine. It can be paused, resumed, stopped and started again.
type FrameProcessor struct {
	id     uuid.UUID
	logger logrus.FieldLogger

	mu       sync.Mutex
	cond     *sync.Cond
	state    State
	numFrame int
	cancel   context.CancelFunc
	done     chan struct{}

	inputMu sync.Mutex
	source  Source

	outputMu sync.Mutex
	sink     Sink

	manipulate ManipulateFunc
	hooks      processorHooks
	listeners  listeners
}

// NewFrameProcessor creates processor in idle state. Nil manipulate passes frames through
func NewFrameProcessor(source Source, sink Sink, manipulate ManipulateFunc, opts ...Option) *FrameProcessor {
	o := newOptions(opts)
	if manipulate == nil {
		manipulate = func(_ int, frame *image.RGBA) *image.RGBA {
			return frame
		}
	}
	processor := FrameProcessor{
		id:         o.id,
		logger:     o.logger,
		state:      StateIdle,
		source:     source,
		sink:       sink,
		manipulate: manipulate,
		done:       closedChan(),
	}
	processor.cond = sync.NewCond(&processor.mu)
	return &processor
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// ID returns processor's identifier
func (processor *FrameProcessor) ID() uuid.UUID {
	return processor.id
}

// State returns current state
func (processor *FrameProcessor) State() State {
	processor.mu.Lock()
	defer processor.mu.Unlock()
	return processor.state
}

// IsAlive returns true while running or paused
func (processor *FrameProcessor) IsAlive() bool {
	state := processor.State()
	return state == StateRunning || state == StatePaused
}

// IsPaused returns true while paused
func (processor *FrameProcessor) IsPaused() bool {
	return processor.State() == StatePaused
}

// NumFrame returns index of the last pulled frame
func (processor *FrameProcessor) NumFrame() int {
	processor.mu.Lock()
	defer processor.mu.Unlock()
	return processor.numFrame
}

// Done returns channel closed once the loop goroutine has exited
func (processor *FrameProcessor) Done() <-chan struct{} {
	processor.mu.Lock()
	defer processor.mu.Unlock()
	return processor.done
}

// AddListener registers listener for processor events
func (processor *FrameProcessor) AddListener(listener Listener) ListenerID {
	return processor.listeners.add(listener)
}

// RemoveListener unregisters listener. Returns false if it was not registered
func (processor *FrameProcessor) RemoveListener(id ListenerID) bool {
	return processor.listeners.remove(id)
}

// HasListener returns true if listener is registered
func (processor *FrameProcessor) HasListener(id ListenerID) bool {
	return processor.listeners.has(id)
}

func (processor *FrameProcessor) fire(kind EventKind, numFrame int) {
	processor.listeners.fire(Event{Kind: kind, ProcessorID: processor.id, NumFrame: numFrame})
}

// Source returns current source
func (processor *FrameProcessor) Source() Source {
	processor.inputMu.Lock()
	defer processor.inputMu.Unlock()
	return processor.source
}

// SetSource replaces source. Waits for a pending NextFrame call to return
func (processor *FrameProcessor) SetSource(source Source) {
	processor.inputMu.Lock()
	old := processor.source
	processor.source = source
	processor.inputMu.Unlock()
	if !sameValue(old, source) {
		processor.listeners.fire(Event{Kind: EventSourceChanged, ProcessorID: processor.id, NumFrame: processor.NumFrame(), Old: old, New: source})
	}
}

// Sink returns current sink
func (processor *FrameProcessor) Sink() Sink {
	processor.outputMu.Lock()
	defer processor.outputMu.Unlock()
	return processor.sink
}

// SetSink replaces sink. Waits for a pending OutputFrame call to return
func (processor *FrameProcessor) SetSink(sink Sink) {
	processor.outputMu.Lock()
	old := processor.sink
	processor.sink = sink
	processor.outputMu.Unlock()
	if !sameValue(old, sink) {
		processor.listeners.fire(Event{Kind: EventSinkChanged, ProcessorID: processor.id, NumFrame: processor.NumFrame(), Old: old, New: sink})
	}
}

// Seek moves current source to the frame with given index. Waits for a pending NextFrame call to return
func (processor *FrameProcessor) Seek(numFrame int) error {
	processor.inputMu.Lock()
	defer processor.inputMu.Unlock()
	seekable, ok := processor.source.(Seekable)
	if !ok {
		return ErrNotSeekable
	}
	return seekable.Seek(numFrame)
}

// FPS returns source's frame rate
func (processor *FrameProcessor) FPS() float64 {
	processor.inputMu.Lock()
	defer processor.inputMu.Unlock()
	return processor.source.FPS()
}

// FrameSize returns source's frame size
func (processor *FrameProcessor) FrameSize() (int, int) {
	processor.inputMu.Lock()
	defer processor.inputMu.Unlock()
	return processor.source.FrameSize()
}

// Start spawns the processing loop and returns immediately.
// Processor must be idle or finished.
func (processor *FrameProcessor) Start() error {
	processor.mu.Lock()
	if processor.state != StateIdle && processor.state != StateFinished {
		state := processor.state
		processor.mu.Unlock()
		return errors.Wrapf(ErrAlreadyRunning, "state '%s'", state)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	processor.state = StateRunning
	processor.numFrame = 0
	processor.cancel = cancel
	processor.done = done
	processor.mu.Unlock()

	processor.logger.Info("Processor started")
	if processor.hooks.onStart != nil {
		processor.hooks.onStart(ctx)
	}
	processor.fire(EventStarted, 0)
	go processor.run(ctx, cancel, done)
	return nil
}

// Pause blocks the loop before it pulls next frame
func (processor *FrameProcessor) Pause() error {
	processor.mu.Lock()
	if processor.state != StateRunning {
		state := processor.state
		processor.mu.Unlock()
		return errors.Wrapf(ErrNotRunning, "can't pause in state '%s'", state)
	}
	processor.state = StatePaused
	numFrame := processor.numFrame
	processor.mu.Unlock()

	processor.logger.Info("Processor paused")
	processor.fire(EventPaused, numFrame)
	return nil
}

// Resume wakes the paused loop
func (processor *FrameProcessor) Resume() error {
	processor.mu.Lock()
	if processor.state != StatePaused {
		state := processor.state
		processor.mu.Unlock()
		return errors.Wrapf(ErrNotPaused, "can't resume in state '%s'", state)
	}
	processor.state = StateRunning
	processor.cond.Broadcast()
	numFrame := processor.numFrame
	processor.mu.Unlock()

	processor.logger.Info("Processor resumed")
	processor.fire(EventResumed, numFrame)
	return nil
}

// Stop requests the loop to exit. It does not wait, see StopAndWait
func (processor *FrameProcessor) Stop() error {
	processor.mu.Lock()
	if processor.state != StateRunning && processor.state != StatePaused {
		state := processor.state
		processor.mu.Unlock()
		return errors.Wrapf(ErrNotRunning, "can't stop in state '%s'", state)
	}
	processor.state = StateStopping
	processor.cond.Broadcast()
	cancel := processor.cancel
	numFrame := processor.numFrame
	processor.mu.Unlock()

	// Unblocks sources waiting for the next frame
	cancel()
	processor.logger.Info("Processor stop requested")
	processor.fire(EventStopped, numFrame)
	return nil
}

// StopAndWait stops the processor and blocks until the loop goroutine has exited
func (processor *FrameProcessor) StopAndWait() error {
	done := processor.Done()
	if err := processor.Stop(); err != nil {
		return err
	}
	<-done
	return nil
}

// Wait blocks until the loop goroutine has exited or ctx is done
func (processor *FrameProcessor) Wait(ctx context.Context) error {
	select {
	case <-processor.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// proceed blocks while paused. Returns false when the loop must exit
func (processor *FrameProcessor) proceed() bool {
	processor.mu.Lock()
	defer processor.mu.Unlock()
	for processor.state == StatePaused {
		processor.cond.Wait()
	}
	return processor.state == StateRunning
}

func (processor *FrameProcessor) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	exhausted := processor.loop(ctx)
	cancel()
	if processor.hooks.onExit != nil {
		processor.hooks.onExit()
	}
	processor.exit(exhausted)
	close(done)
}

// loop runs until stop is requested or the source is exhausted. Returns true in the latter case
func (processor *FrameProcessor) loop(ctx context.Context) bool {
	played := false
	for {
		if !processor.proceed() {
			return false
		}

		processor.inputMu.Lock()
		if !played {
			played = true
			if player, ok := processor.source.(Player); ok {
				if err := player.Play(); err != nil {
					processor.logger.WithError(err).Warn("Source can't play")
				}
			}
		}
		numFrame, frame, ok := processor.source.NextFrame(ctx)
		processor.inputMu.Unlock()

		if !ok || frame == nil {
			return true
		}

		processor.mu.Lock()
		processor.numFrame = numFrame
		processor.mu.Unlock()
		processor.fire(EventFrameInputted, numFrame)

		modified := processor.manipulate(numFrame, frame)
		if modified == nil {
			modified = frame
		}
		if processor.stopping() {
			return false
		}

		processor.outputMu.Lock()
		err := processor.sink.OutputFrame(numFrame, modified)
		processor.outputMu.Unlock()
		if err != nil {
			processor.logger.WithError(err).WithField("frame", numFrame).Warn("Can't output frame")
			continue
		}
		processor.fire(EventFrameOutputted, numFrame)
	}
}

func (processor *FrameProcessor) stopping() bool {
	processor.mu.Lock()
	defer processor.mu.Unlock()
	return processor.state == StateStopping
}

// exit moves processor out of the running states. Exhaustion of the source finishes
// the processor unless a stop was already requested.
func (processor *FrameProcessor) exit(exhausted bool) {
	processor.mu.Lock()
	finished := exhausted && processor.state != StateStopping
	if finished {
		processor.state = StateFinished
	} else {
		processor.state = StateIdle
	}
	numFrame := processor.numFrame
	processor.mu.Unlock()

	if finished {
		processor.logger.WithField("frame", numFrame).Info("Source exhausted")
		processor.fire(EventFinished, numFrame)
		return
	}
	processor.logger.WithField("frame", numFrame).Info("Processor stopped")
}

// Close releases source and sink
func (processor *FrameProcessor) Close() error {
	processor.inputMu.Lock()
	defer processor.inputMu.Unlock()
	processor.outputMu.Lock()
	defer processor.outputMu.Unlock()

	var result error
	if err := processor.source.Close(); err != nil {
		result = errors.Wrap(err, "Can't close source")
	}
	if err := processor.sink.Close(); err != nil {
		if result != nil {
			processor.logger.WithError(err).Warn("Can't close sink")
		} else {
			result = errors.Wrap(err, "Can't close sink")
		}
	}
	return result
}
