package process

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
)

// AsyncStats are counters of asynchronous analysis
type AsyncStats struct {
	// Published is number of frames handed to workers
	Published uint64
	// Dropped is number of frames overwritten before any worker took them
	Dropped uint64
	// Analyzed is number of frames analyzed successfully
	Analyzed uint64
	// Failed is number of frames analyzer returned an error for
	Failed uint64
}

// AsyncAnalyzerProcessor analyzes frames on a pool of worker goroutines.
// The processing goroutine never waits for analysis: it publishes sampled frames into
// a single-slot mailbox and applies whatever modification is the most recent one.
type AsyncAnalyzerProcessor struct {
	*FrameProcessor
	stage   *analysisStage
	box     *mailbox
	workers int
	wg      sync.WaitGroup

	analyzed uint64
	failed   uint64
}

// NewAsyncAnalyzerProcessor creates asynchronous analyzer processor with the given number of workers (at least 1)
func NewAsyncAnalyzerProcessor(source Source, sink Sink, analyzer Analyzer, analysis AnalysisOptions, workers int, opts ...Option) (*AsyncAnalyzerProcessor, error) {
	processor := AsyncAnalyzerProcessor{
		box:     newMailbox(),
		workers: max(workers, 1),
	}
	processor.FrameProcessor = NewFrameProcessor(source, sink, processor.manipulate, opts...)
	stage, err := newAnalysisStage(analyzer, analysis, processor.logger.WithField("component", "async-analyzer-processor"))
	if err != nil {
		return nil, err
	}
	processor.stage = stage
	processor.hooks.onStart = processor.startWorkers
	processor.hooks.onExit = processor.box.close
	return &processor, nil
}

func (processor *AsyncAnalyzerProcessor) startWorkers(ctx context.Context) {
	// workers of the previous run must not take frames of this one
	processor.wg.Wait()
	processor.stage.slot.clear()
	processor.box.reopen()
	for i := 0; i < processor.workers; i++ {
		processor.wg.Add(1)
		go processor.work(ctx, i)
	}
}

func (processor *AsyncAnalyzerProcessor) work(ctx context.Context, worker int) {
	defer processor.wg.Done()
	logger := processor.stage.logger.WithField("worker", worker)
	logger.Debug("Worker started")
	for {
		numFrame, frame, ok := processor.box.take()
		if !ok || ctx.Err() != nil {
			logger.Debug("Worker stopped")
			return
		}
		if processor.stage.analyze(numFrame, frame) {
			atomic.AddUint64(&processor.analyzed, 1)
		} else {
			atomic.AddUint64(&processor.failed, 1)
		}
	}
}

func (processor *AsyncAnalyzerProcessor) manipulate(numFrame int, frame *image.RGBA) *image.RGBA {
	if processor.stage.opts.shouldAnalyze(numFrame) {
		processor.box.publish(numFrame, processor.stage.input(frame, true))
	}
	return processor.stage.apply(numFrame, frame)
}

// StopAndJoin stops the processor and blocks until the loop and every worker have exited
func (processor *AsyncAnalyzerProcessor) StopAndJoin() error {
	if err := processor.StopAndWait(); err != nil {
		return err
	}
	processor.wg.Wait()
	return nil
}

// Join blocks until every worker has exited. Workers exit once the loop does
func (processor *AsyncAnalyzerProcessor) Join() {
	<-processor.Done()
	processor.wg.Wait()
}

// Analyzer returns active analyzer
func (processor *AsyncAnalyzerProcessor) Analyzer() Analyzer {
	return processor.stage.currentAnalyzer()
}

// SetAnalyzer replaces active analyzer. Waits for in-flight analysis to finish
// so that no worker runs against a half-swapped analyzer
func (processor *AsyncAnalyzerProcessor) SetAnalyzer(analyzer Analyzer) {
	if analyzer == nil {
		analyzer = NoChange
	}
	old, changed := processor.stage.swap(analyzer)
	if changed {
		processor.listeners.fire(Event{Kind: EventAnalyzerChanged, ProcessorID: processor.id, NumFrame: processor.NumFrame(), Old: old, New: analyzer})
	}
}

// Options returns analysis options
func (processor *AsyncAnalyzerProcessor) Options() AnalysisOptions {
	return processor.stage.opts
}

// Workers returns size of the worker pool
func (processor *AsyncAnalyzerProcessor) Workers() int {
	return processor.workers
}

// AnalysisTiming returns logger collecting analysis durations
func (processor *AsyncAnalyzerProcessor) AnalysisTiming() *TimeLogger {
	return processor.stage.timing
}

// Stats returns analysis counters
func (processor *AsyncAnalyzerProcessor) Stats() AsyncStats {
	return AsyncStats{
		Published: atomic.LoadUint64(&processor.box.published),
		Dropped:   atomic.LoadUint64(&processor.box.drops),
		Analyzed:  atomic.LoadUint64(&processor.analyzed),
		Failed:    atomic.LoadUint64(&processor.failed),
	}
}
