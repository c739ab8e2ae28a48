package process

import (
	"context"
	"image"
)

// AnalyzerProcessor analyzes frames synchronously on the processing goroutine
type AnalyzerProcessor struct {
	*FrameProcessor
	stage *analysisStage
}

// NewAnalyzerProcessor creates synchronous analyzer processor
func NewAnalyzerProcessor(source Source, sink Sink, analyzer Analyzer, analysis AnalysisOptions, opts ...Option) (*AnalyzerProcessor, error) {
	processor := AnalyzerProcessor{}
	processor.FrameProcessor = NewFrameProcessor(source, sink, processor.manipulate, opts...)
	stage, err := newAnalysisStage(analyzer, analysis, processor.logger.WithField("component", "analyzer-processor"))
	if err != nil {
		return nil, err
	}
	processor.stage = stage
	processor.hooks.onStart = func(_ context.Context) {
		stage.slot.clear()
	}
	return &processor, nil
}

func (processor *AnalyzerProcessor) manipulate(numFrame int, frame *image.RGBA) *image.RGBA {
	if processor.stage.opts.shouldAnalyze(numFrame) {
		processor.stage.analyze(numFrame, processor.stage.input(frame, false))
	}
	return processor.stage.apply(numFrame, frame)
}

// Analyzer returns active analyzer
func (processor *AnalyzerProcessor) Analyzer() Analyzer {
	return processor.stage.currentAnalyzer()
}

// SetAnalyzer replaces active analyzer. Waits for in-flight analysis to finish
func (processor *AnalyzerProcessor) SetAnalyzer(analyzer Analyzer) {
	if analyzer == nil {
		analyzer = NoChange
	}
	old, changed := processor.stage.swap(analyzer)
	if changed {
		processor.listeners.fire(Event{Kind: EventAnalyzerChanged, ProcessorID: processor.id, NumFrame: processor.NumFrame(), Old: old, New: analyzer})
	}
}

// Options returns analysis options
func (processor *AnalyzerProcessor) Options() AnalysisOptions {
	return processor.stage.opts
}

// AnalysisTiming returns logger collecting analysis durations
func (processor *AnalyzerProcessor) AnalysisTiming() *TimeLogger {
	return processor.stage.timing
}
