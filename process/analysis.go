package process

import (
	"image"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// AnalysisOptions controls how often frames are analyzed and how long results are reused
type AnalysisOptions struct {
	// FrameRatio analyzes only frames whose index is divisible by it. Values below 2 analyze every frame
	FrameRatio int
	// ModificationPersistence is how many output frames after the first one may reuse a modification
	ModificationPersistence int
	// AreaOfInterest restricts analysis and modification to a part of the frame
	AreaOfInterest *AreaOfInterest
}

// uses returns how many output frames may apply a single modification.
// With sampling every skipped frame must be able to reuse the last result.
func (opts AnalysisOptions) uses() int {
	reuse := max(opts.ModificationPersistence, 0)
	if opts.FrameRatio > 1 {
		reuse = max(reuse, opts.FrameRatio-1)
	}
	return reuse + 1
}

func (opts AnalysisOptions) shouldAnalyze(numFrame int) bool {
	if opts.FrameRatio <= 1 {
		return true
	}
	return numFrame%opts.FrameRatio == 0
}

// Validate checks options
func (opts AnalysisOptions) Validate() error {
	if opts.FrameRatio < 0 {
		return errors.Errorf("frame ratio must not be negative, got %d", opts.FrameRatio)
	}
	if opts.ModificationPersistence < 0 {
		return errors.Errorf("modification persistence must not be negative, got %d", opts.ModificationPersistence)
	}
	if opts.AreaOfInterest != nil {
		return opts.AreaOfInterest.Validate()
	}
	return nil
}

// analysisStage is the part shared by synchronous and asynchronous analyzer processors:
// the swappable analyzer, sampling and persistence policy, and the current modification slot
type analysisStage struct {
	// analyzerMu is read-locked for the whole analysis and write-locked to swap the analyzer
	analyzerMu sync.RWMutex
	analyzer   Analyzer

	opts   AnalysisOptions
	slot   *modificationSlot
	timing *TimeLogger
	logger logrus.FieldLogger
}

func newAnalysisStage(analyzer Analyzer, opts AnalysisOptions, logger logrus.FieldLogger) (*analysisStage, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "Invalid analysis options")
	}
	if analyzer == nil {
		analyzer = NoChange
	}
	return &analysisStage{
		analyzer: analyzer,
		opts:     opts,
		slot:     newModificationSlot(),
		timing:   NewTimeLogger("analyze", logger, DefaultTimeLoggerWindow),
		logger:   logger,
	}, nil
}

// input returns the part of the frame analyzer should see
func (stage *analysisStage) input(frame *image.RGBA, copyFrame bool) *image.RGBA {
	if stage.opts.AreaOfInterest != nil {
		return stage.opts.AreaOfInterest.ExtractFrom(frame)
	}
	if copyFrame {
		return cloneRGBA(frame)
	}
	return frame
}

// analyze runs analyzer and stores the result. Failures are logged and leave the slot untouched
func (stage *analysisStage) analyze(numFrame int, frame *image.RGBA) bool {
	stage.analyzerMu.RLock()
	defer stage.analyzerMu.RUnlock()

	stop := stage.timing.Track()
	modification, err := stage.analyzer.Analyze(numFrame, frame)
	stop()
	if err != nil {
		stage.logger.WithError(err).WithField("frame", numFrame).Warn("Can't analyze frame")
		return false
	}
	if modification == nil {
		modification = NoModification
	}
	if !stage.slot.store(numFrame, modification, stage.opts.uses()) {
		stage.logger.WithField("frame", numFrame).Debug("Stale modification discarded")
	}
	return true
}

// apply uses current modification (if any) on the frame
func (stage *analysisStage) apply(numFrame int, frame *image.RGBA) *image.RGBA {
	modification, _, ok := stage.slot.take()
	if !ok {
		return frame
	}
	area := stage.opts.AreaOfInterest
	if area == nil {
		return modification.Modify(numFrame, frame)
	}
	part := modification.Modify(numFrame, area.ExtractFrom(frame))
	if part == nil {
		return frame
	}
	return area.ReplaceOn(frame, part)
}

func (stage *analysisStage) currentAnalyzer() Analyzer {
	stage.analyzerMu.RLock()
	defer stage.analyzerMu.RUnlock()
	return stage.analyzer
}

// swap replaces analyzer once in-flight analysis is over. Modification of the old analyzer is dropped
func (stage *analysisStage) swap(analyzer Analyzer) (Analyzer, bool) {
	if analyzer == nil {
		analyzer = NoChange
	}
	stage.analyzerMu.Lock()
	defer stage.analyzerMu.Unlock()
	old := stage.analyzer
	if sameValue(old, analyzer) {
		return old, false
	}
	stage.analyzer = analyzer
	stage.slot.clear()
	return old, true
}

func cloneRGBA(frame *image.RGBA) *image.RGBA {
	clone := image.RGBA{
		Pix:    make([]uint8, len(frame.Pix)),
		Stride: frame.Stride,
		Rect:   frame.Rect,
	}
	copy(clone.Pix, frame.Pix)
	return &clone
}
