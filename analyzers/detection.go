package analyzers

import (
	"image"
	"sync"

	"github.com/LdDl/framepipe/mot"
	"github.com/LdDl/framepipe/process"
	"github.com/pkg/errors"
)

// Detector finds objects on a frame. It is the black-box detection model
type Detector interface {
	Detect(numFrame int, frame *image.RGBA) (*mot.FrameObjectDetection, error)
}

// DetectorFunc is an adapter to use ordinary functions as Detector
type DetectorFunc func(numFrame int, frame *image.RGBA) (*mot.FrameObjectDetection, error)

// Detect implements Detector
func (fn DetectorFunc) Detect(numFrame int, frame *image.RGBA) (*mot.FrameObjectDetection, error) {
	return fn(numFrame, frame)
}

const (
	// MinThreshold is lower bound of detection score threshold
	MinThreshold = 0.0
	// MaxThreshold is upper bound of detection score threshold
	MaxThreshold = 1.0
	// ThresholdStep is how much IncreaseThreshold and DecreaseThreshold move the threshold
	ThresholdStep = 0.01
)

// ThresholdListener is notified after threshold changes
type ThresholdListener func(old, new float64)

// ObjectDetectionAnalyzer outlines objects found by the detector which score at least the threshold.
// Objects without score are always drawn.
type ObjectDetectionAnalyzer struct {
	*process.CompositeAnalyzer
	detector Detector

	mu        sync.RWMutex
	threshold float64
	style     Style
	listeners []ThresholdListener
}

// NewObjectDetectionAnalyzer creates analyzer. Nil child means process.NoChange
func NewObjectDetectionAnalyzer(detector Detector, threshold float64, style Style, child process.Analyzer) (*ObjectDetectionAnalyzer, error) {
	if detector == nil {
		return nil, errors.New("detector must not be nil")
	}
	if err := validateThreshold(threshold); err != nil {
		return nil, err
	}
	analyzer := ObjectDetectionAnalyzer{
		detector:  detector,
		threshold: threshold,
		style:     style,
	}
	analyzer.CompositeAnalyzer = process.NewCompositeAnalyzer(child, analyzer.analyze)
	return &analyzer, nil
}

func validateThreshold(threshold float64) error {
	if threshold < MinThreshold || threshold > MaxThreshold {
		return errors.Wrapf(process.ErrInvalidParameter, "threshold %.2f must be in range [%.2f, %.2f]", threshold, MinThreshold, MaxThreshold)
	}
	return nil
}

func (analyzer *ObjectDetectionAnalyzer) analyze(numFrame int, frame *image.RGBA, child process.Modification) (process.Modification, error) {
	detection, err := analyzer.detector.Detect(numFrame, frame)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't detect objects on frame %d", numFrame)
	}
	if detection == nil {
		return child, nil
	}
	analyzer.mu.RLock()
	threshold, style := analyzer.threshold, analyzer.style
	analyzer.mu.RUnlock()
	filtered := detection.FilterByScore(threshold)
	return process.Compose(child, NewDetectionModification(filtered.Objects(), style)), nil
}

// Threshold returns current score threshold
func (analyzer *ObjectDetectionAnalyzer) Threshold() float64 {
	analyzer.mu.RLock()
	defer analyzer.mu.RUnlock()
	return analyzer.threshold
}

// SetThreshold changes score threshold. Listeners are notified only if it actually changed
func (analyzer *ObjectDetectionAnalyzer) SetThreshold(threshold float64) error {
	if err := validateThreshold(threshold); err != nil {
		return err
	}
	analyzer.mu.Lock()
	old := analyzer.threshold
	if old == threshold {
		analyzer.mu.Unlock()
		return nil
	}
	analyzer.threshold = threshold
	listeners := append([]ThresholdListener(nil), analyzer.listeners...)
	analyzer.mu.Unlock()
	for _, listener := range listeners {
		listener(old, threshold)
	}
	return nil
}

// IncreaseThreshold moves threshold up by ThresholdStep up to MaxThreshold
func (analyzer *ObjectDetectionAnalyzer) IncreaseThreshold() {
	_ = analyzer.SetThreshold(min(analyzer.Threshold()+ThresholdStep, MaxThreshold))
}

// DecreaseThreshold moves threshold down by ThresholdStep down to MinThreshold
func (analyzer *ObjectDetectionAnalyzer) DecreaseThreshold() {
	_ = analyzer.SetThreshold(max(analyzer.Threshold()-ThresholdStep, MinThreshold))
}

// AddThresholdListener registers listener of threshold changes
func (analyzer *ObjectDetectionAnalyzer) AddThresholdListener(listener ThresholdListener) {
	analyzer.mu.Lock()
	analyzer.listeners = append(analyzer.listeners, listener)
	analyzer.mu.Unlock()
}

// Style returns drawing style
func (analyzer *ObjectDetectionAnalyzer) Style() Style {
	analyzer.mu.RLock()
	defer analyzer.mu.RUnlock()
	return analyzer.style
}

// SetStyle changes drawing style of next modifications
func (analyzer *ObjectDetectionAnalyzer) SetStyle(style Style) {
	analyzer.mu.Lock()
	analyzer.style = style
	analyzer.mu.Unlock()
}
