package analyzers

import (
	"image"
	"image/color"
	"math"
	"strconv"
	"sync"

	"github.com/LdDl/framepipe/process"
	"github.com/pkg/errors"
)

// unclassifiedColor is used for objects without classification score
var unclassifiedColor = color.RGBA{B: 255, A: 255}

// ClassifiedBox is a tracked box along with classification of its part of the frame
type ClassifiedBox struct {
	TrackedBox
	Classification Classification
	Classified     bool
}

// Color returns outline color: from green for score 0 to red for score 1, blue without score
func (box ClassifiedBox) Color() color.RGBA {
	if !box.Classified || !box.Classification.HasScore {
		return unclassifiedColor
	}
	score := min(max(box.Classification.Score, 0), 1)
	return color.RGBA{
		R: uint8(math.Round(255 * score)),
		G: uint8(math.Round(255 * (1 - score))),
		A: 255,
	}
}

func (box ClassifiedBox) label(style Style) string {
	if !box.Classified {
		return ""
	}
	score := ""
	if style.ShowScores && box.Classification.HasScore {
		score = strconv.FormatFloat(box.Classification.Score*100, 'f', 2, 64) + "%"
	}
	if !style.ShowClassNames || box.Classification.ClassName == "" {
		return score
	}
	if score == "" {
		return box.Classification.ClassName
	}
	return score + " class: " + box.Classification.ClassName
}

// TrackingClassificationModification draws tracked boxes colored by classification score.
// The frame is changed in place
type TrackingClassificationModification struct {
	boxes []ClassifiedBox
	style Style
}

// Boxes returns classified boxes to be drawn
func (modification TrackingClassificationModification) Boxes() []ClassifiedBox {
	return modification.boxes
}

// Modify implements process.Modification
func (modification TrackingClassificationModification) Modify(_ int, frame *image.RGBA) *image.RGBA {
	for _, box := range modification.boxes {
		rect := box.Box.Rect()
		clr := box.Color()
		drawOutline(frame, rect, clr, modification.style.Thickness)
		drawLabel(frame, rect, box.label(modification.style), clr)
	}
	return frame
}

// TrackingClassifyingAnalyzer tracks objects and classifies the part of the frame each of them covers
type TrackingClassifyingAnalyzer struct {
	*process.CompositeAnalyzer
	tracker    *ObjectTrackingAnalyzer
	classifier Classifier

	mu             sync.Mutex
	processTiming  *process.TimeLogger
	trackingTiming *process.TimeLogger
	classifyTiming *process.TimeLogger
	buildTiming    *process.TimeLogger
}

// NewTrackingClassifyingAnalyzer creates analyzer. Options configure the underlying tracker. Nil child means process.NoChange
func NewTrackingClassifyingAnalyzer(detector Detector, classifier Classifier, windowSize int, child process.Analyzer, opts ...TrackingOption) (*TrackingClassifyingAnalyzer, error) {
	if classifier == nil {
		return nil, errors.New("classifier must not be nil")
	}
	tracker, err := NewObjectTrackingAnalyzer(detector, windowSize, nil, opts...)
	if err != nil {
		return nil, err
	}
	logger := tracker.logger
	analyzer := TrackingClassifyingAnalyzer{
		tracker:        tracker,
		classifier:     classifier,
		processTiming:  process.NewTimeLogger("process frame", logger, process.DefaultTimeLoggerWindow),
		trackingTiming: process.NewTimeLogger("tracking", logger, process.DefaultTimeLoggerWindow),
		classifyTiming: process.NewTimeLogger("classify", logger, process.DefaultTimeLoggerWindow),
		buildTiming:    process.NewTimeLogger("build modification", logger, process.DefaultTimeLoggerWindow),
	}
	analyzer.CompositeAnalyzer = process.NewCompositeAnalyzer(child, analyzer.analyze)
	return &analyzer, nil
}

func (analyzer *TrackingClassifyingAnalyzer) analyze(numFrame int, frame *image.RGBA, child process.Modification) (process.Modification, error) {
	analyzer.mu.Lock()
	defer analyzer.mu.Unlock()
	defer analyzer.processTiming.Track()()

	stop := analyzer.trackingTiming.Track()
	tracked, err := analyzer.tracker.Track(numFrame, frame, true)
	stop()
	if err != nil {
		return nil, err
	}

	style := analyzer.tracker.Style()
	stop = analyzer.classifyTiming.Track()
	boxes, err := analyzer.classify(numFrame, frame, NewTrackingModification(numFrame, tracked, style).Boxes())
	stop()
	if err != nil {
		return nil, err
	}

	stop = analyzer.buildTiming.Track()
	modification := TrackingClassificationModification{boxes: boxes, style: style}
	stop()
	return process.Compose(child, modification), nil
}

func (analyzer *TrackingClassifyingAnalyzer) classify(numFrame int, frame *image.RGBA, tracked []TrackedBox) ([]ClassifiedBox, error) {
	boxes := make([]ClassifiedBox, 0, len(tracked))
	for _, box := range tracked {
		classified := ClassifiedBox{TrackedBox: box}
		if crop := cropBox(frame, box.Box.Rect()); crop != nil {
			classification, ok, err := analyzer.classifier.Classify(numFrame, crop)
			if err != nil {
				return nil, errors.Wrapf(err, "Can't classify object %s on frame %d", box.ShortID, numFrame)
			}
			classified.Classification, classified.Classified = classification, ok
		}
		boxes = append(boxes, classified)
	}
	return boxes, nil
}

// cropBox returns copy of the part of frame inside rect or nil if they do not overlap
func cropBox(frame *image.RGBA, rect image.Rectangle) *image.RGBA {
	if frame == nil {
		return nil
	}
	rect = rect.Canon().Intersect(frame.Bounds())
	if rect.Empty() {
		return nil
	}
	area := process.AreaOfInterest{X: rect.Min.X, Y: rect.Min.Y, Width: rect.Dx(), Height: rect.Dy()}
	return area.ExtractFrom(frame)
}

// Tracker returns the underlying tracking analyzer
func (analyzer *TrackingClassifyingAnalyzer) Tracker() *ObjectTrackingAnalyzer {
	return analyzer.tracker
}

// Timings returns loggers of whole frame processing, tracking, classification and modification building durations
func (analyzer *TrackingClassifyingAnalyzer) Timings() (processFrame, tracking, classify, build *process.TimeLogger) {
	return analyzer.processTiming, analyzer.trackingTiming, analyzer.classifyTiming, analyzer.buildTiming
}
