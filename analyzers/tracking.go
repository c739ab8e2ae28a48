package analyzers

import (
	"image"
	"sync"

	"github.com/LdDl/framepipe/mot"
	"github.com/LdDl/framepipe/process"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// TrackingOption configures ObjectTrackingAnalyzer
type TrackingOption func(*ObjectTrackingAnalyzer)

// DefaultGroupIoU is IoU at which detections of one frame are merged into one group by default
const DefaultGroupIoU = 0.3

// WithGrouper sets intra-frame grouping. Default is mot.IoUGrouper with DefaultGroupIoU
func WithGrouper(grouper mot.Grouper) TrackingOption {
	return func(analyzer *ObjectTrackingAnalyzer) {
		analyzer.grouper = grouper
	}
}

// WithMatcher sets inter-frame association. Default is mot.DefaultMatcher()
func WithMatcher(matcher *mot.Matcher) TrackingOption {
	return func(analyzer *ObjectTrackingAnalyzer) {
		analyzer.matcher = matcher
	}
}

// WithInvalid sets predicate removing tracked objects. Default is mot.NoDetections
func WithInvalid(invalid mot.InvalidFunc) TrackingOption {
	return func(analyzer *ObjectTrackingAnalyzer) {
		analyzer.invalid = invalid
	}
}

// WithStyle sets drawing style
func WithStyle(style Style) TrackingOption {
	return func(analyzer *ObjectTrackingAnalyzer) {
		analyzer.style = style
	}
}

// WithScoreThreshold drops detections scored below threshold before grouping
func WithScoreThreshold(threshold float64) TrackingOption {
	return func(analyzer *ObjectTrackingAnalyzer) {
		analyzer.scoreThreshold = threshold
	}
}

// WithAlertClasses makes the modification draw a warning border
// while an object of any of the classes is detected
func WithAlertClasses(classNames ...string) TrackingOption {
	return func(analyzer *ObjectTrackingAnalyzer) {
		analyzer.alertClasses = make(map[string]struct{}, len(classNames))
		for _, className := range classNames {
			analyzer.alertClasses[className] = struct{}{}
		}
	}
}

// WithTrackingLogger sets logger
func WithTrackingLogger(logger logrus.FieldLogger) TrackingOption {
	return func(analyzer *ObjectTrackingAnalyzer) {
		analyzer.logger = logger
	}
}

// ObjectTrackingAnalyzer follows objects across frames.
// Every analyzed frame goes through detection, intra-frame grouping, association with
// already tracked objects and update of the tracked set.
type ObjectTrackingAnalyzer struct {
	*process.CompositeAnalyzer
	detector Detector

	mu             sync.Mutex
	grouper        mot.Grouper
	matcher        *mot.Matcher
	tracked        *mot.TrackedObjects
	invalid        mot.InvalidFunc
	style          Style
	scoreThreshold float64
	alertClasses   map[string]struct{}

	logger       logrus.FieldLogger
	detectTiming *process.TimeLogger
	intraTiming  *process.TimeLogger
	interTiming  *process.TimeLogger
}

// NewObjectTrackingAnalyzer creates tracking analyzer. Nil child means process.NoChange
func NewObjectTrackingAnalyzer(detector Detector, windowSize int, child process.Analyzer, opts ...TrackingOption) (*ObjectTrackingAnalyzer, error) {
	if detector == nil {
		return nil, errors.New("detector must not be nil")
	}
	tracked, err := mot.NewTrackedObjects(windowSize)
	if err != nil {
		return nil, errors.Wrap(err, "Can't create tracked objects")
	}
	analyzer := ObjectTrackingAnalyzer{
		detector: detector,
		grouper:  mot.IoUGrouper{Threshold: DefaultGroupIoU},
		matcher:  mot.DefaultMatcher(),
		tracked:  tracked,
		invalid:  mot.NoDetections,
		style:    DefaultStyle(),
	}
	for _, opt := range opts {
		opt(&analyzer)
	}
	if analyzer.logger == nil {
		analyzer.logger = logrus.StandardLogger().WithField("analyzer", "object-tracking")
	}
	analyzer.detectTiming = process.NewTimeLogger("detect objects", analyzer.logger, process.DefaultTimeLoggerWindow)
	analyzer.intraTiming = process.NewTimeLogger("group intra frame", analyzer.logger, process.DefaultTimeLoggerWindow)
	analyzer.interTiming = process.NewTimeLogger("group inter frame", analyzer.logger, process.DefaultTimeLoggerWindow)
	analyzer.CompositeAnalyzer = process.NewCompositeAnalyzer(child, analyzer.analyze)
	return &analyzer, nil
}

func (analyzer *ObjectTrackingAnalyzer) analyze(numFrame int, frame *image.RGBA, child process.Modification) (process.Modification, error) {
	analyzer.mu.Lock()
	defer analyzer.mu.Unlock()
	tracked, err := analyzer.track(numFrame, frame, true)
	if err != nil {
		return nil, err
	}
	modification := NewTrackingModification(numFrame, tracked, analyzer.style)
	if analyzer.alerting(modification) {
		modification = modification.WithWarning(BorderModification{Color: DefaultWarningColor, Thickness: max(analyzer.style.Thickness, 1) * 2})
	}
	return process.Compose(child, modification), nil
}

func (analyzer *ObjectTrackingAnalyzer) alerting(modification TrackingModification) bool {
	if len(analyzer.alertClasses) == 0 {
		return false
	}
	for _, tracked := range modification.Boxes() {
		if _, ok := analyzer.alertClasses[tracked.ClassName]; ok {
			return true
		}
	}
	return false
}

// Track runs detection and association on the frame.
// With update=false the result is computed on a copy and the tracked set stays as it was.
func (analyzer *ObjectTrackingAnalyzer) Track(numFrame int, frame *image.RGBA, update bool) (*mot.TrackedObjects, error) {
	analyzer.mu.Lock()
	defer analyzer.mu.Unlock()
	tracked, err := analyzer.track(numFrame, frame, update)
	if err != nil {
		return nil, err
	}
	if update {
		return tracked.Clone(), nil
	}
	return tracked, nil
}

func (analyzer *ObjectTrackingAnalyzer) track(numFrame int, frame *image.RGBA, update bool) (*mot.TrackedObjects, error) {
	stop := analyzer.detectTiming.Track()
	detection, err := analyzer.detector.Detect(numFrame, frame)
	stop()
	if err != nil {
		return nil, errors.Wrapf(err, "Can't detect objects on frame %d", numFrame)
	}
	if detection == nil {
		detection, _ = mot.NewFrameObjectDetection(numFrame, nil)
	}
	if analyzer.scoreThreshold > 0 {
		detection = detection.FilterByScore(analyzer.scoreThreshold)
	}

	stop = analyzer.intraTiming.Track()
	groups := analyzer.grouper.Group(detection)
	stop()

	stop = analyzer.interTiming.Track()
	defer stop()
	tracked, matcher := analyzer.tracked, analyzer.matcher
	if !update {
		// predictors advance on every match, so a preview gets its own ones seeded from last detections
		tracked = tracked.Clone()
		matcher = mot.NewMatcher(matcher.MinScore(), matcher.Algorithm())
	}
	assignments := matcher.Match(groups, tracked)
	if err := tracked.AddFrameDetections(numFrame, assignments, analyzer.invalid); err != nil {
		return nil, errors.Wrapf(err, "Can't update tracked objects on frame %d", numFrame)
	}
	if update {
		if err := matcher.Observe(numFrame, tracked); err != nil {
			return nil, err
		}
	}
	analyzer.logger.WithFields(logrus.Fields{
		"frame":   numFrame,
		"groups":  len(groups),
		"tracked": tracked.Len(),
	}).Debug("Frame tracked")
	return tracked, nil
}

// TrackedObjects returns a copy of currently tracked objects
func (analyzer *ObjectTrackingAnalyzer) TrackedObjects() *mot.TrackedObjects {
	analyzer.mu.Lock()
	defer analyzer.mu.Unlock()
	return analyzer.tracked.Clone()
}

// WindowSize returns window size of tracked objects
func (analyzer *ObjectTrackingAnalyzer) WindowSize() int {
	analyzer.mu.Lock()
	defer analyzer.mu.Unlock()
	return analyzer.tracked.WindowSize()
}

// SetWindowSize changes window size of every tracked object
func (analyzer *ObjectTrackingAnalyzer) SetWindowSize(windowSize int) error {
	analyzer.mu.Lock()
	defer analyzer.mu.Unlock()
	return analyzer.tracked.SetWindowSize(windowSize)
}

// Style returns drawing style
func (analyzer *ObjectTrackingAnalyzer) Style() Style {
	analyzer.mu.Lock()
	defer analyzer.mu.Unlock()
	return analyzer.style
}

// Reset forgets every tracked object
func (analyzer *ObjectTrackingAnalyzer) Reset() error {
	analyzer.mu.Lock()
	defer analyzer.mu.Unlock()
	tracked, err := mot.NewTrackedObjects(analyzer.tracked.WindowSize())
	if err != nil {
		return err
	}
	analyzer.tracked = tracked
	analyzer.matcher.Reset()
	return nil
}

// Timings returns loggers of detection, intra-frame grouping and inter-frame grouping durations
func (analyzer *ObjectTrackingAnalyzer) Timings() (detect, intraFrame, interFrame *process.TimeLogger) {
	return analyzer.detectTiming, analyzer.intraTiming, analyzer.interTiming
}
