package analyzers

import (
	"image"
	"image/color"
	"math"
	"strconv"
	"sync"

	"github.com/LdDl/framepipe/process"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// DefaultInfoColor is color of classification text
	DefaultInfoColor = color.RGBA{R: 255, G: 255, A: 255}
	infoBackground   = color.RGBA{A: 255}
)

// Classification is a class assigned to a frame or to a part of it
type Classification struct {
	ClassName string
	Score     float64
	HasScore  bool
}

// Label returns class name followed by score (if any) with four decimals
func (classification Classification) Label() string {
	if !classification.HasScore {
		return classification.ClassName
	}
	return labelText(classification.ClassName, strconv.FormatFloat(classification.Score, 'f', 4, 64))
}

// Classifier assigns a class to an image. False means the image could not be classified
type Classifier interface {
	Classify(numFrame int, frame *image.RGBA) (Classification, bool, error)
}

// ClassifierFunc is an adapter to use ordinary functions as Classifier
type ClassifierFunc func(numFrame int, frame *image.RGBA) (Classification, bool, error)

// Classify implements Classifier
func (fn ClassifierFunc) Classify(numFrame int, frame *image.RGBA) (Classification, bool, error) {
	return fn(numFrame, frame)
}

// ClassificationModification writes classification of the whole frame at its top-left corner.
// The frame is changed in place
type ClassificationModification struct {
	Classification Classification
	Color          color.RGBA
}

// Modify implements process.Modification
func (modification ClassificationModification) Modify(_ int, frame *image.RGBA) *image.RGBA {
	corner := frame.Bounds().Min
	drawColoredLabel(frame, image.Rectangle{Min: corner, Max: corner}, modification.Classification.Label(), infoBackground, modification.Color)
	return frame
}

// ClassificationAnalyzer classifies whole frames
type ClassificationAnalyzer struct {
	*process.CompositeAnalyzer
	classifier Classifier

	mu        sync.RWMutex
	infoColor color.RGBA
	timing    *process.TimeLogger
}

// NewClassificationAnalyzer creates analyzer. Nil child means process.NoChange
func NewClassificationAnalyzer(classifier Classifier, infoColor color.RGBA, child process.Analyzer) (*ClassificationAnalyzer, error) {
	if classifier == nil {
		return nil, errors.New("classifier must not be nil")
	}
	analyzer := ClassificationAnalyzer{
		classifier: classifier,
		infoColor:  infoColor,
		timing:     process.NewTimeLogger("classification", nil, process.DefaultTimeLoggerWindow),
	}
	analyzer.CompositeAnalyzer = process.NewCompositeAnalyzer(child, analyzer.analyze)
	return &analyzer, nil
}

func (analyzer *ClassificationAnalyzer) analyze(numFrame int, frame *image.RGBA, child process.Modification) (process.Modification, error) {
	stop := analyzer.timing.Track()
	classification, ok, err := analyzer.classifier.Classify(numFrame, frame)
	stop()
	if err != nil {
		return nil, errors.Wrapf(err, "Can't classify frame %d", numFrame)
	}
	if !ok {
		return child, nil
	}
	return process.Compose(child, ClassificationModification{Classification: classification, Color: analyzer.InfoColor()}), nil
}

// InfoColor returns color of classification text
func (analyzer *ClassificationAnalyzer) InfoColor() color.RGBA {
	analyzer.mu.RLock()
	defer analyzer.mu.RUnlock()
	return analyzer.infoColor
}

// SetInfoColor changes color of classification text
func (analyzer *ClassificationAnalyzer) SetInfoColor(infoColor color.RGBA) {
	analyzer.mu.Lock()
	analyzer.infoColor = infoColor
	analyzer.mu.Unlock()
}

// Timing returns logger of classification durations
func (analyzer *ClassificationAnalyzer) Timing() *process.TimeLogger {
	return analyzer.timing
}

// PaletteColor is a reference color of a class
type PaletteColor struct {
	ClassName string
	Color     color.RGBA
}

var maxRGBDistance = math.Sqrt(3) * 255

// NearestColorClassifier classifies an image by its mean color: the class of the closest palette color wins.
// Score falls from 1 for exact match down to 0 at MaxDistance (zero means the largest RGB distance)
type NearestColorClassifier struct {
	Palette     []PaletteColor
	MaxDistance float64
}

// Classify implements Classifier
func (classifier NearestColorClassifier) Classify(_ int, frame *image.RGBA) (Classification, bool, error) {
	if frame == nil || frame.Bounds().Empty() || len(classifier.Palette) == 0 {
		return Classification{}, false, nil
	}
	bounds := frame.Bounds()
	size := bounds.Dx() * bounds.Dy()
	reds, greens, blues := make([]float64, 0, size), make([]float64, 0, size), make([]float64, 0, size)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			pixel := frame.RGBAAt(x, y)
			reds = append(reds, float64(pixel.R))
			greens = append(greens, float64(pixel.G))
			blues = append(blues, float64(pixel.B))
		}
	}
	mean := []float64{stat.Mean(reds, nil), stat.Mean(greens, nil), stat.Mean(blues, nil)}

	best, bestDistance := -1, math.Inf(1)
	for i, reference := range classifier.Palette {
		distance := floats.Distance(mean, []float64{float64(reference.Color.R), float64(reference.Color.G), float64(reference.Color.B)}, 2)
		if distance < bestDistance {
			best, bestDistance = i, distance
		}
	}
	maxDistance := classifier.MaxDistance
	if maxDistance <= 0 {
		maxDistance = maxRGBDistance
	}
	return Classification{
		ClassName: classifier.Palette[best].ClassName,
		Score:     max(0, 1-bestDistance/maxDistance),
		HasScore:  true,
	}, true, nil
}
