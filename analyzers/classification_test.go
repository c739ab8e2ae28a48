package analyzers

import (
	"image"
	"image/color"
	"testing"

	"github.com/LdDl/framepipe/mot"
	"github.com/LdDl/framepipe/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func carPalette() Classifier {
	return NearestColorClassifier{Palette: []PaletteColor{
		{ClassName: "red car", Color: red},
		{ClassName: "blue car", Color: blue},
	}}
}

func fill(frame *image.RGBA, rect image.Rectangle, clr color.RGBA) {
	draw.Draw(frame, rect, image.NewUniform(clr), image.Point{}, draw.Src)
}

func TestNearestColorClassifier(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 10, 10))
	fill(frame, frame.Bounds(), red)
	classification, ok, err := carPalette().Classify(0, frame)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Classification{ClassName: "red car", Score: 1, HasScore: true}, classification)

	// mostly blue with a red stripe
	fill(frame, frame.Bounds(), blue)
	fill(frame, image.Rect(0, 0, 10, 2), red)
	classification, ok, err = carPalette().Classify(0, frame)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "blue car", classification.ClassName)
	assert.Less(t, classification.Score, 1.0)
	assert.Greater(t, classification.Score, 0.5)

	_, ok, err = carPalette().Classify(0, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = NearestColorClassifier{}.Classify(0, frame)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClassificationLabel(t *testing.T) {
	assert.Equal(t, "cat", Classification{ClassName: "cat"}.Label())
	assert.Equal(t, "cat 0.1250", Classification{ClassName: "cat", Score: 0.125, HasScore: true}.Label())
}

func TestClassificationAnalyzer(t *testing.T) {
	var classified []int
	classifier := ClassifierFunc(func(numFrame int, _ *image.RGBA) (Classification, bool, error) {
		classified = append(classified, numFrame)
		if numFrame%2 == 1 {
			return Classification{}, false, nil
		}
		return Classification{ClassName: "day", Score: 0.5, HasScore: true}, true, nil
	})
	analyzer, err := NewClassificationAnalyzer(classifier, DefaultInfoColor, nil)
	require.NoError(t, err)

	frame := image.NewRGBA(image.Rect(0, 0, 100, 40))
	modification, err := analyzer.Analyze(0, frame)
	require.NoError(t, err)
	info, ok := modification.(ClassificationModification)
	require.True(t, ok)
	assert.Equal(t, "day 0.5000", info.Classification.Label())
	assert.Equal(t, DefaultInfoColor, info.Color)

	info.Modify(0, frame)
	// label sits in the top-left corner on black background
	assert.Equal(t, infoBackground, frame.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{}, frame.RGBAAt(99, 39))

	modification, err = analyzer.Analyze(1, frame)
	require.NoError(t, err)
	assert.Equal(t, process.NoModification, modification)
	assert.Equal(t, []int{0, 1}, classified)
	assert.Equal(t, 2, analyzer.Timing().Count())

	analyzer.SetInfoColor(red)
	modification, err = analyzer.Analyze(2, frame)
	require.NoError(t, err)
	assert.Equal(t, red, modification.(ClassificationModification).Color)
}

func TestClassificationAnalyzerChild(t *testing.T) {
	analyzer, err := NewClassificationAnalyzer(carPalette(), DefaultInfoColor, NewSquareAnalyzer(0, 0, 40, red, 1, nil))
	require.NoError(t, err)
	frame := image.NewRGBA(image.Rect(0, 0, 50, 50))
	modification, err := analyzer.Analyze(0, frame)
	require.NoError(t, err)

	out := modification.Modify(0, frame)
	// square of the child is drawn, the label is drawn over its corner
	assert.Equal(t, red, out.RGBAAt(20, 39))
	assert.Equal(t, infoBackground, out.RGBAAt(1, 1))
}

func TestClassificationAnalyzerFailure(t *testing.T) {
	_, err := NewClassificationAnalyzer(nil, DefaultInfoColor, nil)
	assert.Error(t, err)

	analyzer, err := NewClassificationAnalyzer(ClassifierFunc(func(int, *image.RGBA) (Classification, bool, error) {
		return Classification{}, false, assert.AnError
	}), DefaultInfoColor, nil)
	require.NoError(t, err)
	_, err = analyzer.Analyze(0, image.NewRGBA(image.Rect(0, 0, 4, 4)))
	assert.ErrorIs(t, err, assert.AnError)
}

func classifiedByName(boxes []ClassifiedBox) map[string]ClassifiedBox {
	byName := make(map[string]ClassifiedBox, len(boxes))
	for _, box := range boxes {
		byName[box.Classification.ClassName] = box
	}
	return byName
}

func TestTrackingClassifyingAnalyzer(t *testing.T) {
	analyzer, err := NewTrackingClassifyingAnalyzer(movingCars(), carPalette(), mot.DefaultWindowSize, nil,
		WithStyle(Style{Color: DefaultBoxColor, Thickness: 1, ShowScores: true, ShowClassNames: true}))
	require.NoError(t, err)

	var ids []string
	for numFrame := 0; numFrame < 3; numFrame++ {
		shift := 4 * numFrame
		frame := image.NewRGBA(image.Rect(0, 0, 320, 240))
		fill(frame, image.Rect(10+shift, 10, 30+shift, 30), red)
		fill(frame, image.Rect(200+shift, 100, 220+shift, 120), blue)

		modification, err := analyzer.Analyze(numFrame, frame)
		require.NoError(t, err)
		classifying, ok := modification.(TrackingClassificationModification)
		require.True(t, ok)
		require.Len(t, classifying.Boxes(), 2)

		byName := classifiedByName(classifying.Boxes())
		require.Contains(t, byName, "red car")
		require.Contains(t, byName, "blue car")
		redCar := byName["red car"]
		assert.True(t, redCar.Classified)
		assert.InDelta(t, 1.0, redCar.Classification.Score, 1e-9)
		assert.Equal(t, red, redCar.Color())
		assert.Equal(t, "100.00% class: red car", redCar.label(analyzer.Tracker().Style()))

		current := []string{redCar.ShortID, byName["blue car"].ShortID}
		if ids != nil {
			assert.Equal(t, ids, current, "frame %d", numFrame)
		}
		ids = current

		out := modification.Modify(numFrame, frame)
		assert.Equal(t, red, out.RGBAAt(10+shift, 20))
	}
	assert.Equal(t, 2, analyzer.Tracker().TrackedObjects().Len())

	processFrame, tracking, classify, build := analyzer.Timings()
	for _, timing := range []*process.TimeLogger{processFrame, tracking, classify, build} {
		assert.Equal(t, 3, timing.Count())
	}
}

func TestTrackingClassifyingOutsideFrame(t *testing.T) {
	detector := DetectorFunc(func(numFrame int, _ *image.RGBA) (*mot.FrameObjectDetection, error) {
		return mot.NewFrameObjectDetection(numFrame, []mot.DetectedObject{scoredObject(400, 400, 20, 0.9)})
	})
	calls := 0
	classifier := ClassifierFunc(func(int, *image.RGBA) (Classification, bool, error) {
		calls++
		return Classification{ClassName: "never"}, true, nil
	})
	analyzer, err := NewTrackingClassifyingAnalyzer(detector, classifier, mot.DefaultWindowSize, nil)
	require.NoError(t, err)

	modification, err := analyzer.Analyze(0, image.NewRGBA(image.Rect(0, 0, 320, 240)))
	require.NoError(t, err)
	boxes := modification.(TrackingClassificationModification).Boxes()
	require.Len(t, boxes, 1)
	assert.False(t, boxes[0].Classified)
	assert.Equal(t, unclassifiedColor, boxes[0].Color())
	assert.Zero(t, calls)

	// nothing to crop without a frame
	_, err = analyzer.Analyze(1, nil)
	require.NoError(t, err)
	assert.Zero(t, calls)
}

func TestTrackingClassifyingFailure(t *testing.T) {
	_, err := NewTrackingClassifyingAnalyzer(movingCars(), nil, mot.DefaultWindowSize, nil)
	assert.Error(t, err)
	_, err = NewTrackingClassifyingAnalyzer(nil, carPalette(), mot.DefaultWindowSize, nil)
	assert.Error(t, err)

	analyzer, err := NewTrackingClassifyingAnalyzer(movingCars(), ClassifierFunc(func(int, *image.RGBA) (Classification, bool, error) {
		return Classification{}, false, assert.AnError
	}), mot.DefaultWindowSize, nil)
	require.NoError(t, err)
	_, err = analyzer.Analyze(0, image.NewRGBA(image.Rect(0, 0, 320, 240)))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestClassifiedBoxLabel(t *testing.T) {
	box := ClassifiedBox{Classification: Classification{ClassName: "truck", Score: 0.25, HasScore: true}, Classified: true}
	assert.Equal(t, color.RGBA{R: 64, G: 191, A: 255}, box.Color())
	assert.Equal(t, "", box.label(Style{}))
	assert.Equal(t, "25.00%", box.label(Style{ShowScores: true}))
	assert.Equal(t, "truck", box.label(Style{ShowClassNames: true}))
	assert.Equal(t, "25.00% class: truck", box.label(Style{ShowScores: true, ShowClassNames: true}))

	box.Classification.HasScore = false
	assert.Equal(t, unclassifiedColor, box.Color())
	assert.Equal(t, "truck", box.label(Style{ShowScores: true, ShowClassNames: true}))
	assert.Equal(t, "", ClassifiedBox{}.label(Style{ShowScores: true, ShowClassNames: true}))
}
