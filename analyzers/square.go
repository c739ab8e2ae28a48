package analyzers

import (
	"image"
	"image/color"
	"math/rand/v2"
	"sync"

	"github.com/LdDl/framepipe/process"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultSquareStep is how many pixels the square moves per analyzed frame along each axis
	DefaultSquareStep = 5
	// DefaultSquareSize is side of the square in pixels
	DefaultSquareSize = 50
)

// SquareAnalyzer moves a square across the frame bouncing off the edges. Useful to check a pipeline end to end
type SquareAnalyzer struct {
	*process.CompositeAnalyzer

	mu        sync.Mutex
	x, y      int
	xStep     int
	yStep     int
	size      int
	color     color.RGBA
	thickness int
}

// NewSquareAnalyzer creates square analyzer. Nil child means process.NoChange
func NewSquareAnalyzer(xStep, yStep, size int, clr color.RGBA, thickness int, child process.Analyzer) *SquareAnalyzer {
	analyzer := SquareAnalyzer{
		xStep:     xStep,
		yStep:     yStep,
		size:      max(size, 1),
		color:     clr,
		thickness: thickness,
	}
	analyzer.CompositeAnalyzer = process.NewCompositeAnalyzer(child, analyzer.analyze)
	return &analyzer
}

// DefaultSquareAnalyzer creates square analyzer with default steps, size and style
func DefaultSquareAnalyzer() *SquareAnalyzer {
	return NewSquareAnalyzer(DefaultSquareStep, DefaultSquareStep, DefaultSquareSize, DefaultBoxColor, DefaultBoxThickness, nil)
}

func (analyzer *SquareAnalyzer) analyze(_ int, frame *image.RGBA, child process.Modification) (process.Modification, error) {
	width, height := frame.Bounds().Dx(), frame.Bounds().Dy()
	analyzer.mu.Lock()
	defer analyzer.mu.Unlock()
	if width < analyzer.size || height < analyzer.size {
		return child, nil
	}
	analyzer.x, analyzer.xStep = bounce(analyzer.x, analyzer.xStep, width-analyzer.size)
	analyzer.y, analyzer.yStep = bounce(analyzer.y, analyzer.yStep, height-analyzer.size)
	origin := frame.Bounds().Min
	square := BoxModification{
		Rect:      image.Rect(analyzer.x, analyzer.y, analyzer.x+analyzer.size, analyzer.y+analyzer.size).Add(origin),
		Color:     analyzer.color,
		Thickness: analyzer.thickness,
	}
	return process.Compose(child, square), nil
}

// bounce moves position by step reversing direction when it would leave [0, limit]
func bounce(position, step, limit int) (int, int) {
	next := position + step
	if next < 0 || next > limit {
		step = -step
		next = position + step
	}
	return min(max(next, 0), limit), step
}

// Position returns top-left corner of the last drawn square
func (analyzer *SquareAnalyzer) Position() image.Point {
	analyzer.mu.Lock()
	defer analyzer.mu.Unlock()
	return image.Pt(analyzer.x, analyzer.y)
}

// RandomSquareAnalyzer draws a square at a random position of every analyzed frame
type RandomSquareAnalyzer struct {
	*process.CompositeAnalyzer

	mu        sync.Mutex
	rnd       *rand.Rand
	position  image.Point
	size      int
	color     color.RGBA
	thickness int
	logger    logrus.FieldLogger
}

// NewRandomSquareAnalyzer creates random square analyzer. Positions depend only on seed. Nil child means process.NoChange
func NewRandomSquareAnalyzer(size int, clr color.RGBA, thickness int, seed uint64, child process.Analyzer) *RandomSquareAnalyzer {
	analyzer := RandomSquareAnalyzer{
		rnd:       rand.New(rand.NewPCG(seed, seed)),
		size:      max(size, 1),
		color:     clr,
		thickness: thickness,
		logger:    logrus.StandardLogger().WithField("analyzer", "random-square"),
	}
	analyzer.CompositeAnalyzer = process.NewCompositeAnalyzer(child, analyzer.analyze)
	return &analyzer
}

func (analyzer *RandomSquareAnalyzer) analyze(numFrame int, frame *image.RGBA, child process.Modification) (process.Modification, error) {
	width, height := frame.Bounds().Dx(), frame.Bounds().Dy()
	analyzer.mu.Lock()
	defer analyzer.mu.Unlock()
	if width < analyzer.size || height < analyzer.size {
		return child, nil
	}
	analyzer.position = image.Pt(analyzer.rnd.IntN(width-analyzer.size+1), analyzer.rnd.IntN(height-analyzer.size+1))
	rect := image.Rectangle{Min: analyzer.position, Max: analyzer.position.Add(image.Pt(analyzer.size, analyzer.size))}.Add(frame.Bounds().Min)
	analyzer.logger.WithFields(logrus.Fields{
		"frame": numFrame,
		"x0":    rect.Min.X,
		"y0":    rect.Min.Y,
		"x1":    rect.Max.X,
		"y1":    rect.Max.Y,
	}).Debug("Frame modification shown")
	return process.Compose(child, BoxModification{Rect: rect, Color: analyzer.color, Thickness: analyzer.thickness}), nil
}

// Position returns top-left corner of the last drawn square
func (analyzer *RandomSquareAnalyzer) Position() image.Point {
	analyzer.mu.Lock()
	defer analyzer.mu.Unlock()
	return analyzer.position
}
