package analyzers

import (
	"image"
	"image/color"

	"github.com/LdDl/framepipe/mot"
)

// ColorDetector finds 4-connected regions of pixels close to the target color.
// Each region becomes one detected object whose score is the share of matching pixels inside its box.
type ColorDetector struct {
	Target color.RGBA
	// Tolerance is maximum per-channel difference of a matching pixel
	Tolerance uint8
	// ClassName is assigned to every object when not empty
	ClassName string
	// MinArea is minimum number of matching pixels of a region
	MinArea int
}

// Detect implements Detector
func (detector ColorDetector) Detect(numFrame int, frame *image.RGBA) (*mot.FrameObjectDetection, error) {
	bounds := frame.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	matched := make([]bool, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			matched[y*width+x] = detector.matches(frame.RGBAAt(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}

	objects := make([]mot.DetectedObject, 0)
	visited := make([]bool, width*height)
	queue := make([]int, 0)
	for start := range matched {
		if !matched[start] || visited[start] {
			continue
		}
		visited[start] = true
		queue = append(queue[:0], start)
		minX, minY, maxX, maxY := width, height, -1, -1
		area := 0
		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y := idx%width, idx/width
			area++
			minX, minY = min(minX, x), min(minY, y)
			maxX, maxY = max(maxX, x), max(maxY, y)
			for _, next := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
				nx, ny := next[0], next[1]
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				nidx := ny*width + nx
				if matched[nidx] && !visited[nidx] {
					visited[nidx] = true
					queue = append(queue, nidx)
				}
			}
		}
		if area < max(detector.MinArea, 1) {
			continue
		}
		box := mot.NewBox(
			float64(bounds.Min.X+minX), float64(bounds.Min.Y+minY),
			float64(bounds.Min.X+maxX+1), float64(bounds.Min.Y+maxY+1),
		)
		object := mot.NewDetectedObject(box).WithScore(float64(area) / box.Area())
		if detector.ClassName != "" {
			object = object.WithClassName(detector.ClassName)
		}
		objects = append(objects, object)
	}
	return mot.NewFrameObjectDetection(numFrame, objects)
}

func (detector ColorDetector) matches(pixel color.RGBA) bool {
	return channelClose(pixel.R, detector.Target.R, detector.Tolerance) &&
		channelClose(pixel.G, detector.Target.G, detector.Tolerance) &&
		channelClose(pixel.B, detector.Target.B, detector.Tolerance)
}

func channelClose(a, b, tolerance uint8) bool {
	if a > b {
		return a-b <= tolerance
	}
	return b-a <= tolerance
}
