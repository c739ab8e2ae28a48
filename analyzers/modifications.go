package analyzers

import (
	"image"
	"image/color"

	"github.com/LdDl/framepipe/mot"
)

// BoxModification draws a single rectangle outline with an optional label.
// Like every modification of the package it draws on the given frame in place
type BoxModification struct {
	Rect      image.Rectangle
	Color     color.RGBA
	Thickness int
	Label     string
}

// Modify implements process.Modification
func (modification BoxModification) Modify(_ int, frame *image.RGBA) *image.RGBA {
	drawOutline(frame, modification.Rect, modification.Color, modification.Thickness)
	drawLabel(frame, modification.Rect, modification.Label, modification.Color)
	return frame
}

// BorderModification draws a frame around the whole image
type BorderModification struct {
	Color     color.RGBA
	Thickness int
}

// Modify implements process.Modification. The frame is changed in place
func (modification BorderModification) Modify(_ int, frame *image.RGBA) *image.RGBA {
	drawOutline(frame, frame.Bounds(), modification.Color, modification.Thickness)
	return frame
}

// DetectionModification draws every detected object
type DetectionModification struct {
	objects []mot.DetectedObject
	style   Style
}

// NewDetectionModification creates modification drawing objects with the style
func NewDetectionModification(objects []mot.DetectedObject, style Style) DetectionModification {
	return DetectionModification{
		objects: append([]mot.DetectedObject(nil), objects...),
		style:   style,
	}
}

// Objects returns objects to be drawn
func (modification DetectionModification) Objects() []mot.DetectedObject {
	return modification.objects
}

// Modify implements process.Modification
func (modification DetectionModification) Modify(_ int, frame *image.RGBA) *image.RGBA {
	for _, object := range modification.objects {
		rect := object.Location().Rect()
		drawOutline(frame, rect, modification.style.Color, modification.style.Thickness)
		drawLabel(frame, rect, detectionLabel(object, modification.style), modification.style.Color)
	}
	return frame
}

func detectionLabel(object mot.DetectedObject, style Style) string {
	className, score := "", ""
	if style.ShowClassNames {
		className = object.ClassName()
	}
	if value, ok := object.Score(); ok && style.ShowScores {
		score = formatScore(value)
	}
	return labelText(className, score)
}

// TrackedBox is a snapshot of one tracked object on the analyzed frame
type TrackedBox struct {
	ShortID   string
	ClassName string
	Box       mot.Box
	Score     float64
	HasScore  bool
}

// TrackingModification draws consensus boxes of tracked objects detected on the analyzed frame.
// It keeps a snapshot so later changes of the tracked set do not affect it.
type TrackingModification struct {
	boxes   []TrackedBox
	style   Style
	warning *BorderModification
}

// NewTrackingModification snapshots objects of tracked detected on numFrame
func NewTrackingModification(numFrame int, tracked *mot.TrackedObjects, style Style) TrackingModification {
	modification := TrackingModification{
		style: style,
	}
	for _, object := range tracked.Objects() {
		detection, ok := object.DetectionInFrame(numFrame)
		if !ok {
			continue
		}
		consensus, ok := detection.Consensus()
		if !ok {
			continue
		}
		score, hasScore := consensus.Score()
		modification.boxes = append(modification.boxes, TrackedBox{
			ShortID:   object.ShortID(),
			ClassName: object.ClassName(),
			Box:       consensus.Location(),
			Score:     score,
			HasScore:  hasScore,
		})
	}
	return modification
}

// WithWarning returns a copy which also draws the warning border
func (modification TrackingModification) WithWarning(border BorderModification) TrackingModification {
	modification.warning = &border
	return modification
}

// Boxes returns snapshot of tracked boxes
func (modification TrackingModification) Boxes() []TrackedBox {
	return modification.boxes
}

// HasWarning returns true if the warning border is drawn
func (modification TrackingModification) HasWarning() bool {
	return modification.warning != nil
}

// Modify implements process.Modification
func (modification TrackingModification) Modify(numFrame int, frame *image.RGBA) *image.RGBA {
	for _, tracked := range modification.boxes {
		rect := tracked.Box.Rect()
		drawOutline(frame, rect, modification.style.Color, modification.style.Thickness)
		className, score := "", ""
		if modification.style.ShowClassNames {
			className = tracked.ClassName
		}
		if modification.style.ShowScores && tracked.HasScore {
			score = formatScore(tracked.Score)
		}
		drawLabel(frame, rect, labelText(tracked.ShortID, className, score), modification.style.Color)
	}
	if modification.warning != nil {
		modification.warning.Modify(numFrame, frame)
	}
	return frame
}
