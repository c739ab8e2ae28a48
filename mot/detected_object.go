package mot

import (
	"fmt"
)

// DetectedObject is a single detection produced by a model on one frame.
// It is an immutable value: the With* methods return modified copies.
type DetectedObject struct {
	location  Box
	className string
	score     float64
	hasScore  bool
}

// NewDetectedObject creates a detection without class and score
func NewDetectedObject(location Box) DetectedObject {
	return DetectedObject{
		location: location,
	}
}

// WithClassName returns a copy of the detection carrying the given class. Empty string means "no class".
func (object DetectedObject) WithClassName(className string) DetectedObject {
	object.className = className
	return object
}

// WithScore returns a copy of the detection carrying the given score
func (object DetectedObject) WithScore(score float64) DetectedObject {
	object.score = score
	object.hasScore = true
	return object
}

// Location returns detection's bounding box
func (object DetectedObject) Location() Box {
	return object.location
}

// ClassName returns detection's class name. Empty if the detection has no class
func (object DetectedObject) ClassName() string {
	return object.className
}

// HasClassName returns true if detection carries a class
func (object DetectedObject) HasClassName() bool {
	return object.className != ""
}

// Score returns detection's score. Second value is false when no score was set
func (object DetectedObject) Score() (float64, bool) {
	return object.score, object.hasScore
}

func (object DetectedObject) String() string {
	score := "-"
	if object.hasScore {
		score = fmt.Sprintf("%.2f", object.score)
	}
	return fmt.Sprintf("%s[%.1f,%.1f,%.1f,%.1f](%s)",
		object.className, object.location.X0, object.location.Y0, object.location.X1, object.location.Y1, score)
}
