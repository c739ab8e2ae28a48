package mot

import (
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// FrameState is the state of a tracked object on a single frame
type FrameState uint16

const (
	// FrameStateDetected means the frame holds a real detection group
	FrameStateDetected FrameState = iota
	// FrameStateNotDetected means the frame was analyzed but the object was not found
	FrameStateNotDetected
	// FrameStateNotProcessed means the frame was skipped or has not been analyzed
	FrameStateNotProcessed
)

func (state FrameState) String() string {
	switch state {
	case FrameStateDetected:
		return "detected"
	case FrameStateNotDetected:
		return "not_detected"
	case FrameStateNotProcessed:
		return "not_processed"
	default:
		return "unknown"
	}
}

// DetectedObjectGroup is a set of same-class detections considered to be one physical object on a frame
type DetectedObjectGroup struct {
	objects   []DetectedObject
	className string
	sentinel  FrameState
}

// NewDetectedObjectGroup creates a group. Every object must share the same class
func NewDetectedObjectGroup(objects ...DetectedObject) (DetectedObjectGroup, error) {
	group := DetectedObjectGroup{
		objects:  slices.Clone(objects),
		sentinel: FrameStateDetected,
	}
	if len(objects) == 0 {
		return group, nil
	}
	group.className = objects[0].ClassName()
	for _, object := range objects[1:] {
		if object.ClassName() != group.className {
			return DetectedObjectGroup{}, errors.Wrapf(ErrMixedClass, "got '%s' and '%s'", group.className, object.ClassName())
		}
	}
	return group, nil
}

// NotDetectedGroup returns the sentinel group for a frame where the object was not found
func NotDetectedGroup() DetectedObjectGroup {
	return DetectedObjectGroup{sentinel: FrameStateNotDetected}
}

// NotProcessedGroup returns the sentinel group for a frame that was never analyzed
func NotProcessedGroup() DetectedObjectGroup {
	return DetectedObjectGroup{sentinel: FrameStateNotProcessed}
}

// State returns whether the group is a real detection or one of the sentinels
func (group DetectedObjectGroup) State() FrameState {
	return group.sentinel
}

// IsSentinel returns true for NotDetectedGroup and NotProcessedGroup values
func (group DetectedObjectGroup) IsSentinel() bool {
	return group.sentinel != FrameStateDetected
}

// ClassName returns the class shared by all members
func (group DetectedObjectGroup) ClassName() string {
	return group.className
}

// Objects returns a copy of member detections
func (group DetectedObjectGroup) Objects() []DetectedObject {
	return slices.Clone(group.objects)
}

// CountDetections returns number of members
func (group DetectedObjectGroup) CountDetections() int {
	return len(group.objects)
}

// HasDetections returns true if the group has at least one member
func (group DetectedObjectGroup) HasDetections() bool {
	return len(group.objects) > 0
}

// CreateConsensus synthesizes a single detection out of the group.
// Empty group gives no consensus, single member is returned as is,
// otherwise location is the union of all boxes and score is the mean of scored members.
func (group DetectedObjectGroup) CreateConsensus() (DetectedObject, bool) {
	switch len(group.objects) {
	case 0:
		return DetectedObject{}, false
	case 1:
		return group.objects[0], true
	}
	location := group.objects[0].Location()
	scores := make([]float64, 0, len(group.objects))
	for i, object := range group.objects {
		if i > 0 {
			location = location.Union(object.Location())
		}
		if score, ok := object.Score(); ok {
			scores = append(scores, score)
		}
	}
	consensus := NewDetectedObject(location).WithClassName(group.className)
	if len(scores) > 0 {
		consensus = consensus.WithScore(stat.Mean(scores, nil))
	}
	return consensus, true
}

// FrameDetectedObjectGroup binds a group to the frame it was observed on.
// Tracked objects identify their history entries by pointer.
type FrameDetectedObjectGroup struct {
	numFrame int
	group    DetectedObjectGroup
}

// NewFrameDetectedObjectGroup creates a new frame-bound group
func NewFrameDetectedObjectGroup(numFrame int, group DetectedObjectGroup) *FrameDetectedObjectGroup {
	return &FrameDetectedObjectGroup{
		numFrame: numFrame,
		group:    group,
	}
}

// NumFrame returns frame index
func (detection *FrameDetectedObjectGroup) NumFrame() int {
	return detection.numFrame
}

// Group returns underlying group
func (detection *FrameDetectedObjectGroup) Group() DetectedObjectGroup {
	return detection.group
}

// ClassName returns class of underlying group
func (detection *FrameDetectedObjectGroup) ClassName() string {
	return detection.group.className
}

// State returns frame state of underlying group
func (detection *FrameDetectedObjectGroup) State() FrameState {
	return detection.group.sentinel
}

// Consensus is shorthand for Group().CreateConsensus()
func (detection *FrameDetectedObjectGroup) Consensus() (DetectedObject, bool) {
	return detection.group.CreateConsensus()
}
