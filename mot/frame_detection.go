package mot

import (
	"slices"
	"sort"

	"github.com/pkg/errors"
)

// FrameObjectDetection is the set of objects a detector found on a single frame.
// Either every object carries a class name or none does.
type FrameObjectDetection struct {
	numFrame   int
	objects    []DetectedObject
	classNames []string
	classified bool
}

// NewFrameObjectDetection creates a detection set for the given frame.
// When classNames are given they must be exactly the classes present in objects.
func NewFrameObjectDetection(numFrame int, objects []DetectedObject, classNames ...string) (*FrameObjectDetection, error) {
	present := classSet(objects)
	classed := 0
	for _, object := range objects {
		if object.HasClassName() {
			classed++
		}
	}
	if classed != 0 && classed != len(objects) {
		return nil, errors.Wrapf(ErrInvalidDetectionSet, "frame %d: %d of %d objects carry a class", numFrame, classed, len(objects))
	}

	detection := FrameObjectDetection{
		numFrame: numFrame,
		objects:  slices.Clone(objects),
	}
	switch {
	case len(classNames) > 0:
		explicit := uniqueSorted(classNames)
		if len(objects) > 0 && !slices.Equal(explicit, present) {
			return nil, errors.Wrapf(ErrInvalidDetectionSet, "frame %d: class names %v do not match object classes %v", numFrame, explicit, present)
		}
		detection.classNames = explicit
		detection.classified = true
	case classed == len(objects):
		// Also true for an empty detection set: classified with no classes
		detection.classNames = present
		detection.classified = true
	}
	return &detection, nil
}

// NumFrame returns the frame the detections belong to
func (detection *FrameObjectDetection) NumFrame() int {
	return detection.numFrame
}

// Objects returns a copy of detected objects
func (detection *FrameObjectDetection) Objects() []DetectedObject {
	return slices.Clone(detection.objects)
}

// ClassNames returns sorted class names. Second value is false when the objects are unclassified
func (detection *FrameObjectDetection) ClassNames() ([]string, bool) {
	return slices.Clone(detection.classNames), detection.classified
}

// HasObjects returns true if anything was detected
func (detection *FrameObjectDetection) HasObjects() bool {
	return len(detection.objects) > 0
}

// ObjectsByClass splits objects by class name. Unclassified objects are stored under empty key
func (detection *FrameObjectDetection) ObjectsByClass() map[string][]DetectedObject {
	byClass := make(map[string][]DetectedObject)
	for _, object := range detection.objects {
		byClass[object.ClassName()] = append(byClass[object.ClassName()], object)
	}
	return byClass
}

// FilterByScore returns a new detection set without objects scored below threshold. Unscored objects are kept
func (detection *FrameObjectDetection) FilterByScore(threshold float64) *FrameObjectDetection {
	filtered := make([]DetectedObject, 0, len(detection.objects))
	for _, object := range detection.objects {
		if score, ok := object.Score(); ok && score < threshold {
			continue
		}
		filtered = append(filtered, object)
	}
	result := FrameObjectDetection{
		numFrame:   detection.numFrame,
		objects:    filtered,
		classified: detection.classified,
	}
	if detection.classified {
		result.classNames = classSet(filtered)
	}
	return &result
}

// Merge concatenates two detection sets of the same frame and with the same classes
func (detection *FrameObjectDetection) Merge(other *FrameObjectDetection) (*FrameObjectDetection, error) {
	if detection.numFrame != other.numFrame {
		return nil, errors.Wrapf(ErrFrameMismatch, "can't merge frame %d with frame %d", detection.numFrame, other.numFrame)
	}
	if !slices.Equal(detection.classNames, other.classNames) {
		return nil, errors.Wrapf(ErrClassMismatch, "can't merge classes %v with %v", detection.classNames, other.classNames)
	}
	objects := make([]DetectedObject, 0, len(detection.objects)+len(other.objects))
	objects = append(objects, detection.objects...)
	objects = append(objects, other.objects...)
	return &FrameObjectDetection{
		numFrame:   detection.numFrame,
		objects:    objects,
		classNames: slices.Clone(detection.classNames),
		classified: detection.classified || other.classified,
	}, nil
}

func classSet(objects []DetectedObject) []string {
	names := make([]string, 0, len(objects))
	for _, object := range objects {
		if object.HasClassName() {
			names = append(names, object.ClassName())
		}
	}
	return uniqueSorted(names)
}

func uniqueSorted(values []string) []string {
	sorted := slices.Clone(values)
	sort.Strings(sorted)
	return slices.Compact(sorted)
}
