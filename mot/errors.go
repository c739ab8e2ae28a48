package mot

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidDetectionSet is returned when a detection set mixes classed and unclassed objects
	// or when an explicit class set disagrees with the objects
	ErrInvalidDetectionSet = errors.New("invalid detection set")
	// ErrFrameMismatch is returned when two detections reference different frames
	ErrFrameMismatch = errors.New("frame mismatch")
	// ErrClassMismatch is returned when class names (or class sets) differ
	ErrClassMismatch = errors.New("class mismatch")
	// ErrMixedClass is returned when a group is built from objects of different classes
	ErrMixedClass = errors.New("objects do not share exactly one class")
	// ErrInvalidWindowSize is returned for non-positive window sizes
	ErrInvalidWindowSize = errors.New("window size must be positive")
	// ErrForeignDetection is returned when an entry does not belong to the tracked object
	ErrForeignDetection = errors.New("detection does not belong to tracked object")
	// ErrForeignEntity is returned when a tracked object is not a member of the set
	ErrForeignEntity = errors.New("tracked object does not belong to the set")
	// ErrDuplicateEntity is returned when one tracked object is assigned more than one group in a single frame
	ErrDuplicateEntity = errors.New("tracked object assigned more than once")
	// ErrFrameOrder is returned when a detection is not newer than the last stored frame
	ErrFrameOrder = errors.New("frame is not after the last stored frame")
)
