package mot

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// InvalidFunc decides whether a tracked object should be dropped from the set
type InvalidFunc func(object *TrackedObject) bool

// NoDetections is the default InvalidFunc: object has no real detection in its window
func NoDetections(object *TrackedObject) bool {
	return !object.HasObjectDetections()
}

// KeepAll is an InvalidFunc which never drops anything
func KeepAll(*TrackedObject) bool {
	return false
}

// GroupAssignment pairs a frame group with the tracked object it continues.
// Nil Object means the group starts a new tracked object.
type GroupAssignment struct {
	Group    DetectedObjectGroup
	Object   *TrackedObject
	Metadata map[string]any
}

// TrackedObjects is the set of tracked objects sharing one window size
type TrackedObjects struct {
	windowSize int
	objects    map[uuid.UUID]*TrackedObject
}

// NewTrackedObjects creates an empty set
func NewTrackedObjects(windowSize int) (*TrackedObjects, error) {
	if windowSize <= 0 {
		return nil, errors.Wrapf(ErrInvalidWindowSize, "got %d", windowSize)
	}
	return &TrackedObjects{
		windowSize: windowSize,
		objects:    make(map[uuid.UUID]*TrackedObject),
	}, nil
}

// WindowSize returns window size shared by members
func (set *TrackedObjects) WindowSize() int {
	return set.windowSize
}

// SetWindowSize changes window size of the set and of every member
func (set *TrackedObjects) SetWindowSize(windowSize int) error {
	if windowSize <= 0 {
		return errors.Wrapf(ErrInvalidWindowSize, "got %d", windowSize)
	}
	set.windowSize = windowSize
	for _, object := range set.objects {
		// Can't fail: size is already validated
		_ = object.SetWindowSize(windowSize)
	}
	return nil
}

// Len returns number of members
func (set *TrackedObjects) Len() int {
	return len(set.objects)
}

// Get returns member by identifier
func (set *TrackedObjects) Get(id uuid.UUID) (*TrackedObject, bool) {
	object, ok := set.objects[id]
	return object, ok
}

// Contains returns true if this exact object is a member
func (set *TrackedObjects) Contains(object *TrackedObject) bool {
	member, ok := set.objects[object.id]
	return ok && member == object
}

// Add puts an object into the set adopting set's window size
func (set *TrackedObjects) Add(object *TrackedObject) {
	_ = object.SetWindowSize(set.windowSize)
	set.objects[object.id] = object
}

// Remove drops an object from the set
func (set *TrackedObjects) Remove(object *TrackedObject) {
	if set.Contains(object) {
		delete(set.objects, object.id)
	}
}

// RemoveInvalid drops every member matching invalid. Nil means NoDetections
func (set *TrackedObjects) RemoveInvalid(invalid InvalidFunc) {
	if invalid == nil {
		invalid = NoDetections
	}
	for id, object := range set.objects {
		if invalid(object) {
			delete(set.objects, id)
		}
	}
}

// Objects returns members ordered by first remembered frame, then by identifier
func (set *TrackedObjects) Objects() []*TrackedObject {
	objects := make([]*TrackedObject, 0, len(set.objects))
	for _, object := range set.objects {
		objects = append(objects, object)
	}
	sort.Slice(objects, func(i, j int) bool {
		fi, fj := objects[i].FirstNumFrame(), objects[j].FirstNumFrame()
		if fi != fj {
			return fi < fj
		}
		return objects[i].id.String() < objects[j].id.String()
	})
	return objects
}

// AddFrameDetections reconciles the set with groups found on frame numFrame:
//  1. a group without object starts a new tracked object, a group with object is appended to it
//  2. every member not referenced by any assignment is advanced to numFrame with FillLastNotDetected
//  3. every advanced member matching invalid is removed (nil invalid means NoDetections)
//
// Assignments are validated before anything changes, so a rejected call leaves the set intact.
func (set *TrackedObjects) AddFrameDetections(numFrame int, assignments []GroupAssignment, invalid InvalidFunc) error {
	touched := make(map[uuid.UUID]struct{}, len(assignments))
	for _, assignment := range assignments {
		object := assignment.Object
		if object == nil {
			continue
		}
		if !set.Contains(object) {
			return errors.Wrapf(ErrForeignEntity, "tracked object %s", object.ShortID())
		}
		if _, ok := touched[object.id]; ok {
			return errors.Wrapf(ErrDuplicateEntity, "tracked object %s on frame %d", object.ShortID(), numFrame)
		}
		if assignment.Group.ClassName() != object.className {
			return errors.Wrapf(ErrClassMismatch, "group class '%s' does not match tracked object %s class '%s'",
				assignment.Group.ClassName(), object.ShortID(), object.className)
		}
		if numFrame <= object.LastNumFrame() {
			return errors.Wrapf(ErrFrameOrder, "frame %d, tracked object %s last frame %d", numFrame, object.ShortID(), object.LastNumFrame())
		}
		touched[object.id] = struct{}{}
	}
	if invalid == nil {
		invalid = NoDetections
	}

	untouched := make([]*TrackedObject, 0, len(set.objects))
	for id, object := range set.objects {
		if _, ok := touched[id]; !ok {
			untouched = append(untouched, object)
		}
	}

	for _, assignment := range assignments {
		detection := NewFrameDetectedObjectGroup(numFrame, assignment.Group)
		if assignment.Object == nil {
			object, err := NewTrackedObject(detection, assignment.Metadata, set.windowSize)
			if err != nil {
				return errors.Wrap(err, "Can't create tracked object")
			}
			set.objects[object.id] = object
			continue
		}
		if err := assignment.Object.AddFrameDetection(detection, assignment.Metadata); err != nil {
			return errors.Wrapf(err, "Can't update tracked object %s", assignment.Object.ShortID())
		}
	}

	for _, object := range untouched {
		object.AdvanceFrameTo(numFrame, FillLastNotDetected)
		if invalid(object) {
			delete(set.objects, object.id)
		}
	}
	return nil
}

// Clone returns a copy of the set with cloned members
func (set *TrackedObjects) Clone() *TrackedObjects {
	clone := TrackedObjects{
		windowSize: set.windowSize,
		objects:    make(map[uuid.UUID]*TrackedObject, len(set.objects)),
	}
	for id, object := range set.objects {
		clone.objects[id] = object.Clone()
	}
	return &clone
}

func (set *TrackedObjects) String() string {
	objects := set.Objects()
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].id.String() < objects[j].id.String()
	})
	lines := make([]string, len(objects))
	for i, object := range objects {
		lines[i] = object.String()
	}
	return strings.Join(lines, "\n")
}
