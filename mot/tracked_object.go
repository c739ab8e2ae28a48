package mot

import (
	"fmt"
	"iter"
	"maps"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DefaultWindowSize is number of frames a tracked object remembers by default
const DefaultWindowSize = 50

// FillPolicy defines which sentinel is used for frames without a detection
type FillPolicy uint16

const (
	// FillNotDetected marks every missing frame as not detected
	FillNotDetected FillPolicy = iota + 1
	// FillNotProcessed marks every missing frame as not processed
	FillNotProcessed
	// FillLastNotDetected marks the target frame as not detected and any frame in between as not processed
	FillLastNotDetected
)

func (policy FillPolicy) gapGroup() DetectedObjectGroup {
	if policy == FillNotDetected {
		return NotDetectedGroup()
	}
	return NotProcessedGroup()
}

func (policy FillPolicy) finalGroup() DetectedObjectGroup {
	if policy == FillNotProcessed {
		return NotProcessedGroup()
	}
	return NotDetectedGroup()
}

type trackedEntry struct {
	detection *FrameDetectedObjectGroup
	metadata  map[string]any
}

// TrackedObject is a single object identity followed across frames.
// It keeps a bounded window of per-frame entries, oldest first.
type TrackedObject struct {
	id         uuid.UUID
	className  string
	windowSize int
	entries    []trackedEntry
}

// NewTrackedObject creates a tracked object seeded with its first detection
func NewTrackedObject(initial *FrameDetectedObjectGroup, metadata map[string]any, windowSize int) (*TrackedObject, error) {
	if windowSize <= 0 {
		return nil, errors.Wrapf(ErrInvalidWindowSize, "got %d", windowSize)
	}
	object := TrackedObject{
		id:         uuid.New(),
		className:  initial.ClassName(),
		windowSize: windowSize,
		entries:    make([]trackedEntry, 0, windowSize),
	}
	object.push(initial, metadata)
	return &object, nil
}

// ID returns object's identifier
func (object *TrackedObject) ID() uuid.UUID {
	return object.id
}

// ShortID returns last 8 hex digits of identifier
func (object *TrackedObject) ShortID() string {
	s := object.id.String()
	return s[len(s)-8:]
}

// ClassName returns the class fixed at first insertion
func (object *TrackedObject) ClassName() string {
	return object.className
}

// WindowSize returns max number of remembered frames
func (object *TrackedObject) WindowSize() int {
	return object.windowSize
}

// SetWindowSize changes window capacity. Shrinking evicts the oldest entries
func (object *TrackedObject) SetWindowSize(windowSize int) error {
	if windowSize <= 0 {
		return errors.Wrapf(ErrInvalidWindowSize, "got %d", windowSize)
	}
	object.windowSize = windowSize
	if overflow := len(object.entries) - windowSize; overflow > 0 {
		object.entries = object.entries[overflow:]
	}
	return nil
}

func (object *TrackedObject) push(detection *FrameDetectedObjectGroup, metadata map[string]any) {
	entry := trackedEntry{
		detection: detection,
		metadata:  maps.Clone(metadata),
	}
	if entry.metadata == nil {
		entry.metadata = make(map[string]any)
	}
	object.entries = append(object.entries, entry)
	if len(object.entries) > object.windowSize {
		object.entries = object.entries[1:]
	}
}

// AddFrameDetection appends a detection. Frames skipped since the last entry are back-filled as not processed
func (object *TrackedObject) AddFrameDetection(detection *FrameDetectedObjectGroup, metadata map[string]any) error {
	if detection.ClassName() != object.className {
		return errors.Wrapf(ErrClassMismatch, "group class '%s' does not match tracked object class '%s'", detection.ClassName(), object.className)
	}
	last := object.LastNumFrame()
	if detection.NumFrame() <= last {
		return errors.Wrapf(ErrFrameOrder, "frame %d, last stored frame %d", detection.NumFrame(), last)
	}
	if last < detection.NumFrame()-1 {
		object.AdvanceFrameTo(detection.NumFrame()-1, FillNotProcessed)
	}
	object.push(detection, metadata)
	return nil
}

// AdvanceFrame appends a single sentinel entry for the next frame
func (object *TrackedObject) AdvanceFrame(policy FillPolicy) {
	next := object.LastNumFrame() + 1
	object.push(NewFrameDetectedObjectGroup(next, policy.finalGroup()), nil)
}

// AdvanceFrameTo appends sentinel entries for every frame after the last stored one up to toFrame inclusive.
// Nothing happens if toFrame is not after the last stored frame.
func (object *TrackedObject) AdvanceFrameTo(toFrame int, policy FillPolicy) {
	last := object.LastNumFrame()
	if toFrame <= last {
		return
	}
	gap := policy.gapGroup()
	for numFrame := last + 1; numFrame < toFrame; numFrame++ {
		object.push(NewFrameDetectedObjectGroup(numFrame, gap), nil)
	}
	object.push(NewFrameDetectedObjectGroup(toFrame, policy.finalGroup()), nil)
}

// FrameDetections returns every entry in the window, oldest first
func (object *TrackedObject) FrameDetections() []*FrameDetectedObjectGroup {
	detections := make([]*FrameDetectedObjectGroup, len(object.entries))
	for i, entry := range object.entries {
		detections[i] = entry.detection
	}
	return detections
}

// ListFrameDetections returns up to maxDetections newest entries whose frame is not after maxNumFrame.
// Negative arguments mean "no limit".
func (object *TrackedObject) ListFrameDetections(maxNumFrame, maxDetections int) []*FrameDetectedObjectGroup {
	if maxNumFrame < 0 {
		maxNumFrame = object.LastNumFrame()
	}
	if maxDetections < 0 {
		maxDetections = object.windowSize
	}
	detections := make([]*FrameDetectedObjectGroup, 0, len(object.entries))
	for _, entry := range object.entries {
		if entry.detection.NumFrame() <= maxNumFrame {
			detections = append(detections, entry.detection)
		}
	}
	if len(detections) > maxDetections {
		detections = detections[len(detections)-maxDetections:]
	}
	return detections
}

// FrameConsensus lazily yields frame number and consensus of every entry, oldest first.
// Consensus is nil for sentinel and empty entries.
func (object *TrackedObject) FrameConsensus() iter.Seq2[int, *DetectedObject] {
	entries := object.entries
	return func(yield func(int, *DetectedObject) bool) {
		for _, entry := range entries {
			var consensus *DetectedObject
			if c, ok := entry.detection.Consensus(); ok {
				consensus = &c
			}
			if !yield(entry.detection.NumFrame(), consensus) {
				return
			}
		}
	}
}

// LastFrameConsensus returns consensus of the newest entry
func (object *TrackedObject) LastFrameConsensus() (DetectedObject, bool) {
	return object.entries[len(object.entries)-1].detection.Consensus()
}

// LastDetectedConsensus returns consensus of the newest entry holding a real detection
func (object *TrackedObject) LastDetectedConsensus() (DetectedObject, bool) {
	for i := len(object.entries) - 1; i >= 0; i-- {
		if object.entries[i].detection.State() == FrameStateDetected {
			return object.entries[i].detection.Consensus()
		}
	}
	return DetectedObject{}, false
}

// HasObjectDetections returns true if any entry in the window holds a real detection
func (object *TrackedObject) HasObjectDetections() bool {
	return object.CountObjectDetections() > 0
}

// HasDetectionInLastFrame returns true if the newest entry holds a real detection
func (object *TrackedObject) HasDetectionInLastFrame() bool {
	return object.entries[len(object.entries)-1].detection.State() == FrameStateDetected
}

// LastFrameDetection returns the newest entry if it holds a real detection
func (object *TrackedObject) LastFrameDetection() (*FrameDetectedObjectGroup, bool) {
	if !object.HasDetectionInLastFrame() {
		return nil, false
	}
	return object.entries[len(object.entries)-1].detection, true
}

// DetectionInFrame returns the entry for the given frame if it holds a real detection
func (object *TrackedObject) DetectionInFrame(numFrame int) (*FrameDetectedObjectGroup, bool) {
	for _, entry := range object.entries {
		if entry.detection.NumFrame() == numFrame {
			return entry.detection, entry.detection.State() == FrameStateDetected
		}
	}
	return nil, false
}

// LastNumFrame returns frame of the newest entry
func (object *TrackedObject) LastNumFrame() int {
	return object.entries[len(object.entries)-1].detection.NumFrame()
}

// FirstNumFrame returns frame of the oldest remembered entry
func (object *TrackedObject) FirstNumFrame() int {
	return object.entries[0].detection.NumFrame()
}

// LastNumFrameWithDetection returns frame of the newest entry holding a real detection
func (object *TrackedObject) LastNumFrameWithDetection() (int, bool) {
	for i := len(object.entries) - 1; i >= 0; i-- {
		if object.entries[i].detection.State() == FrameStateDetected {
			return object.entries[i].detection.NumFrame(), true
		}
	}
	return 0, false
}

func (object *TrackedObject) countState(state FrameState) int {
	count := 0
	for _, entry := range object.entries {
		if entry.detection.State() == state {
			count++
		}
	}
	return count
}

// CountFrames returns number of entries in the window
func (object *TrackedObject) CountFrames() int {
	return len(object.entries)
}

// CountObjectDetections returns number of entries holding a real detection
func (object *TrackedObject) CountObjectDetections() int {
	return object.countState(FrameStateDetected)
}

// CountFramesWithoutDetection returns number of not detected entries
func (object *TrackedObject) CountFramesWithoutDetection() int {
	return object.countState(FrameStateNotDetected)
}

// CountFramesNotProcessed returns number of not processed entries
func (object *TrackedObject) CountFramesNotProcessed() int {
	return object.countState(FrameStateNotProcessed)
}

// WindowCoveragePercentage returns share of the window capacity in use
func (object *TrackedObject) WindowCoveragePercentage() float64 {
	return float64(object.CountFrames()) / float64(object.windowSize)
}

// DetectionPercentage returns share of entries holding a real detection
func (object *TrackedObject) DetectionPercentage() float64 {
	return float64(object.CountObjectDetections()) / float64(object.CountFrames())
}

// NotDetectedPercentage returns share of not detected entries
func (object *TrackedObject) NotDetectedPercentage() float64 {
	return float64(object.CountFramesWithoutDetection()) / float64(object.CountFrames())
}

// NotProcessedPercentage returns share of not processed entries
func (object *TrackedObject) NotProcessedPercentage() float64 {
	return float64(object.CountFramesNotProcessed()) / float64(object.CountFrames())
}

func (object *TrackedObject) findEntry(detection *FrameDetectedObjectGroup) (*trackedEntry, error) {
	for i := range object.entries {
		if object.entries[i].detection == detection {
			return &object.entries[i], nil
		}
	}
	return nil, errors.Wrapf(ErrForeignDetection, "tracked object %s", object.ShortID())
}

// SetMetadataFor attaches a key/value annotation to one of object's entries
func (object *TrackedObject) SetMetadataFor(detection *FrameDetectedObjectGroup, key string, value any) error {
	entry, err := object.findEntry(detection)
	if err != nil {
		return err
	}
	entry.metadata[key] = value
	return nil
}

// MetadataFor returns annotation stored on one of object's entries. Second value is false if key is absent
func (object *TrackedObject) MetadataFor(detection *FrameDetectedObjectGroup, key string) (any, bool, error) {
	entry, err := object.findEntry(detection)
	if err != nil {
		return nil, false, err
	}
	value, ok := entry.metadata[key]
	return value, ok, nil
}

// HasMetadataFor returns true if the entry holds the key
func (object *TrackedObject) HasMetadataFor(detection *FrameDetectedObjectGroup, key string) (bool, error) {
	entry, err := object.findEntry(detection)
	if err != nil {
		return false, err
	}
	_, ok := entry.metadata[key]
	return ok, nil
}

// RemoveMetadataFor deletes annotation from one of object's entries
func (object *TrackedObject) RemoveMetadataFor(detection *FrameDetectedObjectGroup, key string) error {
	entry, err := object.findEntry(detection)
	if err != nil {
		return err
	}
	delete(entry.metadata, key)
	return nil
}

// ListMetadata returns every stored value for the key, oldest first
func (object *TrackedObject) ListMetadata(key string) []any {
	values := make([]any, 0)
	for _, entry := range object.entries {
		if value, ok := entry.metadata[key]; ok {
			values = append(values, value)
		}
	}
	return values
}

// Clone returns an independent copy with the same identifier.
// Entries are shared by pointer so metadata lookups work on both copies.
func (object *TrackedObject) Clone() *TrackedObject {
	clone := TrackedObject{
		id:         object.id,
		className:  object.className,
		windowSize: object.windowSize,
		entries:    make([]trackedEntry, len(object.entries), object.windowSize),
	}
	for i, entry := range object.entries {
		clone.entries[i] = trackedEntry{
			detection: entry.detection,
			metadata:  maps.Clone(entry.metadata),
		}
	}
	return &clone
}

// String renders the window as one glyph per frame:
// ╳ not detected, _ not processed, █ detection with metadata, ▒ detection
func (object *TrackedObject) String() string {
	var sb strings.Builder
	for _, entry := range object.entries {
		switch {
		case entry.detection.State() == FrameStateNotDetected:
			sb.WriteString("╳")
		case entry.detection.State() == FrameStateNotProcessed:
			sb.WriteString("_")
		case len(entry.metadata) > 0:
			sb.WriteString("█")
		default:
			sb.WriteString("▒")
		}
	}
	return fmt.Sprintf("%s %s", object.ShortID(), sb.String())
}
