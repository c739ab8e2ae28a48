package mot

import (
	"testing"

	"github.com/pkg/errors"
)

func carGroup(t *testing.T, x float64) DetectedObjectGroup {
	t.Helper()
	group, err := NewDetectedObjectGroup(NewDetectedObject(NewBoxXYWH(x, 10, 20, 20)).WithClassName("car"))
	if err != nil {
		t.Fatalf("Can't create group: %v", err)
	}
	return group
}

func newCarObject(t *testing.T, numFrame, windowSize int) *TrackedObject {
	t.Helper()
	object, err := NewTrackedObject(NewFrameDetectedObjectGroup(numFrame, carGroup(t, 0)), nil, windowSize)
	if err != nil {
		t.Fatalf("Can't create tracked object: %v", err)
	}
	return object
}

func checkCountsSum(t *testing.T, object *TrackedObject) {
	t.Helper()
	sum := object.CountFramesNotProcessed() + object.CountFramesWithoutDetection() + object.CountObjectDetections()
	if sum != object.CountFrames() {
		t.Errorf("Expected counts to sum up to %d, got %d", object.CountFrames(), sum)
	}
}

func TestNewTrackedObject(t *testing.T) {
	object := newCarObject(t, 3, DefaultWindowSize)
	if object.ClassName() != "car" {
		t.Errorf("Expected class 'car', got '%s'", object.ClassName())
	}
	if len(object.ShortID()) != 8 {
		t.Errorf("Expected short id of 8 chars, got '%s'", object.ShortID())
	}
	if object.LastNumFrame() != 3 || object.FirstNumFrame() != 3 {
		t.Errorf("Expected first and last frame 3, got %d and %d", object.FirstNumFrame(), object.LastNumFrame())
	}
	if !object.HasDetectionInLastFrame() {
		t.Errorf("Expected detection in last frame")
	}
	if _, err := NewTrackedObject(NewFrameDetectedObjectGroup(0, carGroup(t, 0)), nil, 0); !errors.Is(err, ErrInvalidWindowSize) {
		t.Errorf("Expected ErrInvalidWindowSize, got %v", err)
	}
}

func TestTrackedObjectWindowBound(t *testing.T) {
	windowSize := 5
	object := newCarObject(t, 0, windowSize)
	for numFrame := 1; numFrame < 12; numFrame++ {
		err := object.AddFrameDetection(NewFrameDetectedObjectGroup(numFrame, carGroup(t, float64(numFrame))), nil)
		if err != nil {
			t.Fatalf("Frame %d failed: %v", numFrame, err)
		}
		expected := min(numFrame+1, windowSize)
		if object.CountFrames() != expected {
			t.Errorf("Expected %d frames, got %d", expected, object.CountFrames())
		}
	}
	if object.FirstNumFrame() != 7 {
		t.Errorf("Expected oldest remembered frame 7, got %d", object.FirstNumFrame())
	}
	if object.WindowCoveragePercentage() != 1.0 {
		t.Errorf("Expected full window coverage, got %v", object.WindowCoveragePercentage())
	}
}

func TestTrackedObjectAddBackfills(t *testing.T) {
	object := newCarObject(t, 2, DefaultWindowSize)
	err := object.AddFrameDetection(NewFrameDetectedObjectGroup(6, carGroup(t, 5)), map[string]any{"label": "x"})
	if err != nil {
		t.Fatalf("Can't add detection: %v", err)
	}
	if object.CountFrames() != 5 {
		t.Errorf("Expected 5 frames, got %d", object.CountFrames())
	}
	if object.CountFramesNotProcessed() != 3 {
		t.Errorf("Expected 3 not processed frames, got %d", object.CountFramesNotProcessed())
	}
	if object.CountObjectDetections() != 2 {
		t.Errorf("Expected 2 detections, got %d", object.CountObjectDetections())
	}
	checkCountsSum(t, object)
	if object.String() != object.ShortID()+" ▒___█" {
		t.Errorf("Wrong string representation: '%s'", object.String())
	}
}

func TestTrackedObjectAddRejects(t *testing.T) {
	object := newCarObject(t, 2, DefaultWindowSize)
	person, _ := NewDetectedObjectGroup(NewDetectedObject(NewBox(0, 0, 1, 1)).WithClassName("person"))
	if err := object.AddFrameDetection(NewFrameDetectedObjectGroup(3, person), nil); !errors.Is(err, ErrClassMismatch) {
		t.Errorf("Expected ErrClassMismatch, got %v", err)
	}
	if err := object.AddFrameDetection(NewFrameDetectedObjectGroup(2, carGroup(t, 0)), nil); !errors.Is(err, ErrFrameOrder) {
		t.Errorf("Expected ErrFrameOrder, got %v", err)
	}
	if object.CountFrames() != 1 {
		t.Errorf("Expected rejected calls to keep 1 frame, got %d", object.CountFrames())
	}
}

func TestTrackedObjectAdvanceFrame(t *testing.T) {
	cases := []struct {
		policy       FillPolicy
		notDetected  int
		notProcessed int
		last         FrameState
	}{
		{FillNotDetected, 4, 0, FrameStateNotDetected},
		{FillNotProcessed, 0, 4, FrameStateNotProcessed},
		{FillLastNotDetected, 1, 3, FrameStateNotDetected},
	}
	for _, tc := range cases {
		object := newCarObject(t, 10, DefaultWindowSize)
		object.AdvanceFrameTo(14, tc.policy)
		if object.CountFrames() != 5 {
			t.Errorf("Policy %d: expected 5 frames, got %d", tc.policy, object.CountFrames())
		}
		if object.CountFramesWithoutDetection() != tc.notDetected {
			t.Errorf("Policy %d: expected %d not detected, got %d", tc.policy, tc.notDetected, object.CountFramesWithoutDetection())
		}
		if object.CountFramesNotProcessed() != tc.notProcessed {
			t.Errorf("Policy %d: expected %d not processed, got %d", tc.policy, tc.notProcessed, object.CountFramesNotProcessed())
		}
		detections := object.FrameDetections()
		if state := detections[len(detections)-1].State(); state != tc.last {
			t.Errorf("Policy %d: expected last state %s, got %s", tc.policy, tc.last, state)
		}
		checkCountsSum(t, object)
	}
}

func TestTrackedObjectAdvanceNoop(t *testing.T) {
	object := newCarObject(t, 10, DefaultWindowSize)
	object.AdvanceFrameTo(10, FillNotDetected)
	object.AdvanceFrameTo(3, FillNotDetected)
	if object.CountFrames() != 1 {
		t.Errorf("Expected 1 frame, got %d", object.CountFrames())
	}
	object.AdvanceFrame(FillNotProcessed)
	if object.LastNumFrame() != 11 || object.CountFramesNotProcessed() != 1 {
		t.Errorf("Expected single not processed frame 11, got last %d and %d not processed", object.LastNumFrame(), object.CountFramesNotProcessed())
	}
}

func TestTrackedObjectSetWindowSize(t *testing.T) {
	object := newCarObject(t, 0, DefaultWindowSize)
	object.AdvanceFrameTo(9, FillNotDetected)
	if err := object.SetWindowSize(0); !errors.Is(err, ErrInvalidWindowSize) {
		t.Errorf("Expected ErrInvalidWindowSize, got %v", err)
	}
	if err := object.SetWindowSize(4); err != nil {
		t.Fatalf("Can't resize: %v", err)
	}
	if object.CountFrames() != 4 || object.FirstNumFrame() != 6 {
		t.Errorf("Expected frames 6..9, got %d frames starting at %d", object.CountFrames(), object.FirstNumFrame())
	}
	if object.HasObjectDetections() {
		t.Errorf("Expected initial detection to be evicted")
	}
}

func TestTrackedObjectMetadata(t *testing.T) {
	object := newCarObject(t, 0, DefaultWindowSize)
	detection := NewFrameDetectedObjectGroup(1, carGroup(t, 1))
	if err := object.AddFrameDetection(detection, nil); err != nil {
		t.Fatalf("Can't add detection: %v", err)
	}
	if err := object.SetMetadataFor(detection, "speed", 12.5); err != nil {
		t.Fatalf("Can't set metadata: %v", err)
	}
	value, ok, err := object.MetadataFor(detection, "speed")
	if err != nil || !ok || value.(float64) != 12.5 {
		t.Errorf("Expected speed 12.5, got %v (%v, %v)", value, ok, err)
	}
	if has, _ := object.HasMetadataFor(detection, "speed"); !has {
		t.Errorf("Expected metadata to be present")
	}
	if values := object.ListMetadata("speed"); len(values) != 1 {
		t.Errorf("Expected 1 metadata value, got %d", len(values))
	}
	if err := object.RemoveMetadataFor(detection, "speed"); err != nil {
		t.Fatalf("Can't remove metadata: %v", err)
	}
	if has, _ := object.HasMetadataFor(detection, "speed"); has {
		t.Errorf("Expected metadata to be removed")
	}

	foreign := NewFrameDetectedObjectGroup(1, carGroup(t, 1))
	if _, _, err := object.MetadataFor(foreign, "speed"); !errors.Is(err, ErrForeignDetection) {
		t.Errorf("Expected ErrForeignDetection, got %v", err)
	}
	if err := object.SetMetadataFor(foreign, "speed", 1); !errors.Is(err, ErrForeignDetection) {
		t.Errorf("Expected ErrForeignDetection, got %v", err)
	}
}

func TestTrackedObjectQueries(t *testing.T) {
	object := newCarObject(t, 0, DefaultWindowSize)
	_ = object.AddFrameDetection(NewFrameDetectedObjectGroup(2, carGroup(t, 2)), nil)
	object.AdvanceFrameTo(4, FillLastNotDetected)

	if _, ok := object.LastFrameConsensus(); ok {
		t.Errorf("Expected no consensus for not detected frame")
	}
	consensus, ok := object.LastDetectedConsensus()
	if !ok || consensus.Location().X0 != 2 {
		t.Errorf("Expected last detected consensus at x=2, got %v (%v)", consensus, ok)
	}
	if numFrame, ok := object.LastNumFrameWithDetection(); !ok || numFrame != 2 {
		t.Errorf("Expected last frame with detection 2, got %d", numFrame)
	}
	if _, ok := object.DetectionInFrame(1); ok {
		t.Errorf("Expected no detection in frame 1")
	}
	if _, ok := object.DetectionInFrame(2); !ok {
		t.Errorf("Expected detection in frame 2")
	}
	if listed := object.ListFrameDetections(2, 1); len(listed) != 1 || listed[0].NumFrame() != 2 {
		t.Errorf("Expected only frame 2, got %v", listed)
	}

	frames := make([]int, 0)
	withConsensus := 0
	for numFrame, c := range object.FrameConsensus() {
		frames = append(frames, numFrame)
		if c != nil {
			withConsensus++
		}
	}
	if len(frames) != 5 || frames[0] != 0 || frames[4] != 4 {
		t.Errorf("Expected frames 0..4, got %v", frames)
	}
	if withConsensus != 2 {
		t.Errorf("Expected 2 frames with consensus, got %d", withConsensus)
	}
	if object.DetectionPercentage() != 0.4 {
		t.Errorf("Expected detection percentage 0.4, got %v", object.DetectionPercentage())
	}
}

func TestTrackedObjectClone(t *testing.T) {
	object := newCarObject(t, 0, DefaultWindowSize)
	clone := object.Clone()
	object.AdvanceFrame(FillNotDetected)
	if clone.CountFrames() != 1 {
		t.Errorf("Expected clone to keep 1 frame, got %d", clone.CountFrames())
	}
	if clone.ID() != object.ID() {
		t.Errorf("Expected clone to keep identifier")
	}
}
