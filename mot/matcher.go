package mot

import (
	"github.com/arthurkushman/go-hungarian"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// MatchingAlgorithm is for algorithm type for matching groups to tracked objects
type MatchingAlgorithm uint16

const (
	// MatchingAlgorithmHungarian uses the Hungarian algorithm (Kuhn-Munkres) for optimal assignment
	MatchingAlgorithmHungarian MatchingAlgorithm = iota
	// MatchingAlgorithmGreedy picks best scored pairs first, faster but potentially suboptimal
	MatchingAlgorithmGreedy
)

func (algorithm MatchingAlgorithm) String() string {
	switch algorithm {
	case MatchingAlgorithmHungarian:
		return "hungarian"
	case MatchingAlgorithmGreedy:
		return "greedy"
	default:
		return "unknown"
	}
}

// ParseMatchingAlgorithm converts name into MatchingAlgorithm
func ParseMatchingAlgorithm(name string) (MatchingAlgorithm, error) {
	switch name {
	case "hungarian", "":
		return MatchingAlgorithmHungarian, nil
	case "greedy":
		return MatchingAlgorithmGreedy, nil
	default:
		return 0, errors.Errorf("unknown matching algorithm '%s'", name)
	}
}

// Matcher decides which tracked object every new group continues.
// Groups are compared with Kalman-predicted boxes of tracked objects of the same class
// using hybrid IoU + center distance score.
type Matcher struct {
	// Minimum score for a pair to be matched
	minScore float64
	// Algorithm to use for matching
	algorithm MatchingAlgorithm
	// Time step for Kalman filters
	dt float64
	// Predictors of tracked objects
	predictors map[uuid.UUID]*boxPredictor
}

// DefaultMatcher creates a Matcher with default parameters.
// Default values: minScore=0.3, Hungarian algorithm
func DefaultMatcher() *Matcher {
	return NewMatcher(0.3, MatchingAlgorithmHungarian)
}

// NewMatcher creates a new instance of Matcher with specified parameters.
func NewMatcher(minScore float64, algorithm MatchingAlgorithm) *Matcher {
	return &Matcher{
		minScore:   minScore,
		algorithm:  algorithm,
		dt:         1.0,
		predictors: make(map[uuid.UUID]*boxPredictor),
	}
}

// MinScore returns matching threshold
func (matcher *Matcher) MinScore() float64 {
	return matcher.minScore
}

// Algorithm returns matching algorithm
func (matcher *Matcher) Algorithm() MatchingAlgorithm {
	return matcher.algorithm
}

// Reset forgets every predictor
func (matcher *Matcher) Reset() {
	matcher.predictors = make(map[uuid.UUID]*boxPredictor)
}

// PredictedBox returns the last predicted box of a tracked object
func (matcher *Matcher) PredictedBox(id uuid.UUID) (Box, bool) {
	predictor, ok := matcher.predictors[id]
	if !ok {
		return Box{}, false
	}
	return predictor.predicted, true
}

// Velocity returns estimated velocity (vx, vy, vw, vh) of a tracked object
func (matcher *Matcher) Velocity(id uuid.UUID) (float64, float64, float64, float64, bool) {
	predictor, ok := matcher.predictors[id]
	if !ok {
		return 0, 0, 0, 0, false
	}
	vx, vy, vw, vh := predictor.velocity()
	return vx, vy, vw, vh, true
}

// pairScore combines IoU and center distance into 0-1 similarity.
// IoU is favored when boxes overlap, distance is a weaker fallback otherwise.
func pairScore(predicted, observed Box) float64 {
	iouValue := predicted.IoU(observed)
	distance := euclideanDistance(predicted.Center(), observed.Center())
	distanceScore := 1.0 / (1.0 + distance*0.01)
	if iouValue > 0.05 {
		return iouValue*0.8 + distanceScore*0.2
	}
	return distanceScore * 0.5
}

// Match associates groups found on a frame with members of tracked.
// Every member continues at most one group. Groups left without a member get nil Object.
// Matching runs independently per class.
func (matcher *Matcher) Match(groups []DetectedObjectGroup, tracked *TrackedObjects) []GroupAssignment {
	assignments := make([]GroupAssignment, len(groups))
	for i, group := range groups {
		assignments[i] = GroupAssignment{Group: group}
	}

	// Predict next positions for all tracked objects via Kalman filter
	candidatesByClass := make(map[string][]*TrackedObject)
	predicted := make(map[uuid.UUID]Box)
	for _, object := range tracked.Objects() {
		box, ok := matcher.predict(object)
		if !ok {
			continue
		}
		predicted[object.id] = box
		candidatesByClass[object.className] = append(candidatesByClass[object.className], object)
	}

	groupsByClass := make(map[string][]int)
	observed := make([]Box, len(groups))
	for i, group := range groups {
		consensus, ok := group.CreateConsensus()
		if !ok || group.IsSentinel() {
			continue
		}
		observed[i] = consensus.Location()
		groupsByClass[group.className] = append(groupsByClass[group.className], i)
	}

	for className, groupIndices := range groupsByClass {
		candidates := candidatesByClass[className]
		if len(candidates) == 0 {
			continue
		}
		scores := make([][]float64, len(candidates))
		for row, object := range candidates {
			scores[row] = make([]float64, len(groupIndices))
			for col, groupIdx := range groupIndices {
				scores[row][col] = pairScore(predicted[object.id], observed[groupIdx])
			}
		}
		for _, pair := range matcher.assign(scores) {
			row, col := pair[0], pair[1]
			if scores[row][col] < matcher.minScore {
				continue
			}
			assignments[groupIndices[col]].Object = candidates[row]
		}
	}
	return assignments
}

// predict returns predicted box of a tracked object creating predictor on demand
func (matcher *Matcher) predict(object *TrackedObject) (Box, bool) {
	predictor, ok := matcher.predictors[object.id]
	if !ok {
		consensus, found := object.LastDetectedConsensus()
		if !found {
			return Box{}, false
		}
		lastFrame, _ := object.LastNumFrameWithDetection()
		predictor = newBoxPredictor(consensus.Location(), lastFrame, matcher.dt)
		matcher.predictors[object.id] = predictor
	}
	return predictor.predict(), true
}

// assign is helper function to perform matching using Hungarian or Greedy algorithm.
// Returns: a slice of [2]int, where each element is {row, col}.
func (matcher *Matcher) assign(scores [][]float64) [][2]int {
	switch matcher.algorithm {
	case MatchingAlgorithmHungarian:
		return assignHungarian(scores)
	default:
		return assignGreedy(scores)
	}
}

func assignHungarian(scores [][]float64) [][2]int {
	numRows := len(scores)
	if numRows == 0 || len(scores[0]) == 0 {
		return [][2]int{}
	}
	numCols := len(scores[0])

	// Rectangular matrix - pad to make it square. Padding is done with 0.0 values (lowest score)
	size := max(numRows, numCols)
	padded := make([][]float64, size)
	for i := range padded {
		padded[i] = make([]float64, size)
		if i < numRows {
			copy(padded[i], scores[i])
		}
	}

	assignmentsMap := hungarian.SolveMax(padded)
	matches := make([][2]int, 0, min(numRows, numCols))
	for row, rowMap := range assignmentsMap {
		for col := range rowMap {
			// Ensure row and col are not dummy ones
			if row < numRows && col < numCols {
				matches = append(matches, [2]int{row, col})
			}
		}
	}
	return matches
}

func assignGreedy(scores [][]float64) [][2]int {
	h := make(matchHeap, 0)
	for row := range scores {
		for col, score := range scores[row] {
			h.Push(matchCandidate{row: row, col: col, score: score})
		}
	}
	usedRows := make(map[int]struct{})
	usedCols := make(map[int]struct{})
	matches := make([][2]int, 0)
	for h.Len() > 0 {
		candidate := h.Pop()
		if _, ok := usedRows[candidate.row]; ok {
			continue
		}
		if _, ok := usedCols[candidate.col]; ok {
			continue
		}
		usedRows[candidate.row] = struct{}{}
		usedCols[candidate.col] = struct{}{}
		matches = append(matches, [2]int{candidate.row, candidate.col})
	}
	return matches
}

// Observe corrects predictors with detections stored on numFrame and forgets objects which left the set.
// Must be called after TrackedObjects.AddFrameDetections for the same frame.
func (matcher *Matcher) Observe(numFrame int, tracked *TrackedObjects) error {
	for id := range matcher.predictors {
		if _, ok := tracked.Get(id); !ok {
			delete(matcher.predictors, id)
		}
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
		predictor, ok := matcher.predictors[object.id]
		if !ok {
			matcher.predictors[object.id] = newBoxPredictor(consensus.Location(), numFrame, matcher.dt)
			continue
		}
		if err := predictor.update(consensus.Location(), numFrame); err != nil {
			return errors.Wrapf(err, "Can't observe tracked object %s", object.ShortID())
		}
	}
	return nil
}
