package mot

import (
	"sort"
)

// Grouper splits detections of a single frame into groups, each one representing a physical object
type Grouper interface {
	Group(detection *FrameObjectDetection) []DetectedObjectGroup
}

// ClassGrouper puts every object of the same class into one group
type ClassGrouper struct{}

// Group implements Grouper
func (ClassGrouper) Group(detection *FrameObjectDetection) []DetectedObjectGroup {
	byClass := detection.ObjectsByClass()
	groups := make([]DetectedObjectGroup, 0, len(byClass))
	for _, className := range sortedKeys(byClass) {
		group, err := NewDetectedObjectGroup(byClass[className]...)
		if err != nil {
			// Unreachable: objects were split by class
			continue
		}
		groups = append(groups, group)
	}
	return groups
}

// IoUGrouper joins same-class objects which overlap (directly or through other objects) with IoU >= Threshold
type IoUGrouper struct {
	Threshold float64
}

// Group implements Grouper
func (grouper IoUGrouper) Group(detection *FrameObjectDetection) []DetectedObjectGroup {
	byClass := detection.ObjectsByClass()
	groups := make([]DetectedObjectGroup, 0, len(byClass))
	for _, className := range sortedKeys(byClass) {
		objects := byClass[className]
		sets := newDisjointSets(len(objects))
		for i := range objects {
			for j := i + 1; j < len(objects); j++ {
				if objects[i].Location().IoU(objects[j].Location()) >= grouper.Threshold {
					sets.union(i, j)
				}
			}
		}
		clusters := make(map[int][]DetectedObject)
		roots := make([]int, 0)
		for i, object := range objects {
			root := sets.find(i)
			if _, ok := clusters[root]; !ok {
				roots = append(roots, root)
			}
			clusters[root] = append(clusters[root], object)
		}
		for _, root := range roots {
			group, err := NewDetectedObjectGroup(clusters[root]...)
			if err != nil {
				continue
			}
			groups = append(groups, group)
		}
	}
	return groups
}

type disjointSets struct {
	parent []int
	rank   []int
}

func newDisjointSets(n int) *disjointSets {
	sets := disjointSets{
		parent: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range sets.parent {
		sets.parent[i] = i
	}
	return &sets
}

func (sets *disjointSets) find(i int) int {
	for sets.parent[i] != i {
		sets.parent[i] = sets.parent[sets.parent[i]]
		i = sets.parent[i]
	}
	return i
}

func (sets *disjointSets) union(i, j int) {
	ri, rj := sets.find(i), sets.find(j)
	if ri == rj {
		return
	}
	switch {
	case sets.rank[ri] < sets.rank[rj]:
		sets.parent[ri] = rj
	case sets.rank[ri] > sets.rank[rj]:
		sets.parent[rj] = ri
	default:
		sets.parent[rj] = ri
		sets.rank[ri]++
	}
}

func sortedKeys(byClass map[string][]DetectedObject) []string {
	keys := make([]string, 0, len(byClass))
	for key := range byClass {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
