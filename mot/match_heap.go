package mot

// matchCandidate is a scored (tracked object, group) pair
type matchCandidate struct {
	row   int
	col   int
	score float64
}

// Copied from container/heap - https://golang.org/pkg/container/heap/
// Max-heap by score, typed to avoid interface conversions

type matchHeap []matchCandidate

func (h matchHeap) Len() int { return len(h) }

// Less returns true if i has higher score. Ties are broken by position for stable results
func (h matchHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score > h[j].score
	}
	if h[i].row != h[j].row {
		return h[i].row < h[j].row
	}
	return h[i].col < h[j].col
}

func (h matchHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

// Push pushes the element x onto the heap.
// The complexity is O(log n) where n = h.Len().
func (h *matchHeap) Push(x matchCandidate) {
	*h = append(*h, x)
	h.up(h.Len() - 1)
}

// Pop removes and returns the best element (according to Less) from the heap.
// The complexity is O(log n) where n = h.Len().
func (h *matchHeap) Pop() matchCandidate {
	n := h.Len() - 1
	h.Swap(0, n)
	h.down(0, n)
	last := (*h)[n]
	*h = (*h)[:n]
	return last
}

func (h matchHeap) up(j int) {
	for {
		i := (j - 1) / 2
		if i == j || !h.Less(j, i) {
			break
		}
		h.Swap(i, j)
		j = i
	}
}

func (h matchHeap) down(i0, n int) bool {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < n && h.Less(j2, j1) {
			j = j2
		}
		if !h.Less(j, i) {
			break
		}
		h.Swap(i, j)
		i = j
	}
	return i > i0
}
