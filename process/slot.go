package process

import (
	"sync"
)

// modificationSlot holds the most recent modification and how many more frames may use it
type modificationSlot struct {
	mu           sync.Mutex
	modification Modification
	numFrame     int
	remaining    int
	// newest is the frame of the newest stored modification. Older results are discarded
	newest int
}

func newModificationSlot() *modificationSlot {
	return &modificationSlot{newest: -1}
}

// store replaces current modification unless it was computed for an older frame than the stored one.
// uses is how many output frames may apply it.
func (slot *modificationSlot) store(numFrame int, modification Modification, uses int) bool {
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if numFrame < slot.newest {
		return false
	}
	slot.newest = numFrame
	slot.modification = modification
	slot.numFrame = numFrame
	slot.remaining = uses
	return true
}

// take returns current modification and consumes one use of it
func (slot *modificationSlot) take() (Modification, int, bool) {
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.modification == nil || slot.remaining <= 0 {
		return nil, 0, false
	}
	modification := slot.modification
	slot.remaining--
	if slot.remaining == 0 {
		slot.modification = nil
	}
	return modification, slot.numFrame, true
}

// clear drops current modification and forgets the newest frame
func (slot *modificationSlot) clear() {
	slot.mu.Lock()
	defer slot.mu.Unlock()
	slot.modification = nil
	slot.remaining = 0
	slot.newest = -1
}
