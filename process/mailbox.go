package process

import (
	"image"
	"sync"
	"sync/atomic"
)

// mailbox is a single-slot frame hand-off between the processing goroutine and analysis workers.
// Publishing overwrites an unconsumed frame: the newest frame always wins.
type mailbox struct {
	mu       sync.Mutex
	cond     *sync.Cond
	frame    *image.RGBA
	numFrame int
	full     bool
	closed   bool

	published uint64
	drops     uint64
}

func newMailbox() *mailbox {
	box := mailbox{}
	box.cond = sync.NewCond(&box.mu)
	return &box
}

// publish stores frame and wakes one waiting worker. Never blocks on analysis
func (box *mailbox) publish(numFrame int, frame *image.RGBA) {
	box.mu.Lock()
	if box.full {
		atomic.AddUint64(&box.drops, 1)
	}
	box.frame = frame
	box.numFrame = numFrame
	box.full = true
	atomic.AddUint64(&box.published, 1)
	box.cond.Signal()
	box.mu.Unlock()
}

// take blocks until a frame is available and clears the slot. False means the mailbox was closed
func (box *mailbox) take() (int, *image.RGBA, bool) {
	box.mu.Lock()
	defer box.mu.Unlock()
	for !box.full && !box.closed {
		box.cond.Wait()
	}
	if box.closed {
		return 0, nil, false
	}
	frame, numFrame := box.frame, box.numFrame
	box.frame = nil
	box.full = false
	return numFrame, frame, true
}

// close wakes every worker. Pending frame is dropped
func (box *mailbox) close() {
	box.mu.Lock()
	box.closed = true
	box.frame = nil
	box.full = false
	box.cond.Broadcast()
	box.mu.Unlock()
}

// reopen makes closed mailbox usable again
func (box *mailbox) reopen() {
	box.mu.Lock()
	box.closed = false
	box.frame = nil
	box.full = false
	box.mu.Unlock()
}
