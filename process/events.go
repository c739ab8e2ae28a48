package process

import (
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// EventKind is kind of processor event
type EventKind uint16

const (
	EventStarted EventKind = iota
	EventStopped
	EventFinished
	EventPaused
	EventResumed
	EventFrameInputted
	EventFrameOutputted
	EventSourceChanged
	EventSinkChanged
	EventAnalyzerChanged
)

func (kind EventKind) String() string {
	switch kind {
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	case EventFinished:
		return "finished"
	case EventPaused:
		return "paused"
	case EventResumed:
		return "resumed"
	case EventFrameInputted:
		return "frame_inputted"
	case EventFrameOutputted:
		return "frame_outputted"
	case EventSourceChanged:
		return "source_changed"
	case EventSinkChanged:
		return "sink_changed"
	case EventAnalyzerChanged:
		return "analyzer_changed"
	default:
		return "unknown"
	}
}

// Event describes something that happened to a processor.
// ProcessorID identifies the processor without keeping a reference to it.
type Event struct {
	Kind        EventKind
	ProcessorID uuid.UUID
	NumFrame    int
	// Old and New are set for *Changed events
	Old any
	New any
}

// Listener receives processor events. Listeners are called outside of processor locks
// from whichever goroutine caused the event.
type Listener func(event Event)

// ListenerID identifies a registered listener
type ListenerID uint64

type listeners struct {
	mu     sync.RWMutex
	nextID ListenerID
	byID   map[ListenerID]Listener
	order  []ListenerID
}

func (l *listeners) add(listener Listener) ListenerID {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.byID == nil {
		l.byID = make(map[ListenerID]Listener)
	}
	l.nextID++
	l.byID[l.nextID] = listener
	l.order = append(l.order, l.nextID)
	return l.nextID
}

func (l *listeners) remove(id ListenerID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.byID[id]; !ok {
		return false
	}
	delete(l.byID, id)
	for i, registered := range l.order {
		if registered == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return true
}

func (l *listeners) has(id ListenerID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.byID[id]
	return ok
}

func (l *listeners) fire(event Event) {
	l.mu.RLock()
	snapshot := make([]Listener, 0, len(l.order))
	for _, id := range l.order {
		snapshot = append(snapshot, l.byID[id])
	}
	l.mu.RUnlock()
	for _, listener := range snapshot {
		listener(event)
	}
}

// sameValue compares two values without panicking on incomparable dynamic types
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	typ := reflect.TypeOf(a)
	if typ != reflect.TypeOf(b) || !typ.Comparable() {
		return false
	}
	return a == b
}
