package process

import (
	"image"
	"sync"

	"github.com/pkg/errors"
)

// Analyzer inspects a frame and returns the modification to apply to it
type Analyzer interface {
	Analyze(numFrame int, frame *image.RGBA) (Modification, error)
}

// AnalyzerFunc is an adapter to use ordinary functions as Analyzer
type AnalyzerFunc func(numFrame int, frame *image.RGBA) (Modification, error)

// Analyze implements Analyzer
func (fn AnalyzerFunc) Analyze(numFrame int, frame *image.RGBA) (Modification, error) {
	return fn(numFrame, frame)
}

type noChangeAnalyzer struct{}

func (noChangeAnalyzer) Analyze(int, *image.RGBA) (Modification, error) {
	return NoModification, nil
}

// NoChange is an analyzer which never changes anything
var NoChange Analyzer = noChangeAnalyzer{}

// CompositeFunc builds a modification on top of child analyzer's modification
type CompositeFunc func(numFrame int, frame *image.RGBA, child Modification) (Modification, error)

// CompositeAnalyzer runs a child analyzer and then its own step.
// Child can be swapped at any time: the swap waits for in-flight analysis to finish.
type CompositeAnalyzer struct {
	mu    sync.Mutex
	child Analyzer
	fn    CompositeFunc
}

// NewCompositeAnalyzer creates composite analyzer. Nil child means NoChange
func NewCompositeAnalyzer(child Analyzer, fn CompositeFunc) *CompositeAnalyzer {
	if child == nil {
		child = NoChange
	}
	return &CompositeAnalyzer{
		child: child,
		fn:    fn,
	}
}

// Analyze implements Analyzer
func (composite *CompositeAnalyzer) Analyze(numFrame int, frame *image.RGBA) (Modification, error) {
	composite.mu.Lock()
	defer composite.mu.Unlock()
	childModification, err := composite.child.Analyze(numFrame, frame)
	if err != nil {
		return nil, errors.Wrap(err, "Child analyzer failed")
	}
	if childModification == nil {
		childModification = NoModification
	}
	return composite.fn(numFrame, frame, childModification)
}

// Child returns current child analyzer
func (composite *CompositeAnalyzer) Child() Analyzer {
	composite.mu.Lock()
	defer composite.mu.Unlock()
	return composite.child
}

// SetChild replaces child analyzer. Nil means NoChange
func (composite *CompositeAnalyzer) SetChild(child Analyzer) {
	if child == nil {
		child = NoChange
	}
	composite.mu.Lock()
	composite.child = child
	composite.mu.Unlock()
}
