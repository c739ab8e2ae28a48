package process

import (
	"image"
)

// Modification is a pending change to apply to a frame.
// Modify draws on the frame it is given and returns it, so the caller must own the frame.
// Processors hand it frames they own; copy the frame before calling Modify to keep the original.
type Modification interface {
	Modify(numFrame int, frame *image.RGBA) *image.RGBA
}

// ModificationFunc is an adapter to use ordinary functions as Modification
type ModificationFunc func(numFrame int, frame *image.RGBA) *image.RGBA

// Modify implements Modification
func (fn ModificationFunc) Modify(numFrame int, frame *image.RGBA) *image.RGBA {
	return fn(numFrame, frame)
}

type noModification struct{}

func (noModification) Modify(_ int, frame *image.RGBA) *image.RGBA {
	return frame
}

// NoModification returns frames unchanged. It is the identity of Compose
var NoModification Modification = noModification{}

type compositeModification struct {
	child Modification
	outer Modification
}

func (composite compositeModification) Modify(numFrame int, frame *image.RGBA) *image.RGBA {
	return composite.outer.Modify(numFrame, composite.child.Modify(numFrame, frame))
}

// Compose returns a modification which applies child first and outer on child's result
func Compose(child, outer Modification) Modification {
	if child == nil || child == NoModification {
		if outer == nil {
			return NoModification
		}
		return outer
	}
	if outer == nil || outer == NoModification {
		return child
	}
	return compositeModification{child: child, outer: outer}
}

// Chain composes modifications so that they are applied in the given order
func Chain(modifications ...Modification) Modification {
	result := NoModification
	for _, modification := range modifications {
		result = Compose(result, modification)
	}
	return result
}
