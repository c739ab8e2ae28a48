package process

import (
	"image"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// AreaOfInterest is a sub-rectangle of a frame. Analyzers see only this part of the frame
// and modifications are applied only inside of it.
type AreaOfInterest struct {
	X      int
	Y      int
	Width  int
	Height int
}

// NewAreaOfInterest creates area. Origin must not be negative and size must be at least 1x1
func NewAreaOfInterest(x, y, width, height int) (AreaOfInterest, error) {
	area := AreaOfInterest{X: x, Y: y, Width: width, Height: height}
	if err := area.Validate(); err != nil {
		return AreaOfInterest{}, err
	}
	return area, nil
}

// Validate checks area's bounds
func (area AreaOfInterest) Validate() error {
	if area.X < 0 || area.Y < 0 {
		return errors.Wrapf(ErrInvalidAreaOfInterest, "origin (%d, %d) is negative", area.X, area.Y)
	}
	if area.Width < 1 || area.Height < 1 {
		return errors.Wrapf(ErrInvalidAreaOfInterest, "size %dx%d is empty", area.Width, area.Height)
	}
	return nil
}

// Rect returns area as image rectangle
func (area AreaOfInterest) Rect() image.Rectangle {
	return image.Rect(area.X, area.Y, area.X+area.Width, area.Y+area.Height)
}

// ExtractFrom copies the area out of frame into a new image with origin at (0, 0).
// Parts of the area outside of the frame are left transparent.
func (area AreaOfInterest) ExtractFrom(frame *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, area.Width, area.Height))
	src := area.Rect().Intersect(frame.Bounds())
	if src.Empty() {
		return dst
	}
	draw.Copy(dst, src.Min.Sub(area.Rect().Min), frame, src, draw.Src, nil)
	return dst
}

// ReplaceOn writes part back into frame at area's position. Pixels outside of the area are never touched
func (area AreaOfInterest) ReplaceOn(frame *image.RGBA, part *image.RGBA) *image.RGBA {
	dst := area.Rect().Intersect(frame.Bounds())
	if dst.Empty() {
		return frame
	}
	src := dst.Sub(area.Rect().Min).Add(part.Bounds().Min).Intersect(part.Bounds())
	draw.Copy(frame, area.Rect().Min.Add(src.Min.Sub(part.Bounds().Min)), part, src, draw.Src, nil)
	return frame
}
