package mot

import (
	"image"
	"math"
)

// Box is an axis-aligned rectangle given by its top-left (X0, Y0) and bottom-right (X1, Y1) corners.
// Boxes built with NewBox are always normalized so X0 <= X1 and Y0 <= Y1.
type Box struct {
	X0 float64
	Y0 float64
	X1 float64
	Y1 float64
}

// NewBox creates a box from two opposite corners given in any order
func NewBox(x0, y0, x1, y1 float64) Box {
	return Box{
		X0: math.Min(x0, x1),
		Y0: math.Min(y0, y1),
		X1: math.Max(x0, x1),
		Y1: math.Max(y0, y1),
	}
}

// NewBoxXYWH creates a box from its top-left corner and size
func NewBoxXYWH(x, y, width, height float64) Box {
	return NewBox(x, y, x+width, y+height)
}

// NewBoxFrom creates a box from an image rectangle
func NewBoxFrom(rect image.Rectangle) Box {
	return NewBox(float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Max.X), float64(rect.Max.Y))
}

// NewBoxFromCenter creates a box around the given center
func NewBoxFromCenter(cx, cy, width, height float64) Box {
	return NewBox(cx-width/2.0, cy-height/2.0, cx+width/2.0, cy+height/2.0)
}

// Width returns box's width
func (box Box) Width() float64 {
	return box.X1 - box.X0
}

// Height returns box's height
func (box Box) Height() float64 {
	return box.Y1 - box.Y0
}

// Area returns box's area
func (box Box) Area() float64 {
	return box.Width() * box.Height()
}

// Center returns box's center
func (box Box) Center() Point {
	return Point{
		X: box.X0 + box.Width()/2.0,
		Y: box.Y0 + box.Height()/2.0,
	}
}

// Intersection returns overlapping part of two boxes. Second value is false when the overlap has no area.
func (box Box) Intersection(other Box) (Box, bool) {
	x0 := math.Max(box.X0, other.X0)
	y0 := math.Max(box.Y0, other.Y0)
	x1 := math.Min(box.X1, other.X1)
	y1 := math.Min(box.Y1, other.Y1)
	if x0 >= x1 || y0 >= y1 {
		return Box{}, false
	}
	return Box{X0: x0, Y0: y0, X1: x1, Y1: y1}, true
}

// Union returns the smallest box spanning both boxes
func (box Box) Union(other Box) Box {
	return Box{
		X0: math.Min(box.X0, other.X0),
		Y0: math.Min(box.Y0, other.Y0),
		X1: math.Max(box.X1, other.X1),
		Y1: math.Max(box.Y1, other.Y1),
	}
}

// IoU calculates Intersection over Union between two boxes
func (box Box) IoU(other Box) float64 {
	inter, ok := box.Intersection(other)
	if !ok {
		return 0.0
	}
	interArea := inter.Area()
	unionArea := box.Area() + other.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}
	return interArea / unionArea
}

// Translated returns a copy of the box shifted by (dx, dy)
func (box Box) Translated(dx, dy float64) Box {
	return Box{X0: box.X0 + dx, Y0: box.Y0 + dy, X1: box.X1 + dx, Y1: box.Y1 + dy}
}

// Adjusted returns a new box whose coordinates were passed through the given adjustments.
// Nil adjustment keeps the axis untouched.
func (box Box) Adjusted(xAdjust, yAdjust func(float64) float64) Box {
	if xAdjust == nil {
		xAdjust = identity
	}
	if yAdjust == nil {
		yAdjust = identity
	}
	return NewBox(xAdjust(box.X0), yAdjust(box.Y0), xAdjust(box.X1), yAdjust(box.Y1))
}

// Rect converts box to an image rectangle (coordinates are truncated)
func (box Box) Rect() image.Rectangle {
	return image.Rect(int(box.X0), int(box.Y0), int(box.X1), int(box.Y1))
}

func identity(v float64) float64 {
	return v
}

// Point is a point on the image plane
type Point struct {
	X float64
	Y float64
}

// NewPoint creates a new point
func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}

// NewPointFrom creates a point from an image point
func NewPointFrom(point image.Point) Point {
	return Point{
		X: float64(point.X),
		Y: float64(point.Y),
	}
}

func euclideanDistance(p1, p2 Point) float64 {
	return math.Sqrt(math.Pow(p1.X-p2.X, 2) + math.Pow(p1.Y-p2.Y, 2))
}
