package analyzers

import (
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// DefaultBoxThickness is outline width in pixels
	DefaultBoxThickness = 2
	labelPadding        = 2
)

var (
	// DefaultBoxColor is color of box outlines
	DefaultBoxColor = color.RGBA{G: 255, A: 255}
	// DefaultWarningColor is color of warning border
	DefaultWarningColor = color.RGBA{R: 255, A: 255}
	labelTextColor      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Style is how boxes are drawn
type Style struct {
	Color          color.RGBA
	Thickness      int
	ShowScores     bool
	ShowClassNames bool
}

// DefaultStyle returns style with default color and thickness and without labels
func DefaultStyle() Style {
	return Style{
		Color:     DefaultBoxColor,
		Thickness: DefaultBoxThickness,
	}
}

// drawOutline draws rectangle outline of given thickness clipped to the frame
func drawOutline(frame *image.RGBA, rect image.Rectangle, clr color.RGBA, thickness int) {
	rect = rect.Canon()
	if thickness < 1 {
		thickness = 1
	}
	src := image.NewUniform(clr)
	edges := []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+thickness),
		image.Rect(rect.Min.X, rect.Max.Y-thickness, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+thickness, rect.Max.Y),
		image.Rect(rect.Max.X-thickness, rect.Min.Y, rect.Max.X, rect.Max.Y),
	}
	for _, edge := range edges {
		edge = edge.Intersect(rect).Intersect(frame.Bounds())
		if edge.Empty() {
			continue
		}
		draw.Draw(frame, edge, src, image.Point{}, draw.Src)
	}
}

// drawLabel writes text on a filled background right above the rectangle (or inside it at the top edge)
func drawLabel(frame *image.RGBA, rect image.Rectangle, text string, background color.RGBA) {
	drawColoredLabel(frame, rect, text, background, labelTextColor)
}

func drawColoredLabel(frame *image.RGBA, rect image.Rectangle, text string, background, foreground color.RGBA) {
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	height := face.Metrics().Height.Ceil()

	top := rect.Min.Y - height - 2*labelPadding
	if top < frame.Bounds().Min.Y {
		top = rect.Min.Y
	}
	labelRect := image.Rect(rect.Min.X, top, rect.Min.X+width+2*labelPadding, top+height+2*labelPadding)
	draw.Draw(frame, labelRect.Intersect(frame.Bounds()), image.NewUniform(background), image.Point{}, draw.Src)

	drawer := font.Drawer{
		Dst:  frame,
		Src:  image.NewUniform(foreground),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(labelRect.Min.X + labelPadding),
			Y: fixed.I(labelRect.Min.Y+labelPadding) + face.Metrics().Ascent,
		},
	}
	drawer.DrawString(text)
}

// labelText joins non-empty label parts
func labelText(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	return strings.Join(nonEmpty, " ")
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 2, 64)
}

// ParseColor parses "#rrggbb" or "r,g,b" into opaque color
func ParseColor(value string) (color.RGBA, error) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "#") {
		hex := strings.TrimPrefix(value, "#")
		if len(hex) != 6 {
			return color.RGBA{}, errors.Errorf("bad color '%s': expected #rrggbb", value)
		}
		rgb, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, errors.Wrapf(err, "bad color '%s'", value)
		}
		return color.RGBA{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb), A: 255}, nil
	}
	parts := strings.Split(value, ",")
	if len(parts) != 3 {
		return color.RGBA{}, errors.Errorf("bad color '%s': expected r,g,b", value)
	}
	var channels [3]uint8
	for i, part := range parts {
		channel, err := strconv.ParseUint(strings.TrimSpace(part), 10, 8)
		if err != nil {
			return color.RGBA{}, errors.Wrapf(err, "bad color '%s'", value)
		}
		channels[i] = uint8(channel)
	}
	return color.RGBA{R: channels[0], G: channels[1], B: channels[2], A: 255}, nil
}
