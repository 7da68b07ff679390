package imaging

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// Canvas draws annotation primitives onto an RGBA buffer.
//
// Integer pixel coordinates address pixel centers, so a circle at (x, y) is
// centered on that pixel. Rectangles are stroked along their integer edges.
// Text uses the 7x13 basic bitmap font with (x, y) as the left end of the
// baseline.
type Canvas struct {
	dc *gg.Context
}

// NewCanvas creates a Canvas that draws directly into dst.
func NewCanvas(dst *image.RGBA) *Canvas {
	dc := gg.NewContextForRGBA(dst)
	dc.SetFontFace(basicfont.Face7x13)
	return &Canvas{dc: dc}
}

// StrokeCircle draws a circle outline of the given radius and line width.
func (c *Canvas) StrokeCircle(x, y int, radius, width float64, col color.Color) {
	c.dc.NewSubPath()
	c.dc.DrawCircle(center(x), center(y), radius)
	c.dc.SetLineWidth(width)
	c.dc.SetColor(col)
	c.dc.Stroke()
}

// FillCircle draws a filled disc of the given radius.
func (c *Canvas) FillCircle(x, y int, radius float64, col color.Color) {
	c.dc.NewSubPath()
	c.dc.DrawCircle(center(x), center(y), radius)
	c.dc.SetColor(col)
	c.dc.Fill()
}

// StrokeRect draws the outline of r with the given line width.
func (c *Canvas) StrokeRect(r image.Rectangle, width float64, col color.Color) {
	c.dc.NewSubPath()
	c.dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
	c.dc.SetLineWidth(width)
	c.dc.SetColor(col)
	c.dc.Stroke()
}

// Text draws s with its baseline starting at (x, y).
func (c *Canvas) Text(x, y int, s string, col color.Color) {
	c.dc.SetColor(col)
	c.dc.DrawString(s, float64(x), float64(y))
}

func center(v int) float64 {
	return float64(v) + 0.5
}
